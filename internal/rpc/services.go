package rpc

import (
	"context"

	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/tx"
	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/history"
)

// Services gives RPC method handlers access to the daemon's
// collaborators. It is set once at startup, before the server starts
// accepting requests.
var Services *ServiceContainer

// ServiceContainer holds references to all services needed by RPC
// method handlers.
type ServiceContainer struct {
	// Market is the transaction engine surface.
	Market MarketService

	// History is the sale and event archive. Nil when the archive is
	// disabled; methods that need it report notEnabled.
	History HistoryService
}

// MarketService is the engine surface the handlers consume.
// *tx.Engine satisfies it.
type MarketService interface {
	// Apply runs one transaction through the engine.
	Apply(ctx context.Context, txn tx.Transaction) tx.ApplyResult

	// Listing returns the committed listing for a token, if any.
	Listing(tokenID types.TokenID) (*state.Listing, bool)

	// Listings returns all committed listings ordered by token ID.
	Listings() []*state.Listing

	// PendingWithdrawal returns the account's withdrawable balance.
	PendingWithdrawal(account types.Address) types.Amount

	// CurrentFee returns the committed listing fee.
	CurrentFee() types.Amount

	// Stats returns cumulative transaction counters.
	Stats() tx.Stats

	// Config returns the engine configuration.
	Config() tx.EngineConfig
}

// HistoryService is the archive surface the handlers consume.
// *history.SQLStore satisfies it.
type HistoryService interface {
	// RecentSales returns the most recent sales, newest first.
	RecentSales(ctx context.Context, limit int) ([]history.Sale, error)

	// SalesByToken returns sales of one token, newest first.
	SalesByToken(ctx context.Context, tokenID types.TokenID, limit int) ([]history.Sale, error)

	// SalesByAccount returns sales the account participated in.
	SalesByAccount(ctx context.Context, account types.Address, limit int) ([]history.Sale, error)

	// SaleCount returns the total number of archived sales.
	SaleCount(ctx context.Context) (int64, error)
}

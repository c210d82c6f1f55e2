// Package history archives committed marketplace activity in a
// relational store: every event in commit order, plus one sale row per
// purchase. The archive feeds the query surface (recent sales, sales
// by token or account, event ranges) and survives restarts
// independently of the state checkpoints.
//
// Two drivers are supported: embedded SQLite (the default, pure Go)
// and PostgreSQL for deployments that already run one.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/types"
)

var (
	// ErrStoreClosed is returned when the store is used before Open
	// or after Close.
	ErrStoreClosed = errors.New("history store is closed")

	// ErrSaleNotFound is returned when a sale lookup matches nothing.
	ErrSaleNotFound = errors.New("sale not found")
)

// Sale is one completed purchase. EventSeq ties the row back to the
// Sold event that committed it.
type Sale struct {
	ID         string        `json:"sale_id"`
	TokenID    types.TokenID `json:"token_id"`
	Seller     types.Address `json:"seller"`
	Buyer      types.Address `json:"buyer"`
	Price      types.Amount  `json:"price"`
	EventSeq   uint64        `json:"event_seq"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Store is the archive interface the daemon and the RPC handlers
// depend on.
type Store interface {
	// Open connects to the database and creates the schema if needed.
	Open(ctx context.Context) error

	// Close releases the database connection.
	Close() error

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error

	// SaveEvent appends one committed event. Saving an already
	// archived sequence number is a no-op, so replays after a crash
	// are safe.
	SaveEvent(ctx context.Context, ev events.Event) error

	// SaveSale records one completed purchase. A missing ID is
	// assigned before insert.
	SaveSale(ctx context.Context, sale *Sale) error

	// SaleByID returns the sale with the given identifier.
	SaleByID(ctx context.Context, id string) (*Sale, error)

	// RecentSales returns the most recent sales, newest first.
	RecentSales(ctx context.Context, limit int) ([]Sale, error)

	// SalesByToken returns sales of one token, newest first.
	SalesByToken(ctx context.Context, tokenID types.TokenID, limit int) ([]Sale, error)

	// SalesByAccount returns sales the account participated in, as
	// seller or buyer, newest first.
	SalesByAccount(ctx context.Context, account types.Address, limit int) ([]Sale, error)

	// EventsRange returns archived events with fromSeq <= seq <= toSeq
	// in sequence order. A toSeq of zero means no upper bound.
	EventsRange(ctx context.Context, fromSeq, toSeq uint64) ([]events.Event, error)

	// SaleCount returns the total number of archived sales.
	SaleCount(ctx context.Context) (int64, error)
}

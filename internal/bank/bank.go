// Package bank defines the settlement interface through which the
// marketplace collects payments and pays funds out, plus the
// balance-backed implementation the standalone daemon runs with.
//
// The bank is an external collaborator from the engine's point of view:
// its calls can fail, and a credited party can synchronously call back
// into the engine before Credit returns. The engine is ordered so that
// neither possibility can corrupt its ledgers.
package bank

import (
	"context"
	"errors"

	"github.com/LeJamon/goMarketd/internal/core/types"
)

var (
	// ErrInsufficientFunds is returned by Debit when the account's
	// balance cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAccount is returned for operations on the zero address.
	ErrInvalidAccount = errors.New("invalid account")
)

// Bank settles value for the marketplace. Debit collects declared
// payment amounts from a caller; Credit performs the engine's outbound
// transfers (refunds and withdrawal payouts).
type Bank interface {
	Debit(ctx context.Context, account types.Address, amount types.Amount) error
	Credit(ctx context.Context, account types.Address, amount types.Amount) error
	BalanceOf(account types.Address) types.Amount
}

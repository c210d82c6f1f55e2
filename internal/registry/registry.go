// Package registry defines the ownership registry the marketplace
// engine consults and the in-memory implementation the standalone
// daemon runs with. The registry is the sole authority on who owns a
// token; the engine never caches ownership beyond a single operation.
package registry

import (
	"context"
	"errors"

	"github.com/LeJamon/goMarketd/internal/core/types"
)

var (
	// ErrUnknownToken is returned when a token ID has never been minted.
	ErrUnknownToken = errors.New("unknown token")
	// ErrNotTokenOwner is returned when a transfer names a from-address
	// that does not currently own the token.
	ErrNotTokenOwner = errors.New("account is not the token owner")
	// ErrSameOwner is returned when a transfer would move a token to
	// its current owner.
	ErrSameOwner = errors.New("transfer to current owner")
)

// TransferHook is invoked synchronously after every completed transfer,
// whatever its path. previousOwner is the owner before the transfer.
type TransferHook func(ctx context.Context, tokenID types.TokenID, previousOwner types.Address)

// Registry is the authoritative token ownership ledger.
//
// Transfer and the registered hooks run on the caller's goroutine; a
// hook may call back into its registrant before Transfer returns, which
// is the re-entrancy path the marketplace engine is ordered against.
type Registry interface {
	// OwnerOf returns the current owner of a token.
	OwnerOf(ctx context.Context, tokenID types.TokenID) (types.Address, error)
	// Transfer moves a token from its current owner to a new owner.
	// It fails without side effects if from is not the current owner.
	Transfer(ctx context.Context, tokenID types.TokenID, from, to types.Address) error
	// RegisterTransferHook registers a hook fired after every
	// completed transfer.
	RegisterTransferHook(hook TransferHook)
}

// Minter is implemented by registries that can create new tokens.
// Token IDs are assigned monotonically and never reused.
type Minter interface {
	Mint(ctx context.Context, owner types.Address) (types.TokenID, error)
}

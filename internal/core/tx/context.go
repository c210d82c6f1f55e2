package tx

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarketd/internal/bank"
	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/registry"
)

// ApplyContext carries everything a transaction needs while applying.
//
// External value movement goes through Debit, Credit and TransferToken,
// never through the collaborators directly: the session records each call
// so the engine can compensate them all when an operation aborts.
type ApplyContext struct {
	// Ctx is the operation context. It carries the in-flight session, so
	// it MUST reach every external call; that is how a re-entrant call
	// finds its way back into the same overlay.
	Ctx context.Context

	// View is the overlay this transaction reads and writes. Nothing
	// reaches committed state unless the whole operation succeeds.
	View state.View

	// Account is the address the transaction acts for.
	Account types.Address

	// Config is the engine configuration at apply time.
	Config EngineConfig

	// TxHash identifies the transaction being applied.
	TxHash [32]byte

	// Registry is the external ownership registry.
	Registry registry.Registry

	// Bank is the external settlement bank.
	Bank bank.Bank

	sess *session
	log  *zap.Logger
}

// Emit queues an event for publication. Events only reach subscribers if
// the operation commits; a failed operation drops everything it emitted.
func (c *ApplyContext) Emit(ev events.Event) {
	c.sess.events = append(c.sess.events, ev)
}

// Logger returns the engine logger.
func (c *ApplyContext) Logger() *zap.Logger {
	return c.log
}

// OwnerOf asks the registry who currently owns the token.
func (c *ApplyContext) OwnerOf(tokenID types.TokenID) (types.Address, error) {
	return c.Registry.OwnerOf(c.Ctx, tokenID)
}

// Debit collects amount from account at the bank. The call is recorded in
// the session so an aborting operation returns the money.
func (c *ApplyContext) Debit(account types.Address, amount types.Amount) error {
	if amount == 0 {
		return nil
	}
	if err := c.Bank.Debit(c.Ctx, account, amount); err != nil {
		return err
	}
	c.sess.externals = append(c.sess.externals, externalOp{
		kind:    externalDebit,
		account: account,
		amount:  amount,
	})
	return nil
}

// Credit pays amount to account at the bank, recorded like Debit.
func (c *ApplyContext) Credit(account types.Address, amount types.Amount) error {
	if amount == 0 {
		return nil
	}
	if err := c.Bank.Credit(c.Ctx, account, amount); err != nil {
		return err
	}
	c.sess.externals = append(c.sess.externals, externalOp{
		kind:    externalCredit,
		account: account,
		amount:  amount,
	})
	return nil
}

// TransferToken moves ownership at the registry, recorded so an aborting
// operation hands the token back.
func (c *ApplyContext) TransferToken(tokenID types.TokenID, from, to types.Address) error {
	if err := c.Registry.Transfer(c.Ctx, tokenID, from, to); err != nil {
		return err
	}
	c.sess.externals = append(c.sess.externals, externalOp{
		kind:    externalTransfer,
		tokenID: tokenID,
		from:    from,
		to:      to,
	})
	return nil
}

// readListing returns the listing for tokenID, or nil if none exists.
func (c *ApplyContext) readListing(tokenID types.TokenID) (*state.Listing, Result) {
	entry, err := c.View.Read(state.ListingKeylet(tokenID))
	if err != nil {
		return nil, TefINTERNAL
	}
	if entry == nil {
		return nil, TesSUCCESS
	}
	listing, ok := entry.(*state.Listing)
	if !ok {
		return nil, TefINTERNAL
	}
	return listing, TesSUCCESS
}

// readFees returns the fee settings entry, which the engine seeds at genesis.
func (c *ApplyContext) readFees() (*state.Fees, Result) {
	entry, err := c.View.Read(state.FeesKeylet())
	if err != nil || entry == nil {
		return nil, TefINTERNAL
	}
	fees, ok := entry.(*state.Fees)
	if !ok {
		return nil, TefINTERNAL
	}
	return fees, TesSUCCESS
}

// creditEscrow adds amount to account's pending withdrawal balance,
// creating the entry if needed. The credit lives in the overlay until the
// operation commits.
func (c *ApplyContext) creditEscrow(account types.Address, amount types.Amount) Result {
	keylet := state.EscrowKeylet(account)
	entry, err := c.View.Read(keylet)
	if err != nil {
		return TefINTERNAL
	}
	if entry == nil {
		if err := c.View.Insert(keylet, &state.Escrow{Account: account, Balance: amount}); err != nil {
			return TefINTERNAL
		}
		return TesSUCCESS
	}
	escrow, ok := entry.(*state.Escrow)
	if !ok {
		return TefINTERNAL
	}
	if escrow.Balance > math.MaxUint64-amount {
		return TecINTERNAL
	}
	escrow.Balance += amount
	if err := c.View.Update(keylet, escrow); err != nil {
		return TefINTERNAL
	}
	return TesSUCCESS
}

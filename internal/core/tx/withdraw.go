package tx

import (
	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/types"
)

// Withdraw pays out the account's accumulated balance: sale proceeds for
// sellers, accrued listing fees for the operator.
type Withdraw struct {
	BaseTx
}

// NewWithdraw creates a Withdraw transaction.
func NewWithdraw(account types.Address) *Withdraw {
	return &Withdraw{BaseTx: *NewBaseTx(TypeWithdraw, string(account))}
}

// Validate checks the transaction independently of state.
func (w *Withdraw) Validate() error {
	return w.Common.Validate()
}

// Flatten returns a flat map of all transaction fields for serialization.
func (w *Withdraw) Flatten() map[string]any {
	flat := make(map[string]any)
	w.Common.flatten(flat)
	return flat
}

// Apply pays out the balance. The balance zeroes before the payout goes
// to the bank, so a re-entrant withdraw arriving during the payout finds
// nothing to claim. If the payout fails the operation aborts and the
// discarded overlay restores the balance intact.
func (w *Withdraw) Apply(ctx *ApplyContext) Result {
	keylet := state.EscrowKeylet(ctx.Account)
	entry, err := ctx.View.Read(keylet)
	if err != nil {
		return TefINTERNAL
	}
	if entry == nil {
		return TefNOTHING_TO_WITHDRAW
	}
	escrow, ok := entry.(*state.Escrow)
	if !ok {
		return TefINTERNAL
	}
	// Withdrawn balances are erased rather than zeroed, but guard anyway.
	if escrow.Balance == 0 {
		return TefNOTHING_TO_WITHDRAW
	}
	amount := escrow.Balance

	if err := ctx.View.Erase(keylet); err != nil {
		return TefINTERNAL
	}

	if err := ctx.Credit(ctx.Account, amount); err != nil {
		return TecTRANSFER_FAILED
	}
	return TesSUCCESS
}

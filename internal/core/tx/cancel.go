package tx

import (
	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/types"
)

// Cancel removes a token's listing. The canceller must be the token's
// current owner, which is not necessarily the seller who listed it: a
// transfer that bypassed the market leaves a stale listing behind, and the
// new owner may clear it.
type Cancel struct {
	BaseTx
	TokenID types.TokenID `json:"token_id"`
}

// NewCancel creates a Cancel transaction.
func NewCancel(account types.Address, tokenID types.TokenID) *Cancel {
	return &Cancel{
		BaseTx:  *NewBaseTx(TypeCancel, string(account)),
		TokenID: tokenID,
	}
}

// Validate checks the transaction independently of state.
func (c *Cancel) Validate() error {
	return c.Common.Validate()
}

// Flatten returns a flat map of all transaction fields for serialization.
func (c *Cancel) Flatten() map[string]any {
	flat := make(map[string]any)
	c.Common.flatten(flat)
	flat["token_id"] = uint64(c.TokenID)
	return flat
}

// Apply removes the listing and emits a cancellation.
func (c *Cancel) Apply(ctx *ApplyContext) Result {
	listing, res := ctx.readListing(c.TokenID)
	if !res.IsSuccess() {
		return res
	}
	if listing == nil {
		return TefNOT_LISTED
	}

	owner, err := ctx.OwnerOf(c.TokenID)
	if err != nil || owner != ctx.Account {
		return TefNOT_OWNER
	}

	if err := ctx.View.Erase(state.ListingKeylet(c.TokenID)); err != nil {
		return TefINTERNAL
	}

	ctx.Emit(events.Cancelled(c.TokenID))
	return TesSUCCESS
}

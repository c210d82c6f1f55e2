package tx

import (
	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/types"
)

// SetFee updates the listing fee charged on new listings. Operator only.
// Listings already in place keep the fee terms they were created under.
type SetFee struct {
	BaseTx
	NewFee types.Amount `json:"new_fee"`
}

// NewSetFee creates a SetFee transaction.
func NewSetFee(account types.Address, newFee types.Amount) *SetFee {
	return &SetFee{
		BaseTx: *NewBaseTx(TypeSetFee, string(account)),
		NewFee: newFee,
	}
}

// Validate checks the transaction independently of state.
func (s *SetFee) Validate() error {
	return s.Common.Validate()
}

// Flatten returns a flat map of all transaction fields for serialization.
func (s *SetFee) Flatten() map[string]any {
	flat := make(map[string]any)
	s.Common.flatten(flat)
	flat["new_fee"] = uint64(s.NewFee)
	return flat
}

// Apply records the new fee and emits the change.
func (s *SetFee) Apply(ctx *ApplyContext) Result {
	if ctx.Config.Operator.IsZero() || ctx.Account != ctx.Config.Operator {
		return TefNO_PERMISSION
	}
	if s.NewFee > ctx.Config.MaxFee {
		return TemFEE_TOO_HIGH
	}

	fees, res := ctx.readFees()
	if !res.IsSuccess() {
		return res
	}
	fees.ListingFee = s.NewFee
	if err := ctx.View.Update(state.FeesKeylet(), fees); err != nil {
		return TefINTERNAL
	}

	ctx.Emit(events.FeeChanged(s.NewFee))
	return TesSUCCESS
}

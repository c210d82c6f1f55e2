package tx

import (
	"errors"

	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/types"
)

// List puts a token up for sale at a fixed price. The seller pays the
// current listing fee along with the transaction; any excess over the fee
// is refunded during settlement.
type List struct {
	BaseTx
	TokenID types.TokenID `json:"token_id"`
	Price   types.Amount  `json:"price"`
	FeePaid types.Amount  `json:"fee_paid"`
}

// NewList creates a List transaction.
func NewList(account types.Address, tokenID types.TokenID, price, feePaid types.Amount) *List {
	return &List{
		BaseTx:  *NewBaseTx(TypeList, string(account)),
		TokenID: tokenID,
		Price:   price,
		FeePaid: feePaid,
	}
}

// Validate checks the transaction independently of state.
func (l *List) Validate() error {
	if err := l.Common.Validate(); err != nil {
		return err
	}
	if l.Price == 0 {
		return errors.New("temINVALID_PRICE: price must be positive")
	}
	return nil
}

// Flatten returns a flat map of all transaction fields for serialization.
func (l *List) Flatten() map[string]any {
	flat := make(map[string]any)
	l.Common.flatten(flat)
	flat["token_id"] = uint64(l.TokenID)
	flat["price"] = uint64(l.Price)
	flat["fee_paid"] = uint64(l.FeePaid)
	return flat
}

// Apply lists the token. Ownership and fee checks run first, then the
// listing and the operator's fee accrual land in the overlay, and only
// then does settlement touch the bank. A re-entrant call arriving during
// settlement already sees the token as listed.
func (l *List) Apply(ctx *ApplyContext) Result {
	seller := ctx.Account

	owner, err := ctx.OwnerOf(l.TokenID)
	if err != nil || owner != seller {
		return TefNOT_OWNER
	}

	if l.Price > ctx.Config.MaxPrice {
		return TemINVALID_PRICE
	}

	fees, res := ctx.readFees()
	if !res.IsSuccess() {
		return res
	}
	if l.FeePaid < fees.ListingFee {
		return TefINSUFFICIENT_FEE
	}

	keylet := state.ListingKeylet(l.TokenID)
	if exists, err := ctx.View.Exists(keylet); err != nil {
		return TefINTERNAL
	} else if exists {
		return TefALREADY_LISTED
	}

	listing := &state.Listing{TokenID: l.TokenID, Seller: seller, Price: l.Price}
	if err := ctx.View.Insert(keylet, listing); err != nil {
		return TefINTERNAL
	}

	// The fee accrues to the operator's withdrawal balance, settled the
	// same pull-payment way as sale proceeds. With no operator configured
	// the fee is destroyed rather than escrowed.
	if fees.ListingFee > 0 && !ctx.Config.Operator.IsZero() {
		if res := ctx.creditEscrow(ctx.Config.Operator, fees.ListingFee); !res.IsSuccess() {
			return res
		}
	}

	// Settlement: collect the declared fee, then refund any excess.
	if err := ctx.Debit(seller, l.FeePaid); err != nil {
		return TecINSUFFICIENT_FUNDS
	}
	if err := ctx.Credit(seller, l.FeePaid-fees.ListingFee); err != nil {
		return TecTRANSFER_FAILED
	}

	ctx.Emit(events.Listed(l.TokenID, seller, l.Price))
	return TesSUCCESS
}

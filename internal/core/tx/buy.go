package tx

import (
	"errors"

	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/types"
)

// Buy purchases a listed token. The payment must cover the listing price;
// any excess is refunded. Sale proceeds accrue to the seller's withdrawal
// balance rather than being pushed to the seller mid-purchase.
type Buy struct {
	BaseTx
	TokenID types.TokenID `json:"token_id"`
	Payment types.Amount  `json:"payment"`
}

// NewBuy creates a Buy transaction.
func NewBuy(account types.Address, tokenID types.TokenID, payment types.Amount) *Buy {
	return &Buy{
		BaseTx:  *NewBaseTx(TypeBuy, string(account)),
		TokenID: tokenID,
		Payment: payment,
	}
}

// Validate checks the transaction independently of state.
func (b *Buy) Validate() error {
	if err := b.Common.Validate(); err != nil {
		return err
	}
	if b.Payment == 0 {
		return errors.New("temBAD_AMOUNT: payment must be positive")
	}
	return nil
}

// Flatten returns a flat map of all transaction fields for serialization.
func (b *Buy) Flatten() map[string]any {
	flat := make(map[string]any)
	b.Common.flatten(flat)
	flat["token_id"] = uint64(b.TokenID)
	flat["payment"] = uint64(b.Payment)
	return flat
}

// Apply settles the purchase. The order is load-bearing:
//
//  1. The listing is erased before any external call, so a re-entrant buy
//     of the same token fails with tefNOT_LISTED instead of selling twice.
//  2. The payment is collected.
//  3. Ownership moves. The registry's transfer notification re-enters the
//     engine here and finds the listing already gone.
//  4. Proceeds accrue to the seller's withdrawal balance. This happens
//     after the transfer so nothing observable during it suggests the
//     seller has been paid for a sale that may still abort.
//  5. Any overpayment is refunded.
//
// Failure anywhere aborts the whole purchase: the engine discards the
// overlay and compensates the completed external calls.
func (b *Buy) Apply(ctx *ApplyContext) Result {
	buyer := ctx.Account

	listing, res := ctx.readListing(b.TokenID)
	if !res.IsSuccess() {
		return res
	}
	if listing == nil {
		return TefNOT_LISTED
	}

	if b.Payment < listing.Price {
		return TefINSUFFICIENT_PAYMENT
	}

	if err := ctx.View.Erase(state.ListingKeylet(b.TokenID)); err != nil {
		return TefINTERNAL
	}

	if err := ctx.Debit(buyer, b.Payment); err != nil {
		return TecINSUFFICIENT_FUNDS
	}

	if err := ctx.TransferToken(b.TokenID, listing.Seller, buyer); err != nil {
		return TecTRANSFER_FAILED
	}

	if res := ctx.creditEscrow(listing.Seller, listing.Price); !res.IsSuccess() {
		return res
	}

	if err := ctx.Credit(buyer, b.Payment-listing.Price); err != nil {
		return TecTRANSFER_FAILED
	}

	ctx.Emit(events.Sold(b.TokenID, buyer, listing.Seller, listing.Price))
	return TesSUCCESS
}

// Package events defines the marketplace event stream: the typed
// events operations emit on commit, and the publisher interface the
// engine broadcasts them through.
package events

import (
	"time"

	"github.com/LeJamon/goMarketd/internal/core/types"
)

// Type identifies an event kind.
type Type string

const (
	// TypeListed is emitted when a token is listed for sale.
	TypeListed Type = "Listed"
	// TypeSold is emitted when a listed token is purchased.
	TypeSold Type = "Sold"
	// TypeCancelled is emitted when a listing is removed without a
	// sale: an explicit cancel, or invalidation after an external
	// ownership transfer.
	TypeCancelled Type = "Cancelled"
	// TypeFeeChanged is emitted when the operator changes the listing fee.
	TypeFeeChanged Type = "FeeChanged"
)

// Event is one entry in the append-only marketplace stream. Seq is
// assigned at commit time and is strictly increasing across the stream;
// stream order matches the order operations committed.
type Event struct {
	Seq     uint64        `json:"seq"`
	Type    Type          `json:"type"`
	Time    time.Time     `json:"time"`
	TokenID types.TokenID `json:"token_id,omitempty"`
	Seller  types.Address `json:"seller,omitempty"`
	Buyer   types.Address `json:"buyer,omitempty"`
	Price   types.Amount  `json:"price,omitempty"`
	NewFee  types.Amount  `json:"new_fee,omitempty"`
}

// Listed builds a Listed event. Seq and Time are assigned on commit.
func Listed(tokenID types.TokenID, seller types.Address, price types.Amount) Event {
	return Event{Type: TypeListed, TokenID: tokenID, Seller: seller, Price: price}
}

// Sold builds a Sold event.
func Sold(tokenID types.TokenID, buyer, seller types.Address, price types.Amount) Event {
	return Event{Type: TypeSold, TokenID: tokenID, Buyer: buyer, Seller: seller, Price: price}
}

// Cancelled builds a Cancelled event.
func Cancelled(tokenID types.TokenID) Event {
	return Event{Type: TypeCancelled, TokenID: tokenID}
}

// FeeChanged builds a FeeChanged event.
func FeeChanged(newFee types.Amount) Event {
	return Event{Type: TypeFeeChanged, NewFee: newFee}
}

// Publisher delivers committed events to subscribers. Publish is called
// once per event, in commit order, after the emitting operation's state
// changes are final.
type Publisher interface {
	Publish(ev Event)
}

// NoOpPublisher discards all events. Used when no subscription surface
// is wired, and in tests that don't inspect the stream.
type NoOpPublisher struct{}

// Publish implements Publisher.
func (NoOpPublisher) Publish(Event) {}

var _ Publisher = (*NoOpPublisher)(nil)

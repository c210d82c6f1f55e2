// Package state holds the marketplace ledger state: the entry model,
// keylet addressing, the mutable ledger, and the change-tracking overlay
// used to apply transactions atomically.
package state

import (
	"fmt"

	"github.com/LeJamon/goMarketd/internal/core/types"
)

// EntryType identifies the kind of a ledger entry.
type EntryType uint16

const (
	// TypeListing is a live sale offer for one token.
	TypeListing EntryType = 0x004C
	// TypeEscrow is an account's pending withdrawal balance.
	TypeEscrow EntryType = 0x0057
	// TypeFees is the singleton fee configuration.
	TypeFees EntryType = 0x0046
	// TypeSequence is the singleton event sequence counter.
	TypeSequence EntryType = 0x0053
)

// String returns the entry type name.
func (t EntryType) String() string {
	switch t {
	case TypeListing:
		return "Listing"
	case TypeEscrow:
		return "Escrow"
	case TypeFees:
		return "Fees"
	case TypeSequence:
		return "Sequence"
	default:
		return fmt.Sprintf("Unknown(0x%04x)", uint16(t))
	}
}

// Entry is a single ledger state entry.
type Entry interface {
	// Type returns the entry's type code.
	Type() EntryType
	// Clone returns a deep copy of the entry.
	Clone() Entry
}

// Listing records a live sale offer: the token, the account that listed
// it, and the asking price. A listing's liveness is its presence in the
// ledger; there is no separate active flag to fall out of sync.
type Listing struct {
	TokenID types.TokenID `codec:"token_id" json:"token_id"`
	Seller  types.Address `codec:"seller" json:"seller"`
	Price   types.Amount  `codec:"price" json:"price"`
}

// Type implements Entry.
func (*Listing) Type() EntryType { return TypeListing }

// Clone implements Entry.
func (l *Listing) Clone() Entry {
	c := *l
	return &c
}

// Escrow accumulates funds owed to an account. The balance only grows
// (sale proceeds, operator fee accrual) or resets to zero (withdrawal);
// it is never partially decremented.
type Escrow struct {
	Account types.Address `codec:"account" json:"account"`
	Balance types.Amount  `codec:"balance" json:"balance"`
}

// Type implements Entry.
func (*Escrow) Type() EntryType { return TypeEscrow }

// Clone implements Entry.
func (e *Escrow) Clone() Entry {
	c := *e
	return &c
}

// Fees is the singleton fee configuration entry.
type Fees struct {
	ListingFee types.Amount `codec:"listing_fee" json:"listing_fee"`
}

// Type implements Entry.
func (*Fees) Type() EntryType { return TypeFees }

// Clone implements Entry.
func (f *Fees) Clone() Entry {
	c := *f
	return &c
}

// Sequence is the singleton event sequence counter. NextEvent is the
// sequence number the next committed event will carry.
type Sequence struct {
	NextEvent uint64 `codec:"next_event" json:"next_event"`
}

// Type implements Entry.
func (*Sequence) Type() EntryType { return TypeSequence }

// Clone implements Entry.
func (s *Sequence) Clone() Entry {
	c := *s
	return &c
}

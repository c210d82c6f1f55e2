package state

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/crypto"
)

// Space identifiers for keylet derivation. Each entry kind hashes its
// identifying data under its own namespace so keys cannot collide
// across types.
const (
	spaceListing  uint16 = 'l'
	spaceEscrow   uint16 = 'w'
	spaceFees     uint16 = 'e'
	spaceSequence uint16 = 's'
)

// Key is a 256-bit state key.
type Key [32]byte

// String returns the uppercase hex representation of the key.
func (k Key) String() string {
	return strings.ToUpper(hex.EncodeToString(k[:]))
}

// Keylet addresses a ledger entry: a type identifier plus its state key.
type Keylet struct {
	Type EntryType
	Key  Key
}

// indexHash derives a state key by hashing the space identifier and the
// provided data.
func indexHash(space uint16, data ...[]byte) Key {
	buf := make([]byte, 2, 2+8)
	binary.BigEndian.PutUint16(buf, space)
	for _, d := range data {
		buf = append(buf, d...)
	}
	return Key(crypto.Sha512Half(buf))
}

// ListingKeylet returns the keylet for a token's listing entry.
func ListingKeylet(tokenID types.TokenID) Keylet {
	id := make([]byte, 8)
	binary.BigEndian.PutUint64(id, uint64(tokenID))
	return Keylet{Type: TypeListing, Key: indexHash(spaceListing, id)}
}

// EscrowKeylet returns the keylet for an account's escrow entry.
func EscrowKeylet(account types.Address) Keylet {
	return Keylet{Type: TypeEscrow, Key: indexHash(spaceEscrow, []byte(account))}
}

// FeesKeylet returns the keylet for the singleton fee configuration.
func FeesKeylet() Keylet {
	return Keylet{Type: TypeFees, Key: indexHash(spaceFees)}
}

// SequenceKeylet returns the keylet for the singleton event sequence
// counter.
func SequenceKeylet() Keylet {
	return Keylet{Type: TypeSequence, Key: indexHash(spaceSequence)}
}

// KeyletOf returns the keylet an entry lives under.
func KeyletOf(e Entry) Keylet {
	switch v := e.(type) {
	case *Listing:
		return ListingKeylet(v.TokenID)
	case *Escrow:
		return EscrowKeylet(v.Account)
	case *Fees:
		return FeesKeylet()
	case *Sequence:
		return SequenceKeylet()
	default:
		return Keylet{}
	}
}

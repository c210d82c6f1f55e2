package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/decred/dcrd/crypto/ripemd160"

	"github.com/LeJamon/goMarketd/internal/core/types"
)

// AccountIDSize is the size of an account ID in bytes.
const AccountIDSize = 20

// addressPrefix marks a rendered marketplace address.
const addressPrefix = "M"

// ErrInvalidAddress is returned when an address string cannot be decoded.
var ErrInvalidAddress = errors.New("invalid address")

// CalcAccountID computes the account ID from a public key as
// RIPEMD160(SHA256(publicKey)). Two different hashes are chained to
// avoid length-extension attacks, following the Bitcoin derivation.
func CalcAccountID(publicKey []byte) [AccountIDSize]byte {
	sha := sha256.Sum256(publicKey)

	hasher := ripemd160.New()
	hasher.Write(sha[:])
	sum := hasher.Sum(nil)

	var id [AccountIDSize]byte
	copy(id[:], sum)
	return id
}

// EncodeAddress renders an account ID as an address string:
// the prefix "M" followed by the uppercase hex of the 20-byte ID.
func EncodeAddress(id [AccountIDSize]byte) types.Address {
	return types.Address(addressPrefix + strings.ToUpper(hex.EncodeToString(id[:])))
}

// DecodeAddress parses an address string back into an account ID.
func DecodeAddress(addr types.Address) ([AccountIDSize]byte, error) {
	var id [AccountIDSize]byte
	s := string(addr)
	if len(s) != 1+2*AccountIDSize || !strings.HasPrefix(s, addressPrefix) {
		return id, ErrInvalidAddress
	}
	raw, err := hex.DecodeString(s[1:])
	if err != nil {
		return id, ErrInvalidAddress
	}
	copy(id[:], raw)
	return id, nil
}

// AddressFromPubKey derives the address for a serialized public key.
func AddressFromPubKey(publicKey []byte) types.Address {
	return EncodeAddress(CalcAccountID(publicKey))
}

// IsValidAddress reports whether s parses as an address.
func IsValidAddress(s string) bool {
	_, err := DecodeAddress(types.Address(s))
	return err == nil
}

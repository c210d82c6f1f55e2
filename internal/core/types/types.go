// Package types defines the primitive identifiers shared across the
// marketplace: account addresses, token identifiers, and fund amounts.
package types

import "strconv"

// Address identifies an account. Addresses are derived from secp256k1
// public keys (see internal/crypto) and rendered as an "M"-prefixed
// hex string of the 20-byte account ID.
type Address string

// ZeroAddress is the empty address. It never owns tokens or funds.
const ZeroAddress Address = ""

// IsZero returns true if the address is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the address as a plain string.
func (a Address) String() string {
	return string(a)
}

// TokenID identifies a token tracked by the ownership registry.
// Identifiers are assigned monotonically at mint time and never reused.
type TokenID uint64

// String returns the decimal representation of the token ID.
func (t TokenID) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// Amount is an unsigned quantity of funds in base units.
// All prices, fees, payments, and balances are Amounts.
type Amount uint64

// String returns the decimal representation of the amount.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

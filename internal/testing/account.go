package testing

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/crypto"
)

// Account is a test account with its keypair and derived address.
type Account struct {
	// Name is the human-readable identifier the account was created
	// with, used in assertion messages.
	Name string

	// Keys is the account's secp256k1 keypair, for signed-submission
	// tests.
	Keys *crypto.Keypair

	// Address is the account address derived from the public key.
	Address types.Address
}

// NewAccount derives a test account from its name. The same name
// always produces the same keypair and address, keeping tests
// reproducible.
func NewAccount(name string) *Account {
	// The private key is the SHA-256 of a domain-separated name, so
	// test keys can never collide with keys derived elsewhere.
	digest := sha256.Sum256([]byte("marketd test account: " + name))
	keys, err := crypto.KeypairFromHex(hex.EncodeToString(digest[:]))
	if err != nil {
		// Only reachable if the digest maps to the zero scalar.
		panic("testing: cannot derive account " + name + ": " + err.Error())
	}
	return &Account{
		Name:    name,
		Keys:    keys,
		Address: keys.Address(),
	}
}

// String returns the account's name for readable test output.
func (a *Account) String() string {
	return a.Name
}

package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/LeJamon/goMarketd/internal/core/types"
)

var (
	// ErrInvalidPrivateKey is returned when a private key cannot be parsed.
	ErrInvalidPrivateKey = errors.New("invalid private key")
	// ErrInvalidPublicKey is returned when a public key cannot be parsed.
	ErrInvalidPublicKey = errors.New("invalid public key")
	// ErrInvalidSignature is returned when a signature cannot be parsed.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Keypair is a secp256k1 keypair identifying a marketplace account.
type Keypair struct {
	priv *btcec.PrivateKey
	pub  *btcec.PublicKey
}

// NewKeypair generates a new random keypair.
func NewKeypair() (*Keypair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return &Keypair{priv: priv, pub: priv.PubKey()}, nil
}

// KeypairFromHex reconstructs a keypair from a 64-hex-char private key.
func KeypairFromHex(privHex string) (*Keypair, error) {
	if len(privHex) != 64 {
		return nil, ErrInvalidPrivateKey
	}
	raw, err := hex.DecodeString(privHex)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	if priv == nil || priv.Key.IsZero() {
		return nil, ErrInvalidPrivateKey
	}
	return &Keypair{priv: priv, pub: priv.PubKey()}, nil
}

// PrivateHex returns the private key as uppercase hex.
func (k *Keypair) PrivateHex() string {
	return strings.ToUpper(hex.EncodeToString(k.priv.Serialize()))
}

// PublicHex returns the compressed public key as uppercase hex.
func (k *Keypair) PublicHex() string {
	return strings.ToUpper(hex.EncodeToString(k.pub.SerializeCompressed()))
}

// Address returns the account address derived from the public key.
func (k *Keypair) Address() types.Address {
	return AddressFromPubKey(k.pub.SerializeCompressed())
}

// Sign signs the Sha512Half digest of msg and returns the DER-encoded
// signature as uppercase hex. Signatures are low-S, so they cannot be
// malleated into a second valid encoding.
func (k *Keypair) Sign(msg []byte) string {
	digest := Sha512Half(msg)
	sig := ecdsa.Sign(k.priv, digest[:])
	return strings.ToUpper(hex.EncodeToString(sig.Serialize()))
}

// VerifySignature checks a hex DER signature over the Sha512Half digest
// of msg against a hex compressed public key.
func VerifySignature(msg []byte, pubHex, sigHex string) bool {
	pubRaw, err := hex.DecodeString(pubHex)
	if err != nil {
		return false
	}
	pub, err := secp256k1.ParsePubKey(pubRaw)
	if err != nil {
		return false
	}
	sigRaw, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigRaw)
	if err != nil {
		return false
	}
	digest := Sha512Half(msg)
	return sig.Verify(digest[:], pub)
}

// ParsePubKeyHex parses a hex compressed public key.
func ParsePubKeyHex(pubHex string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return pub, nil
}

package tx

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ugorji/go/codec"

	"github.com/LeJamon/goMarketd/internal/crypto"
)

// ErrInvalidSignature is returned when a transaction signature does not verify.
var ErrInvalidSignature = errors.New("invalid signature")

// hashPrefix namespaces transaction hashes so they can never collide with
// hashes of other payloads.
var hashPrefix = []byte("TXN\x00")

var cborHandle = newCborHandle()

func newCborHandle() *codec.CborHandle {
	h := new(codec.CborHandle)
	// Canonical encoding sorts map keys, so the same transaction always
	// produces the same bytes. Hashes and signatures depend on this.
	h.Canonical = true
	return h
}

// EncodeBlob serializes a transaction to its canonical binary form.
func EncodeBlob(txn Transaction) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, cborHandle)
	if err := enc.Encode(txn.Flatten()); err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBlob parses a canonical binary blob back into a typed transaction.
func DecodeBlob(data []byte) (Transaction, error) {
	var raw map[string]any
	dec := codec.NewDecoder(bytes.NewReader(data), cborHandle)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	name, _ := raw["type"].(string)
	txType, ok := TypeFromName(name)
	if !ok {
		return nil, ErrUnknownTransactionType
	}

	txn, err := NewFromType(txType)
	if err != nil {
		return nil, err
	}
	dec = codec.NewDecoder(bytes.NewReader(data), cborHandle)
	if err := dec.Decode(txn); err != nil {
		return nil, fmt.Errorf("decode %s: %w", txType, err)
	}
	return txn, nil
}

// SigningData returns the canonical bytes a signature covers: the full
// transaction minus the signature field itself. The signing public key is
// part of the payload, binding the signature to the key.
func SigningData(txn Transaction) ([]byte, error) {
	flat := txn.Flatten()
	delete(flat, "signature")

	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, cborHandle)
	if err := enc.Encode(flat); err != nil {
		return nil, fmt.Errorf("encode signing data: %w", err)
	}
	return buf.Bytes(), nil
}

// ComputeHash returns the transaction's identifying hash, computed over the
// prefixed canonical blob. The signature is included, so signed and unsigned
// variants of the same transaction hash differently.
func ComputeHash(txn Transaction) ([32]byte, error) {
	blob, err := EncodeBlob(txn)
	if err != nil {
		return [32]byte{}, err
	}
	msg := make([]byte, 0, len(hashPrefix)+len(blob))
	msg = append(msg, hashPrefix...)
	msg = append(msg, blob...)
	return crypto.Sha512Half(msg), nil
}

// HashHex formats a transaction hash the way the API reports it.
func HashHex(hash [32]byte) string {
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}

// Sign signs the transaction with the given keypair, filling in the
// signing public key and signature fields.
func Sign(txn Transaction, kp *crypto.Keypair) error {
	common := txn.GetCommon()
	common.SigningPubKey = kp.PublicHex()

	data, err := SigningData(txn)
	if err != nil {
		return err
	}
	common.Signature = kp.Sign(data)
	return nil
}

// Verify checks the transaction's signature against its signing public key.
// It does not check that the key is authorized for the account; that is the
// engine's preflight job.
func Verify(txn Transaction) error {
	common := txn.GetCommon()
	if common.SigningPubKey == "" {
		return fmt.Errorf("%w: missing signing public key", ErrInvalidSignature)
	}
	if common.Signature == "" {
		return fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	}

	data, err := SigningData(txn)
	if err != nil {
		return err
	}
	if !crypto.VerifySignature(data, common.SigningPubKey, common.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

package state

import (
	"errors"
	"fmt"

	"github.com/ugorji/go/codec"
)

// cborHandle is the canonical CBOR handle used for entry serialization.
// Canonical encoding keeps snapshots byte-stable for identical state.
var cborHandle = func() *codec.CborHandle {
	h := new(codec.CborHandle)
	h.Canonical = true
	return h
}()

// ErrUnknownEntryType is returned when decoding an entry whose type
// code is not recognized.
var ErrUnknownEntryType = errors.New("unknown entry type")

// entryEnvelope wraps a serialized entry with its type code so the
// decoder can reconstruct the concrete type.
type entryEnvelope struct {
	Type uint16 `codec:"type"`
	Data []byte `codec:"data"`
}

// EncodeEntry serializes an entry to canonical CBOR.
func EncodeEntry(e Entry) ([]byte, error) {
	var data []byte
	if err := codec.NewEncoderBytes(&data, cborHandle).Encode(e); err != nil {
		return nil, fmt.Errorf("failed to encode %s entry: %w", e.Type(), err)
	}

	env := entryEnvelope{Type: uint16(e.Type()), Data: data}
	var out []byte
	if err := codec.NewEncoderBytes(&out, cborHandle).Encode(env); err != nil {
		return nil, fmt.Errorf("failed to encode entry envelope: %w", err)
	}
	return out, nil
}

// DecodeEntry deserializes an entry produced by EncodeEntry.
func DecodeEntry(b []byte) (Entry, error) {
	var env entryEnvelope
	if err := codec.NewDecoderBytes(b, cborHandle).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode entry envelope: %w", err)
	}

	var e Entry
	switch EntryType(env.Type) {
	case TypeListing:
		e = &Listing{}
	case TypeEscrow:
		e = &Escrow{}
	case TypeFees:
		e = &Fees{}
	case TypeSequence:
		e = &Sequence{}
	default:
		return nil, fmt.Errorf("%w: 0x%04x", ErrUnknownEntryType, env.Type)
	}

	if err := codec.NewDecoderBytes(env.Data, cborHandle).Decode(e); err != nil {
		return nil, fmt.Errorf("failed to decode %s entry: %w", EntryType(env.Type), err)
	}
	return e, nil
}

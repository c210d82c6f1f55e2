package tx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ugorji/go/codec"

	"github.com/LeJamon/goMarketd/internal/crypto"
)

func TestBlobRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		txn  Transaction
	}{
		{"List", NewList(alice, 7, 500, 10)},
		{"Cancel", NewCancel(alice, 7)},
		{"Buy", NewBuy(bob, 7, 650)},
		{"Withdraw", NewWithdraw(alice)},
		{"SetFee", NewSetFee(operator, 25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := EncodeBlob(tt.txn)
			require.NoError(t, err)

			decoded, err := DecodeBlob(blob)
			require.NoError(t, err)
			assert.Equal(t, tt.txn.TxType(), decoded.TxType())
			assert.Equal(t, tt.txn.Flatten(), decoded.Flatten())
		})
	}
}

// Canonical encoding means the same transaction always produces the same
// bytes, and therefore the same hash.
func TestBlobDeterministic(t *testing.T) {
	txn := NewBuy(bob, 7, 650)

	first, err := EncodeBlob(txn)
	require.NoError(t, err)
	second, err := EncodeBlob(txn)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second))

	h1, err := ComputeHash(txn)
	require.NoError(t, err)
	h2, err := ComputeHash(txn)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, [32]byte{}, h1)
	assert.Len(t, HashHex(h1), 64)
}

func TestHashChangesWithContent(t *testing.T) {
	a, err := ComputeHash(NewBuy(bob, 7, 650))
	require.NoError(t, err)
	b, err := ComputeHash(NewBuy(bob, 7, 651))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// The signing payload covers everything except the signature itself, so
// signing does not invalidate its own input.
func TestSigningDataExcludesSignature(t *testing.T) {
	kp, err := crypto.NewKeypair()
	require.NoError(t, err)
	txn := NewList(kp.Address(), 7, 500, 10)
	txn.SigningPubKey = kp.PublicHex()

	before, err := SigningData(txn)
	require.NoError(t, err)
	require.NoError(t, Sign(txn, kp))
	after, err := SigningData(txn)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after))
}

func TestSignAndVerify(t *testing.T) {
	kp, err := crypto.NewKeypair()
	require.NoError(t, err)
	txn := NewList(kp.Address(), 7, 500, 10)
	require.NoError(t, Sign(txn, kp))
	require.NoError(t, Verify(txn))

	t.Run("tampered field", func(t *testing.T) {
		tampered := *txn
		tampered.Price = 1
		require.ErrorIs(t, Verify(&tampered), ErrInvalidSignature)
	})

	t.Run("missing signature", func(t *testing.T) {
		unsigned := NewList(kp.Address(), 7, 500, 10)
		unsigned.SigningPubKey = kp.PublicHex()
		require.ErrorIs(t, Verify(unsigned), ErrInvalidSignature)
	})

	t.Run("signature from another key", func(t *testing.T) {
		other, err := crypto.NewKeypair()
		require.NoError(t, err)
		forged := NewList(kp.Address(), 7, 500, 10)
		require.NoError(t, Sign(forged, other))
		forged.SigningPubKey = kp.PublicHex()
		require.ErrorIs(t, Verify(forged), ErrInvalidSignature)
	})
}

func TestFromJSON(t *testing.T) {
	data := []byte(`{"type":"Buy","account":"` + string(bob) + `","token_id":7,"payment":650}`)
	txn, err := FromJSON(data)
	require.NoError(t, err)

	buy, ok := txn.(*Buy)
	require.True(t, ok)
	assert.Equal(t, string(bob), buy.Account)
	assert.Equal(t, TypeBuy, buy.TxType())
	assert.EqualValues(t, 7, buy.TokenID)
	assert.EqualValues(t, 650, buy.Payment)

	_, err = FromJSON([]byte(`{"type":"Teleport"}`))
	require.ErrorIs(t, err, ErrUnknownTransactionType)

	_, err = FromJSON([]byte(`{`))
	require.Error(t, err)
}

func TestDecodeBlobUnknownType(t *testing.T) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, cborHandle)
	require.NoError(t, enc.Encode(map[string]any{"type": "Teleport", "account": string(bob)}))

	_, err := DecodeBlob(buf.Bytes())
	require.ErrorIs(t, err, ErrUnknownTransactionType)
}

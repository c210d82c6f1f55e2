package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/crypto"
)

func testAddr(b byte) types.Address {
	return crypto.EncodeAddress([20]byte{b})
}

func TestMemoryRegistryMint(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	alice := testAddr(1)

	id1, err := r.Mint(ctx, alice)
	require.NoError(t, err)
	id2, err := r.Mint(ctx, alice)
	require.NoError(t, err)

	assert.EqualValues(t, 1, id1, "token IDs start at 1")
	assert.EqualValues(t, 2, id2)
	assert.Equal(t, 2, r.TokenCount())

	owner, err := r.OwnerOf(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	_, err = r.Mint(ctx, types.ZeroAddress)
	require.ErrorIs(t, err, ErrNotTokenOwner)
}

func TestMemoryRegistryOwnerOfUnknown(t *testing.T) {
	r := NewMemoryRegistry()
	_, err := r.OwnerOf(context.Background(), 99)
	require.ErrorIs(t, err, ErrUnknownToken)
}

func TestMemoryRegistryTransfer(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	alice := testAddr(1)
	bob := testAddr(2)
	carol := testAddr(3)

	id, err := r.Mint(ctx, alice)
	require.NoError(t, err)

	// Only the current owner can be the transferor.
	require.ErrorIs(t, r.Transfer(ctx, id, bob, carol), ErrNotTokenOwner)
	require.ErrorIs(t, r.Transfer(ctx, id, alice, types.ZeroAddress), ErrNotTokenOwner)
	require.ErrorIs(t, r.Transfer(ctx, id, alice, alice), ErrSameOwner)
	require.ErrorIs(t, r.Transfer(ctx, 99, alice, bob), ErrUnknownToken)

	require.NoError(t, r.Transfer(ctx, id, alice, bob))
	owner, err := r.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)
}

func TestMemoryRegistryTransferHooks(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	alice := testAddr(1)
	bob := testAddr(2)

	id, err := r.Mint(ctx, alice)
	require.NoError(t, err)

	type call struct {
		tokenID types.TokenID
		from    types.Address
		owner   types.Address
	}
	var calls []call

	// Hooks run after the ownership change and may call back into the
	// registry.
	r.RegisterTransferHook(func(hookCtx context.Context, tokenID types.TokenID, from types.Address) {
		owner, err := r.OwnerOf(hookCtx, tokenID)
		require.NoError(t, err)
		calls = append(calls, call{tokenID: tokenID, from: from, owner: owner})
	})

	require.NoError(t, r.Transfer(ctx, id, alice, bob))
	require.Len(t, calls, 1)
	assert.Equal(t, id, calls[0].tokenID)
	assert.Equal(t, alice, calls[0].from)
	assert.Equal(t, bob, calls[0].owner, "hook observed pre-transfer state")

	// Failed transfers fire no hooks.
	require.Error(t, r.Transfer(ctx, id, alice, bob))
	assert.Len(t, calls, 1)
}

func TestMemoryRegistryRestore(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	alice := testAddr(1)
	bob := testAddr(2)

	_, err := r.Mint(ctx, alice)
	require.NoError(t, err)

	r.Restore(map[types.TokenID]types.Address{
		4: alice,
		9: bob,
		5: types.ZeroAddress,
	})

	assert.Equal(t, 2, r.TokenCount(), "zero-address records must be dropped")

	owner, err := r.OwnerOf(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
	_, err = r.OwnerOf(ctx, 1)
	require.ErrorIs(t, err, ErrUnknownToken, "restore must replace prior state")

	// The mint cursor resumes past the highest restored ID.
	id, err := r.Mint(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 10, id)
}

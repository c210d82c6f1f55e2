package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/crypto"
)

func testAddr(b byte) types.Address {
	return crypto.EncodeAddress([20]byte{b})
}

func TestKeyletDerivation(t *testing.T) {
	alice := testAddr(1)
	bob := testAddr(2)

	// Deterministic per input.
	assert.Equal(t, ListingKeylet(7), ListingKeylet(7))
	assert.Equal(t, EscrowKeylet(alice), EscrowKeylet(alice))
	assert.Equal(t, FeesKeylet(), FeesKeylet())
	assert.Equal(t, SequenceKeylet(), SequenceKeylet())

	// Distinct per input and per namespace.
	assert.NotEqual(t, ListingKeylet(7).Key, ListingKeylet(8).Key)
	assert.NotEqual(t, EscrowKeylet(alice).Key, EscrowKeylet(bob).Key)
	assert.NotEqual(t, FeesKeylet().Key, SequenceKeylet().Key)

	keys := map[Key]bool{
		ListingKeylet(1).Key:    true,
		EscrowKeylet(alice).Key: true,
		FeesKeylet().Key:        true,
		SequenceKeylet().Key:    true,
	}
	assert.Len(t, keys, 4, "namespaces collided")
}

func TestKeyletOf(t *testing.T) {
	alice := testAddr(1)

	assert.Equal(t, ListingKeylet(3), KeyletOf(&Listing{TokenID: 3, Seller: alice, Price: 10}))
	assert.Equal(t, EscrowKeylet(alice), KeyletOf(&Escrow{Account: alice, Balance: 5}))
	assert.Equal(t, FeesKeylet(), KeyletOf(&Fees{ListingFee: 1}))
	assert.Equal(t, SequenceKeylet(), KeyletOf(&Sequence{NextEvent: 9}))
}

func TestLedgerCRUD(t *testing.T) {
	l := NewLedger()
	alice := testAddr(1)
	k := ListingKeylet(1)

	ok, err := l.Exists(k)
	require.NoError(t, err)
	assert.False(t, ok)

	e, err := l.Read(k)
	require.NoError(t, err)
	assert.Nil(t, e)

	require.NoError(t, l.Insert(k, &Listing{TokenID: 1, Seller: alice, Price: 100}))
	require.ErrorIs(t, l.Insert(k, &Listing{TokenID: 1, Seller: alice, Price: 200}), ErrEntryExists)

	e, err = l.Read(k)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.EqualValues(t, 100, e.(*Listing).Price)

	require.NoError(t, l.Update(k, &Listing{TokenID: 1, Seller: alice, Price: 150}))
	e, err = l.Read(k)
	require.NoError(t, err)
	assert.EqualValues(t, 150, e.(*Listing).Price)

	require.NoError(t, l.Erase(k))
	require.ErrorIs(t, l.Erase(k), ErrEntryNotFound)
	require.ErrorIs(t, l.Update(k, &Listing{TokenID: 1, Seller: alice}), ErrEntryNotFound)
}

func TestLedgerReadReturnsCopy(t *testing.T) {
	l := NewLedger()
	alice := testAddr(1)
	k := ListingKeylet(1)
	require.NoError(t, l.Insert(k, &Listing{TokenID: 1, Seller: alice, Price: 100}))

	e, err := l.Read(k)
	require.NoError(t, err)
	e.(*Listing).Price = 999

	e, err = l.Read(k)
	require.NoError(t, err)
	assert.EqualValues(t, 100, e.(*Listing).Price, "mutation of a read copy leaked into the ledger")
}

func TestLedgerInsertClonesInput(t *testing.T) {
	l := NewLedger()
	alice := testAddr(1)
	in := &Listing{TokenID: 1, Seller: alice, Price: 100}
	require.NoError(t, l.Insert(ListingKeylet(1), in))

	in.Price = 999

	e, err := l.Read(ListingKeylet(1))
	require.NoError(t, err)
	assert.EqualValues(t, 100, e.(*Listing).Price, "mutation of the inserted value leaked into the ledger")
}

func TestLedgerQueries(t *testing.T) {
	l := NewLedger()
	alice := testAddr(1)
	bob := testAddr(2)

	// Zero values before any entry exists.
	_, ok := l.Listing(1)
	assert.False(t, ok)
	assert.EqualValues(t, 0, l.EscrowBalance(alice))
	assert.EqualValues(t, 0, l.ListingFee())
	assert.EqualValues(t, 1, l.NextEventSeq())

	require.NoError(t, l.Insert(ListingKeylet(2), &Listing{TokenID: 2, Seller: bob, Price: 50}))
	require.NoError(t, l.Insert(ListingKeylet(1), &Listing{TokenID: 1, Seller: alice, Price: 100}))
	require.NoError(t, l.Insert(EscrowKeylet(alice), &Escrow{Account: alice, Balance: 77}))
	require.NoError(t, l.Insert(FeesKeylet(), &Fees{ListingFee: 3}))
	require.NoError(t, l.Insert(SequenceKeylet(), &Sequence{NextEvent: 42}))

	listing, ok := l.Listing(1)
	require.True(t, ok)
	assert.Equal(t, alice, listing.Seller)

	listings := l.Listings()
	require.Len(t, listings, 2)
	assert.EqualValues(t, 1, listings[0].TokenID, "listings not ordered by token ID")
	assert.EqualValues(t, 2, listings[1].TokenID)

	assert.EqualValues(t, 77, l.EscrowBalance(alice))
	assert.EqualValues(t, 0, l.EscrowBalance(bob))
	assert.EqualValues(t, 3, l.ListingFee())
	assert.EqualValues(t, 42, l.NextEventSeq())
}

func TestLedgerSnapshotRestore(t *testing.T) {
	l := NewLedger()
	alice := testAddr(1)

	require.NoError(t, l.Insert(ListingKeylet(1), &Listing{TokenID: 1, Seller: alice, Price: 100}))
	require.NoError(t, l.Insert(EscrowKeylet(alice), &Escrow{Account: alice, Balance: 5}))
	require.NoError(t, l.Insert(FeesKeylet(), &Fees{ListingFee: 2}))
	require.NoError(t, l.Insert(SequenceKeylet(), &Sequence{NextEvent: 10}))

	snap := l.Snapshot()
	require.Len(t, snap, 4)

	// Deterministic order: two snapshots of the same state agree.
	again := l.Snapshot()
	assert.Equal(t, snap, again)

	restored := NewLedger()
	restored.Restore(snap)

	listing, ok := restored.Listing(1)
	require.True(t, ok)
	assert.EqualValues(t, 100, listing.Price)
	assert.EqualValues(t, 5, restored.EscrowBalance(alice))
	assert.EqualValues(t, 2, restored.ListingFee())
	assert.EqualValues(t, 10, restored.NextEventSeq())

	// Restore replaces, not merges.
	replaced := NewLedger()
	replaced.Restore([]Entry{&Fees{ListingFee: 9}})
	replaced.Restore(snap)
	assert.EqualValues(t, 2, replaced.ListingFee())
}

package tx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarketd/internal/bank"
	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/crypto"
	"github.com/LeJamon/goMarketd/internal/registry"
)

// A signed transaction applies when the signing key matches the account,
// and preflight rejects key/account mismatches before touching state.
func TestSignedTransactionAuthorization(t *testing.T) {
	kp, err := crypto.NewKeypair()
	require.NoError(t, err)
	seller := kp.Address()

	m := newMarketTest(t)
	token := m.mint(seller)
	m.fund(seller, 100)

	txn := NewList(seller, token, 500, 10)
	require.NoError(t, Sign(txn, kp))
	require.NoError(t, Verify(txn))

	m.requireApplied(m.apply(txn))
	m.requireListing(token, seller, 500)

	t.Run("key of another account", func(t *testing.T) {
		other, err := crypto.NewKeypair()
		require.NoError(t, err)

		forged := NewCancel(seller, token)
		require.NoError(t, Sign(forged, other))
		// The signature itself verifies; the key is just not the
		// account's.
		require.NoError(t, Verify(forged))
		m.requireFailed(m.apply(forged), TefBAD_AUTH)
		m.requireListing(token, seller, 500)
	})

	t.Run("malformed public key", func(t *testing.T) {
		txn := NewCancel(seller, token)
		txn.SigningPubKey = "zz"
		m.requireFailed(m.apply(txn), TemBAD_SIGNATURE)
	})
}

func TestUnknownTransactionTypeRejected(t *testing.T) {
	m := newMarketTest(t)
	txn := &Cancel{BaseTx: *NewBaseTx(Type("Bogus"), string(alice)), TokenID: 1}
	m.requireFailed(m.apply(txn), TemUNKNOWN_TYPE)
}

// A fresh ledger gets the fee and event-sequence entries seeded; a ledger
// restored from a snapshot keeps its own.
func TestGenesisSeeding(t *testing.T) {
	ledger := state.NewLedger()
	engine := NewEngine(ledger, registry.NewMemoryRegistry(), bank.NewMemoryBank(), EngineConfig{Operator: operator, InitialFee: 10})
	assert.Equal(t, types.Amount(10), engine.CurrentFee())
	assert.Equal(t, uint64(1), ledger.NextEventSeq())

	res := engine.Apply(context.Background(), NewSetFee(operator, 25))
	require.Equal(t, TesSUCCESS, res.Result)

	restored := state.NewLedger()
	restored.Restore(ledger.Snapshot())
	engine2 := NewEngine(restored, registry.NewMemoryRegistry(), bank.NewMemoryBank(), EngineConfig{Operator: operator, InitialFee: 10})
	assert.Equal(t, types.Amount(25), engine2.CurrentFee(), "snapshot fee must survive re-seeding")
	assert.Equal(t, uint64(2), restored.NextEventSeq())
}

func TestStatsCounters(t *testing.T) {
	m := newMarketTest(t)
	token := m.mint(alice)
	m.fund(alice, 100)

	m.requireApplied(m.apply(NewList(alice, token, 500, 10)))
	m.requireFailed(m.apply(NewList(alice, token, 500, 10)), TefALREADY_LISTED)
	m.requireFailed(m.apply(NewWithdraw(bob)), TefNOTHING_TO_WITHDRAW)

	stats := m.engine.Stats()
	assert.Equal(t, uint64(1), stats.Applied)
	assert.Equal(t, uint64(2), stats.Failed)
}

func TestApplyResultCarriesHashAndEvents(t *testing.T) {
	m := newMarketTest(t)
	token := m.mint(alice)
	m.fund(alice, 100)

	txn := NewList(alice, token, 500, 10)
	wantHash, err := ComputeHash(txn)
	require.NoError(t, err)

	res := m.apply(txn)
	m.requireApplied(res)
	assert.Equal(t, wantHash, res.TxHash)
	assert.NotEmpty(t, res.Message)
	require.Len(t, res.Events, 1)
}

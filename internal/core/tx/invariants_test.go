package tx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/types"
)

// totalValue sums committed value over the given accounts: bank balances
// plus pending withdrawals. No operation may create or destroy value, only
// move it between the two.
func (m *marketTest) totalValue(accounts ...types.Address) types.Amount {
	var total types.Amount
	for _, a := range accounts {
		total += m.bank.BalanceOf(a)
		total += m.engine.PendingWithdrawal(a)
	}
	return total
}

// Value is conserved across a mixed run of successful and failing
// operations: everything debited is either withdrawable or refunded.
func TestValueConservation(t *testing.T) {
	m := newMarketTest(t)
	accounts := []types.Address{operator, alice, bob, carol}

	m.fund(alice, 1000)
	m.fund(bob, 2000)
	m.fund(carol, 1500)
	const total = types.Amount(4500)

	t1 := m.mint(alice)
	t2 := m.mint(carol)

	steps := []struct {
		name string
		run  func() ApplyResult
		want Result
	}{
		{"alice lists exact fee", func() ApplyResult { return m.apply(NewList(alice, t1, 500, 10)) }, TesSUCCESS},
		{"carol lists with excess fee", func() ApplyResult { return m.apply(NewList(carol, t2, 800, 40)) }, TesSUCCESS},
		{"bob buys with overpayment", func() ApplyResult { return m.apply(NewBuy(bob, t1, 600)) }, TesSUCCESS},
		{"alice withdraws proceeds", func() ApplyResult { return m.apply(NewWithdraw(alice)) }, TesSUCCESS},
		{"operator raises the fee", func() ApplyResult { return m.apply(NewSetFee(operator, 25)) }, TesSUCCESS},
		{"stale fee is rejected", func() ApplyResult { return m.apply(NewList(bob, t1, 300, 10)) }, TefINSUFFICIENT_FEE},
		{"bob lists his purchase", func() ApplyResult { return m.apply(NewList(bob, t1, 300, 25)) }, TesSUCCESS},
		{"bob buys carol's token", func() ApplyResult { return m.apply(NewBuy(bob, t2, 800)) }, TesSUCCESS},
		{"carol withdraws proceeds", func() ApplyResult { return m.apply(NewWithdraw(carol)) }, TesSUCCESS},
		{"operator withdraws fees", func() ApplyResult { return m.apply(NewWithdraw(operator)) }, TesSUCCESS},
		{"second operator withdraw fails", func() ApplyResult { return m.apply(NewWithdraw(operator)) }, TefNOTHING_TO_WITHDRAW},
		{"underfunded buy fails", func() ApplyResult { return m.apply(NewBuy(carol, t1, 2500)) }, TecINSUFFICIENT_FUNDS},
		{"buy of unlisted token fails", func() ApplyResult { return m.apply(NewBuy(carol, t2, 900)) }, TefNOT_LISTED},
	}

	for _, step := range steps {
		res := step.run()
		require.Equal(t, step.want, res.Result, "%s: got %s: %s", step.name, res.Result, res.Message)
		require.Equal(t, total, m.totalValue(accounts...), "value not conserved after %q", step.name)
	}
}

// Event sequence numbers are contiguous from 1 across operations, in
// commit order, and failed operations leave no trace in the stream.
func TestEventSequenceContiguous(t *testing.T) {
	m := newMarketTest(t)
	t1 := m.mint(alice)
	m.fund(alice, 100)
	m.fund(bob, 900)

	m.requireApplied(m.apply(NewList(alice, t1, 500, 10))) // Listed
	m.requireFailed(m.apply(NewBuy(bob, t1, 100)), TefINSUFFICIENT_PAYMENT)
	m.requireApplied(m.apply(NewSetFee(operator, 20))) // FeeChanged
	m.requireFailed(m.apply(NewSetFee(bob, 30)), TefNO_PERMISSION)
	m.requireApplied(m.apply(NewBuy(bob, t1, 500))) // Sold

	require.Len(t, m.events.evs, 3)
	wantTypes := []events.Type{events.TypeListed, events.TypeFeeChanged, events.TypeSold}
	for i, ev := range m.events.evs {
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.Equal(t, wantTypes[i], ev.Type)
		assert.Equal(t, testTime, ev.Time)
	}
	assert.Equal(t, uint64(4), m.ledger.NextEventSeq())
}

// The full life of a token on the market: listed, fee raised mid-flight,
// sold with overpayment, proceeds and fees withdrawn. Terms are fixed at
// listing time, so the fee raise does not touch the already-listed token.
func TestMarketplaceLifecycle(t *testing.T) {
	m := newMarketTest(t)
	token := m.mint(alice)
	m.fund(alice, 50)
	m.fund(bob, 1000)

	m.requireApplied(m.apply(NewList(alice, token, 400, 10)))
	m.requireApplied(m.apply(NewSetFee(operator, 35)))
	m.requireApplied(m.apply(NewBuy(bob, token, 450)))
	m.requireApplied(m.apply(NewWithdraw(alice)))
	m.requireApplied(m.apply(NewWithdraw(operator)))

	// Final balances: alice paid 10 fee and earned 400; bob paid exactly
	// the price; the operator collected the old fee.
	assert.Equal(t, types.Amount(440), m.bank.BalanceOf(alice))
	assert.Equal(t, types.Amount(600), m.bank.BalanceOf(bob))
	assert.Equal(t, types.Amount(10), m.bank.BalanceOf(operator))
	m.requireOwner(token, bob)
	m.requireNotListed(token)

	wantTypes := []events.Type{events.TypeListed, events.TypeFeeChanged, events.TypeSold}
	require.Len(t, m.events.evs, len(wantTypes))
	for i, ev := range m.events.evs {
		assert.Equal(t, wantTypes[i], ev.Type)
	}
}

// A rockier passage: rejected attempts, an off-market transfer that
// invalidates the listing through the notification hook, a relist by the
// new owner, and a sale. Listings and ownership stay coherent throughout.
func TestMarketplaceAdversity(t *testing.T) {
	m := newMarketTest(t)
	token := m.mint(alice)
	m.fund(alice, 500)
	m.fund(bob, 500)
	m.fund(carol, 800)

	// A mispriced attempt, then a real listing.
	m.requireFailed(m.apply(NewList(alice, token, 0, 10)), TemINVALID_PRICE)
	m.requireApplied(m.apply(NewList(alice, token, 300, 10)))

	// Alice hands the token to bob outside the market. The notification
	// invalidates the listing.
	require.NoError(t, m.registry.Transfer(context.Background(), token, alice, bob))
	m.requireNotListed(token)
	require.Len(t, m.events.ofType(events.TypeCancelled), 1)

	// The old seller cannot relist what is no longer hers.
	m.requireFailed(m.apply(NewList(alice, token, 300, 10)), TefNOT_OWNER)

	// The new owner lists and carol buys with change.
	m.requireApplied(m.apply(NewList(bob, token, 250, 10)))
	m.requireApplied(m.apply(NewBuy(carol, token, 300)))
	m.requireOwner(token, carol)
	assert.Equal(t, types.Amount(550), m.bank.BalanceOf(carol))
	assert.Equal(t, types.Amount(250), m.engine.PendingWithdrawal(bob))

	// One withdraw succeeds, the second finds nothing.
	m.requireApplied(m.apply(NewWithdraw(bob)))
	m.requireFailed(m.apply(NewWithdraw(bob)), TefNOTHING_TO_WITHDRAW)
	assert.Equal(t, types.Amount(740), m.bank.BalanceOf(bob))

	// Every listing that remains belongs to the token's current owner.
	for _, listing := range m.engine.Listings() {
		owner, err := m.registry.OwnerOf(context.Background(), listing.TokenID)
		require.NoError(t, err)
		assert.Equal(t, owner, listing.Seller, "listing for %s is stale", listing.TokenID)
	}
}

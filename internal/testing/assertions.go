package testing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/tx"
	"github.com/LeJamon/goMarketd/internal/core/types"
)

// RequireApplied asserts that a transaction was applied successfully.
func RequireApplied(t *testing.T, res tx.ApplyResult) {
	t.Helper()
	require.True(t, res.Applied,
		"expected transaction to apply, got %s: %s", res.Result, res.Message)
	require.Equal(t, tx.TesSUCCESS, res.Result,
		"expected tesSUCCESS, got %s: %s", res.Result, res.Message)
}

// RequireResult asserts that a transaction finished with the given
// result code.
func RequireResult(t *testing.T, res tx.ApplyResult, expected tx.Result) {
	t.Helper()
	require.Equal(t, expected, res.Result,
		"expected %s, got %s: %s", expected, res.Result, res.Message)
}

// RequireBalance asserts an account's bank balance.
func RequireBalance(t *testing.T, env *TestEnv, acc *Account, expected types.Amount) {
	t.Helper()
	actual := env.Balance(acc)
	require.Equal(t, expected, actual,
		"account %s balance mismatch: expected %d, got %d", acc.Name, expected, actual)
}

// RequirePending asserts an account's withdrawable escrow balance.
func RequirePending(t *testing.T, env *TestEnv, acc *Account, expected types.Amount) {
	t.Helper()
	actual := env.Pending(acc)
	require.Equal(t, expected, actual,
		"account %s pending withdrawal mismatch: expected %d, got %d", acc.Name, expected, actual)
}

// RequireOwner asserts the registry's current owner of a token.
func RequireOwner(t *testing.T, env *TestEnv, tokenID types.TokenID, acc *Account) {
	t.Helper()
	owner := env.OwnerOf(tokenID)
	require.Equal(t, acc.Address, owner,
		"token %s owner mismatch: expected %s (%s), got %s", tokenID, acc.Name, acc.Address, owner)
}

// RequireListed asserts that a token is listed at the given price by
// the given seller.
func RequireListed(t *testing.T, env *TestEnv, tokenID types.TokenID, seller *Account, price types.Amount) {
	t.Helper()
	listing, ok := env.Listing(tokenID)
	require.True(t, ok, "expected token %s to be listed", tokenID)
	require.Equal(t, seller.Address, listing.Seller,
		"token %s seller mismatch: expected %s, got %s", tokenID, seller.Name, listing.Seller)
	require.Equal(t, price, listing.Price,
		"token %s price mismatch: expected %d, got %d", tokenID, price, listing.Price)
}

// RequireNotListed asserts that a token has no committed listing.
func RequireNotListed(t *testing.T, env *TestEnv, tokenID types.TokenID) {
	t.Helper()
	_, ok := env.Listing(tokenID)
	require.False(t, ok, "expected token %s to not be listed", tokenID)
}

// RequireEventTypes asserts the exact sequence of committed event
// types in a transaction result.
func RequireEventTypes(t *testing.T, res tx.ApplyResult, expected ...events.Type) {
	t.Helper()
	actual := make([]events.Type, 0, len(res.Events))
	for _, ev := range res.Events {
		actual = append(actual, ev.Type)
	}
	require.Equal(t, expected, actual, "committed event types mismatch")
}

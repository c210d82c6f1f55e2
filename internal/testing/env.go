package testing

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarketd/internal/bank"
	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/tx"
	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/registry"
)

// TestEnv is a complete standalone market for tests: the engine wired
// to an in-memory bank, an in-memory registry, and a manual clock.
type TestEnv struct {
	t *testing.T

	Engine   *tx.Engine
	Ledger   *state.Ledger
	Bank     *bank.MemoryBank
	Registry *registry.MemoryRegistry
	Clock    *ManualClock

	// Operator is the account allowed to change the listing fee, nil
	// when the environment was built without one.
	Operator *Account

	accounts map[string]*Account
}

// NewTestEnv creates an environment with an operator account and a
// zero initial listing fee.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	operator := NewAccount("operator")
	return NewTestEnvWithConfig(t, tx.EngineConfig{Operator: operator.Address})
}

// NewTestEnvWithConfig creates an environment with explicit engine
// parameters. A zero-value Operator runs the market operator-less.
func NewTestEnvWithConfig(t *testing.T, cfg tx.EngineConfig) *TestEnv {
	t.Helper()

	env := &TestEnv{
		t:        t,
		Ledger:   state.NewLedger(),
		Bank:     bank.NewMemoryBank(),
		Registry: registry.NewMemoryRegistry(),
		Clock:    NewManualClock(),
		accounts: make(map[string]*Account),
	}
	env.Engine = tx.NewEngine(env.Ledger, env.Registry, env.Bank, cfg,
		tx.WithClock(env.Clock),
		tx.WithLogger(zap.NewNop()),
	)
	// Standard standalone wiring: external transfers invalidate listings.
	env.Registry.RegisterTransferHook(env.Engine.OnOwnershipChanged)

	if !cfg.Operator.IsZero() {
		// Register the operator under its conventional name so
		// env.Account("operator") finds it.
		op := NewAccount("operator")
		if op.Address == cfg.Operator {
			env.accounts[op.Name] = op
			env.Operator = op
		}
	}
	return env
}

// Account returns the named account, deriving and caching it on first
// use. The account starts with no funds and no tokens.
func (env *TestEnv) Account(name string) *Account {
	if acc, ok := env.accounts[name]; ok {
		return acc
	}
	acc := NewAccount(name)
	env.accounts[name] = acc
	return acc
}

// FundedAccount returns the named account with the given balance
// added to it.
func (env *TestEnv) FundedAccount(name string, amount types.Amount) *Account {
	env.t.Helper()
	acc := env.Account(name)
	env.Fund(acc, amount)
	return acc
}

// Fund adds funds to an account's bank balance.
func (env *TestEnv) Fund(acc *Account, amount types.Amount) {
	env.t.Helper()
	if err := env.Bank.Fund(acc.Address, amount); err != nil {
		env.t.Fatalf("funding %s with %d failed: %v", acc.Name, amount, err)
	}
}

// MintToken mints a fresh token owned by the given account and returns
// its ID.
func (env *TestEnv) MintToken(owner *Account) types.TokenID {
	env.t.Helper()
	id, err := env.Registry.Mint(context.Background(), owner.Address)
	if err != nil {
		env.t.Fatalf("minting token for %s failed: %v", owner.Name, err)
	}
	return id
}

// Apply runs one transaction through the engine.
func (env *TestEnv) Apply(txn tx.Transaction) tx.ApplyResult {
	env.t.Helper()
	return env.Engine.Apply(context.Background(), txn)
}

// Balance returns the account's bank balance.
func (env *TestEnv) Balance(acc *Account) types.Amount {
	return env.Bank.BalanceOf(acc.Address)
}

// Pending returns the account's withdrawable escrow balance.
func (env *TestEnv) Pending(acc *Account) types.Amount {
	return env.Engine.PendingWithdrawal(acc.Address)
}

// OwnerOf returns the current owner of a token. It fails the test for
// a token the registry does not know.
func (env *TestEnv) OwnerOf(tokenID types.TokenID) types.Address {
	env.t.Helper()
	owner, err := env.Registry.OwnerOf(context.Background(), tokenID)
	if err != nil {
		env.t.Fatalf("owner of token %s: %v", tokenID, err)
	}
	return owner
}

// Listing returns the committed listing for a token, if any.
func (env *TestEnv) Listing(tokenID types.TokenID) (*state.Listing, bool) {
	return env.Engine.Listing(tokenID)
}

// Fee returns the committed listing fee.
func (env *TestEnv) Fee() types.Amount {
	return env.Engine.CurrentFee()
}

// AdvanceTime moves the environment clock forward, giving later events
// a distinguishable timestamp.
func (env *TestEnv) AdvanceTime(d time.Duration) {
	env.Clock.Advance(d)
}

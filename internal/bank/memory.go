package bank

import (
	"context"
	"sort"
	"sync"

	"github.com/LeJamon/goMarketd/internal/core/types"
)

// MemoryBank is the balance-backed bank used by the standalone daemon
// and by tests. Balances are unsigned; a debit that would overdraw
// fails with ErrInsufficientFunds and changes nothing.
type MemoryBank struct {
	mu       sync.RWMutex
	balances map[types.Address]types.Amount
}

// NewMemoryBank creates a bank with no funded accounts.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{
		balances: make(map[types.Address]types.Amount),
	}
}

// Fund adds funds to an account. Used at genesis and by the faucet
// surface; not part of the Bank interface the engine sees.
func (b *MemoryBank) Fund(account types.Address, amount types.Amount) error {
	if account.IsZero() {
		return ErrInvalidAccount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] += amount
	return nil
}

// Debit implements Bank.
func (b *MemoryBank) Debit(_ context.Context, account types.Address, amount types.Amount) error {
	if account.IsZero() {
		return ErrInvalidAccount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[account] < amount {
		return ErrInsufficientFunds
	}
	b.balances[account] -= amount
	if b.balances[account] == 0 {
		delete(b.balances, account)
	}
	return nil
}

// Credit implements Bank.
func (b *MemoryBank) Credit(_ context.Context, account types.Address, amount types.Amount) error {
	if account.IsZero() {
		return ErrInvalidAccount
	}
	if amount == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] += amount
	return nil
}

// BalanceOf implements Bank.
func (b *MemoryBank) BalanceOf(account types.Address) types.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[account]
}

// Balance is an account's funds, as persisted in checkpoints.
type Balance struct {
	Account types.Address `codec:"account" json:"account"`
	Amount  types.Amount  `codec:"amount" json:"amount"`
}

// Snapshot returns all non-zero balances ordered by account.
func (b *MemoryBank) Snapshot() []Balance {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Balance, 0, len(b.balances))
	for account, amount := range b.balances {
		out = append(out, Balance{Account: account, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

// Restore replaces all balances with the given snapshot.
func (b *MemoryBank) Restore(balances []Balance) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances = make(map[types.Address]types.Amount, len(balances))
	for _, bal := range balances {
		if bal.Amount > 0 {
			b.balances[bal.Account] = bal.Amount
		}
	}
}

var _ Bank = (*MemoryBank)(nil)

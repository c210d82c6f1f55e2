package registry

import (
	"context"
	"sync"

	"github.com/LeJamon/goMarketd/internal/core/types"
)

// MemoryRegistry is the in-memory ownership registry used by the
// standalone daemon and by tests. It fires registered transfer hooks
// synchronously after each completed transfer, outside its own lock, so
// hooks are free to call back into the registry.
type MemoryRegistry struct {
	mu     sync.RWMutex
	owners map[types.TokenID]types.Address
	nextID types.TokenID
	hooks  []TransferHook
}

// NewMemoryRegistry creates an empty registry. The first minted token
// gets ID 1.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		owners: make(map[types.TokenID]types.Address),
		nextID: 1,
	}
}

// Mint creates a new token owned by the given account and returns its ID.
func (r *MemoryRegistry) Mint(_ context.Context, owner types.Address) (types.TokenID, error) {
	if owner.IsZero() {
		return 0, ErrNotTokenOwner
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.owners[id] = owner
	return id, nil
}

// OwnerOf implements Registry.
func (r *MemoryRegistry) OwnerOf(_ context.Context, tokenID types.TokenID) (types.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[tokenID]
	if !ok {
		return types.ZeroAddress, ErrUnknownToken
	}
	return owner, nil
}

// Transfer implements Registry. The ownership change is committed
// before any hook runs; hooks observe the post-transfer state.
func (r *MemoryRegistry) Transfer(ctx context.Context, tokenID types.TokenID, from, to types.Address) error {
	if to.IsZero() {
		return ErrNotTokenOwner
	}

	r.mu.Lock()
	owner, ok := r.owners[tokenID]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownToken
	}
	if owner != from {
		r.mu.Unlock()
		return ErrNotTokenOwner
	}
	if from == to {
		r.mu.Unlock()
		return ErrSameOwner
	}
	r.owners[tokenID] = to
	hooks := make([]TransferHook, len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, tokenID, from)
	}
	return nil
}

// RegisterTransferHook implements Registry.
func (r *MemoryRegistry) RegisterTransferHook(hook TransferHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// TokenCount returns the number of minted tokens.
func (r *MemoryRegistry) TokenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

// Restore replaces all ownership records with the given snapshot and
// moves the mint cursor past the highest restored ID. Used when the
// standalone daemon reseeds the registry from persisted listings at
// boot.
func (r *MemoryRegistry) Restore(owners map[types.TokenID]types.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners = make(map[types.TokenID]types.Address, len(owners))
	r.nextID = 1
	for id, owner := range owners {
		if owner.IsZero() {
			continue
		}
		r.owners[id] = owner
		if id >= r.nextID {
			r.nextID = id + 1
		}
	}
}

var (
	_ Registry = (*MemoryRegistry)(nil)
	_ Minter   = (*MemoryRegistry)(nil)
)

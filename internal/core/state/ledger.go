package state

import (
	"sort"
	"sync"

	"github.com/LeJamon/goMarketd/internal/core/types"
)

// Ledger is the committed marketplace state: listings, escrow balances,
// the fee configuration, and the event sequence counter. It implements
// View; transactions never write it directly, they run in a Table
// overlay that commits here on success.
//
// Ledger methods are safe for concurrent use. Writers are expected to
// be serialized by the engine; the internal lock protects concurrent
// readers (queries) against the committing writer.
type Ledger struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[Key]Entry),
	}
}

// Exists implements View.
func (l *Ledger) Exists(k Keylet) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[k.Key]
	return ok, nil
}

// Read implements View. The returned entry is a copy.
func (l *Ledger) Read(k Keylet) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[k.Key]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

// Insert implements View.
func (l *Ledger) Insert(k Keylet, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[k.Key]; ok {
		return ErrEntryExists
	}
	l.entries[k.Key] = e.Clone()
	return nil
}

// Update implements View.
func (l *Ledger) Update(k Keylet, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[k.Key]; !ok {
		return ErrEntryNotFound
	}
	l.entries[k.Key] = e.Clone()
	return nil
}

// Erase implements View.
func (l *Ledger) Erase(k Keylet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[k.Key]; !ok {
		return ErrEntryNotFound
	}
	delete(l.entries, k.Key)
	return nil
}

// ForEach implements View. The callback receives entry copies.
func (l *Ledger) ForEach(fn func(k Key, e Entry) bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for k, e := range l.entries {
		if !fn(k, e.Clone()) {
			return nil
		}
	}
	return nil
}

// Listing returns the live listing for a token, or false if the token
// is not listed.
func (l *Ledger) Listing(tokenID types.TokenID) (*Listing, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[ListingKeylet(tokenID).Key]
	if !ok {
		return nil, false
	}
	listing, ok := e.(*Listing)
	if !ok {
		return nil, false
	}
	c := *listing
	return &c, true
}

// Listings returns all live listings ordered by token ID.
func (l *Ledger) Listings() []*Listing {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Listing, 0)
	for _, e := range l.entries {
		if listing, ok := e.(*Listing); ok {
			c := *listing
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

// EscrowBalance returns the pending withdrawal balance for an account.
// Accounts with no escrow entry have a zero balance.
func (l *Ledger) EscrowBalance(account types.Address) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[EscrowKeylet(account).Key]
	if !ok {
		return 0
	}
	escrow, ok := e.(*Escrow)
	if !ok {
		return 0
	}
	return escrow.Balance
}

// ListingFee returns the current flat listing fee.
func (l *Ledger) ListingFee() types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[FeesKeylet().Key]
	if !ok {
		return 0
	}
	fees, ok := e.(*Fees)
	if !ok {
		return 0
	}
	return fees.ListingFee
}

// NextEventSeq returns the sequence number the next committed event
// will carry.
func (l *Ledger) NextEventSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[SequenceKeylet().Key]
	if !ok {
		return 1
	}
	seq, ok := e.(*Sequence)
	if !ok {
		return 1
	}
	return seq.NextEvent
}

// Snapshot returns a copy of every entry, ordered by key. Used by the
// checkpoint writer for full snapshots.
func (l *Ledger) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]Key, 0, len(l.entries))
	for k := range l.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		for b := 0; b < len(keys[i]); b++ {
			if keys[i][b] != keys[j][b] {
				return keys[i][b] < keys[j][b]
			}
		}
		return false
	})
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, l.entries[k].Clone())
	}
	return out
}

// Restore replaces the ledger contents with the given entries, keyed by
// their canonical keylets. Used when reloading persisted state at boot.
func (l *Ledger) Restore(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[Key]Entry, len(entries))
	for _, e := range entries {
		l.entries[KeyletOf(e).Key] = e.Clone()
	}
}

package state

import (
	"bytes"
	"reflect"
	"sort"
)

// Action represents the type of modification to a ledger entry.
type Action int

const (
	// ActionCache means the entry was read but not modified.
	ActionCache Action = iota
	// ActionInsert means a new entry was created.
	ActionInsert
	// ActionModify means an existing entry was modified.
	ActionModify
	// ActionErase means an entry was deleted.
	ActionErase
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionCache:
		return "Cache"
	case ActionInsert:
		return "Insert"
	case ActionModify:
		return "Modify"
	case ActionErase:
		return "Erase"
	default:
		return "Unknown"
	}
}

// TrackedEntry represents a ledger entry being tracked for changes.
type TrackedEntry struct {
	Action   Action
	Original Entry // state at first read (nil for inserts)
	Current  Entry // working state (pre-deletion state for erases)
}

// Change describes one committed entry mutation. The Apply step returns
// the full change set so callers can persist, archive, or inspect
// exactly what a transaction touched.
type Change struct {
	Key    Key
	Type   EntryType
	Action Action
	Before Entry
	After  Entry
}

// Table wraps a base View and buffers all modifications until Apply.
// Discarding a Table instead of applying it rolls every buffered
// mutation back, which is what makes a failed transaction leave the
// ledger untouched. Tables nest: a Table is itself a View, so a nested
// operation triggered mid-transaction runs in a child Table whose
// effects merge into the parent only if the nested operation succeeds.
type Table struct {
	base  View
	items map[Key]*TrackedEntry
}

// NewTable creates a change-tracking overlay over the given base view.
func NewTable(base View) *Table {
	return &Table{
		base:  base,
		items: make(map[Key]*TrackedEntry),
	}
}

// Read reads an entry, tracking it as cached. The returned entry is a
// copy; callers persist mutations with Update.
func (t *Table) Read(k Keylet) (Entry, error) {
	if entry, exists := t.items[k.Key]; exists {
		if entry.Action == ActionErase {
			return nil, nil
		}
		return entry.Current.Clone(), nil
	}

	data, err := t.base.Read(k)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	t.items[k.Key] = &TrackedEntry{
		Action:   ActionCache,
		Original: data.Clone(),
		Current:  data,
	}
	return data.Clone(), nil
}

// Exists checks if an entry exists.
func (t *Table) Exists(k Keylet) (bool, error) {
	if entry, exists := t.items[k.Key]; exists {
		return entry.Action != ActionErase, nil
	}
	return t.base.Exists(k)
}

// Insert adds a new entry.
func (t *Table) Insert(k Keylet, e Entry) error {
	if entry, exists := t.items[k.Key]; exists {
		if entry.Action != ActionErase {
			return ErrEntryExists
		}
		// Re-inserting a deleted entry becomes a modify.
		entry.Action = ActionModify
		entry.Current = e.Clone()
		return nil
	}

	exists, err := t.base.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return ErrEntryExists
	}

	t.items[k.Key] = &TrackedEntry{
		Action:  ActionInsert,
		Current: e.Clone(),
	}
	return nil
}

// Update modifies an existing entry.
func (t *Table) Update(k Keylet, e Entry) error {
	if entry, exists := t.items[k.Key]; exists {
		if entry.Action == ActionErase {
			return ErrEntryNotFound
		}
		if entry.Action == ActionCache {
			entry.Action = ActionModify
		}
		// For insert, keep it as insert with new data.
		entry.Current = e.Clone()
		return nil
	}

	original, err := t.base.Read(k)
	if err != nil {
		return err
	}
	if original == nil {
		return ErrEntryNotFound
	}

	t.items[k.Key] = &TrackedEntry{
		Action:   ActionModify,
		Original: original.Clone(),
		Current:  e.Clone(),
	}
	return nil
}

// Erase removes an entry.
func (t *Table) Erase(k Keylet) error {
	if entry, exists := t.items[k.Key]; exists {
		if entry.Action == ActionErase {
			return ErrEntryNotFound
		}
		if entry.Action == ActionInsert {
			// Inserting then deleting = no change, remove from tracking.
			delete(t.items, k.Key)
			return nil
		}
		// Cache or Modify -> Erase. Current keeps the pre-deletion state.
		entry.Action = ActionErase
		return nil
	}

	original, err := t.base.Read(k)
	if err != nil {
		return err
	}
	if original == nil {
		return ErrEntryNotFound
	}

	t.items[k.Key] = &TrackedEntry{
		Action:   ActionErase,
		Original: original.Clone(),
		Current:  original,
	}
	return nil
}

// IsErased returns true if the entry at the given keylet has been
// erased in this overlay.
func (t *Table) IsErased(k Keylet) bool {
	if entry, exists := t.items[k.Key]; exists {
		return entry.Action == ActionErase
	}
	return false
}

// ForEach iterates over the overlay's view of state: base entries as
// overridden by buffered changes, plus buffered inserts.
func (t *Table) ForEach(fn func(k Key, e Entry) bool) error {
	visited := make(map[Key]bool, len(t.items))
	stop := false

	err := t.base.ForEach(func(k Key, e Entry) bool {
		visited[k] = true
		if entry, exists := t.items[k]; exists {
			if entry.Action == ActionErase {
				return true
			}
			e = entry.Current
		}
		if !fn(k, e.Clone()) {
			stop = true
			return false
		}
		return true
	})
	if err != nil || stop {
		return err
	}

	for k, entry := range t.items {
		if visited[k] || entry.Action == ActionErase || entry.Action == ActionCache {
			continue
		}
		if !fn(k, entry.Current.Clone()) {
			return nil
		}
	}
	return nil
}

// Apply commits all buffered changes to the base view and returns the
// change set, ordered by key for deterministic output. Cached reads and
// no-op modifies are skipped.
func (t *Table) Apply() ([]Change, error) {
	keys := make([]Key, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})

	changes := make([]Change, 0, len(keys))
	for _, key := range keys {
		entry := t.items[key]
		switch entry.Action {
		case ActionCache:
			continue

		case ActionInsert:
			if err := t.base.Insert(Keylet{Type: entry.Current.Type(), Key: key}, entry.Current); err != nil {
				return nil, err
			}
			changes = append(changes, Change{
				Key:    key,
				Type:   entry.Current.Type(),
				Action: ActionInsert,
				After:  entry.Current,
			})

		case ActionModify:
			if entriesEqual(entry.Original, entry.Current) {
				continue
			}
			if err := t.base.Update(Keylet{Type: entry.Current.Type(), Key: key}, entry.Current); err != nil {
				return nil, err
			}
			changes = append(changes, Change{
				Key:    key,
				Type:   entry.Current.Type(),
				Action: ActionModify,
				Before: entry.Original,
				After:  entry.Current,
			})

		case ActionErase:
			if err := t.base.Erase(Keylet{Type: entry.Current.Type(), Key: key}); err != nil {
				return nil, err
			}
			changes = append(changes, Change{
				Key:    key,
				Type:   entry.Current.Type(),
				Action: ActionErase,
				Before: entry.Original,
			})
		}
	}
	return changes, nil
}

// entriesEqual compares two entries structurally.
func entriesEqual(a, b Entry) bool {
	return reflect.DeepEqual(a, b)
}

package state

import "errors"

var (
	// ErrEntryExists is returned by Insert when an entry already lives
	// at the target keylet.
	ErrEntryExists = errors.New("entry already exists")
	// ErrEntryNotFound is returned by Update and Erase when no entry
	// lives at the target keylet.
	ErrEntryNotFound = errors.New("entry not found")
)

// View provides read/write access to ledger state. Both the committed
// Ledger and the change-tracking Table implement it, so transaction
// code is indifferent to whether it runs against committed state or an
// in-flight overlay.
//
// Read returns (nil, nil) when no entry lives at the keylet, and the
// returned entry is always a copy the caller may mutate freely;
// mutations become visible only through Update.
type View interface {
	Exists(k Keylet) (bool, error)
	Read(k Keylet) (Entry, error)
	Insert(k Keylet, e Entry) error
	Update(k Keylet, e Entry) error
	Erase(k Keylet) error
	ForEach(fn func(k Key, e Entry) bool) error
}

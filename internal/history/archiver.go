package history

import (
	"context"

	"github.com/google/uuid"

	"github.com/LeJamon/goMarketd/internal/core/events"
)

// Archiver feeds committed events into the archive. It satisfies the
// engine's archiver hook: every event is appended to the event table,
// and each Sold event additionally produces a sale row with a fresh
// identifier.
type Archiver struct {
	store Store
}

// NewArchiver creates an archiver writing through the given store.
func NewArchiver(store Store) *Archiver {
	return &Archiver{store: store}
}

// ArchiveEvent records one committed event.
func (a *Archiver) ArchiveEvent(ctx context.Context, ev events.Event) error {
	if err := a.store.SaveEvent(ctx, ev); err != nil {
		return err
	}

	if ev.Type != events.TypeSold {
		return nil
	}

	sale := &Sale{
		ID:         uuid.NewString(),
		TokenID:    ev.TokenID,
		Seller:     ev.Seller,
		Buyer:      ev.Buyer,
		Price:      ev.Price,
		EventSeq:   ev.Seq,
		OccurredAt: ev.Time,
	}
	return a.store.SaveSale(ctx, sale)
}

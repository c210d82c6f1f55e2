package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/history"
)

// newTestStore opens a sqlite archive in a temp directory.
func newTestStore(t *testing.T) *history.SQLStore {
	t.Helper()

	cfg := history.DefaultConfig()
	cfg.Driver = history.DriverSQLite
	cfg.DSN = filepath.Join(t.TempDir(), "history.db")

	store, err := history.NewSQLStore(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, store.Open(context.Background()))
	t.Cleanup(func() { store.Close() })

	return store
}

// saleAt builds a sale row committed at the given event sequence.
func saleAt(seq uint64, tokenID uint64, seller, buyer string, price uint64) *history.Sale {
	return &history.Sale{
		TokenID:    types.TokenID(tokenID),
		Seller:     types.Address(seller),
		Buyer:      types.Address(buyer),
		Price:      types.Amount(price),
		EventSeq:   seq,
		OccurredAt: time.Unix(1700000000+int64(seq), 0).UTC(),
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*history.Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *history.Config) {}},
		{name: "postgres", mutate: func(c *history.Config) { c.Driver = history.DriverPostgres; c.DSN = "postgres://localhost/market" }},
		{name: "missing driver", mutate: func(c *history.Config) { c.Driver = "" }, wantErr: "driver"},
		{name: "unknown driver", mutate: func(c *history.Config) { c.Driver = "mysql" }, wantErr: "unsupported driver"},
		{name: "missing dsn", mutate: func(c *history.Config) { c.DSN = "" }, wantErr: "dsn"},
		{name: "zero open conns", mutate: func(c *history.Config) { c.MaxOpenConns = 0 }, wantErr: "max_open_conns"},
		{name: "idle exceeds open", mutate: func(c *history.Config) { c.MaxOpenConns = 2; c.MaxIdleConns = 5 }, wantErr: "max_idle_conns"},
		{name: "zero timeout", mutate: func(c *history.Config) { c.QueryTimeout = 0 }, wantErr: "query_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := history.DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestStoreClosed(t *testing.T) {
	cfg := history.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "history.db")
	store, err := history.NewSQLStore(cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, store.Ping(ctx), history.ErrStoreClosed)
	assert.ErrorIs(t, store.SaveEvent(ctx, events.Event{}), history.ErrStoreClosed)
	_, err = store.RecentSales(ctx, 10)
	assert.ErrorIs(t, err, history.ErrStoreClosed)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	cfg := history.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "history.db")

	store, err := history.NewSQLStore(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, store.Open(ctx))

	sale := saleAt(1, 7, "alice", "bob", 500)
	require.NoError(t, store.SaveSale(ctx, sale))
	require.NoError(t, store.Close())

	store, err = history.NewSQLStore(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, store.Open(ctx))
	defer store.Close()

	count, err := store.SaleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSalesQueries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sales := []*history.Sale{
		saleAt(1, 7, "alice", "bob", 500),
		saleAt(2, 9, "carol", "alice", 1200),
		saleAt(3, 7, "bob", "carol", 650),
	}
	for _, sale := range sales {
		require.NoError(t, store.SaveSale(ctx, sale))
		assert.NotEmpty(t, sale.ID, "SaveSale should assign an ID")
		_, err := uuid.Parse(sale.ID)
		assert.NoError(t, err, "assigned ID should be a uuid")
	}

	t.Run("SaleByID", func(t *testing.T) {
		got, err := store.SaleByID(ctx, sales[1].ID)
		require.NoError(t, err)
		assert.Equal(t, *sales[1], *got)

		_, err = store.SaleByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, history.ErrSaleNotFound)
	})

	t.Run("RecentSales", func(t *testing.T) {
		got, err := store.RecentSales(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, uint64(3), got[0].EventSeq)
		assert.Equal(t, uint64(2), got[1].EventSeq)
	})

	t.Run("SalesByToken", func(t *testing.T) {
		got, err := store.SalesByToken(ctx, 7, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, uint64(3), got[0].EventSeq)
		assert.Equal(t, uint64(1), got[1].EventSeq)
	})

	t.Run("SalesByAccount", func(t *testing.T) {
		got, err := store.SalesByAccount(ctx, "alice", 10)
		require.NoError(t, err)
		require.Len(t, got, 2, "alice sold once and bought once")

		got, err = store.SalesByAccount(ctx, "dave", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("SaleCount", func(t *testing.T) {
		count, err := store.SaleCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}

func TestEventArchive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Unix(1700000000, 0).UTC()
	evs := []events.Event{
		{Seq: 1, Type: events.TypeListed, Time: base, TokenID: 7, Seller: "alice", Price: 500},
		{Seq: 2, Type: events.TypeSold, Time: base.Add(time.Minute), TokenID: 7, Seller: "alice", Buyer: "bob", Price: 500},
		{Seq: 3, Type: events.TypeFeeChanged, Time: base.Add(2 * time.Minute), NewFee: 25},
	}
	for _, ev := range evs {
		require.NoError(t, store.SaveEvent(ctx, ev))
	}

	// Replaying an already archived sequence must not fail or
	// duplicate the row.
	require.NoError(t, store.SaveEvent(ctx, evs[0]))

	t.Run("FullRange", func(t *testing.T) {
		got, err := store.EventsRange(ctx, 0, 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, evs, got)
	})

	t.Run("Bounded", func(t *testing.T) {
		got, err := store.EventsRange(ctx, 2, 2)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, events.TypeSold, got[0].Type)
	})

	t.Run("OpenEnded", func(t *testing.T) {
		got, err := store.EventsRange(ctx, 3, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, events.TypeFeeChanged, got[0].Type)
	})
}

func TestArchiverDerivesSales(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	archiver := history.NewArchiver(store)

	base := time.Unix(1700000000, 0).UTC()
	require.NoError(t, archiver.ArchiveEvent(ctx, events.Event{
		Seq: 1, Type: events.TypeListed, Time: base, TokenID: 7, Seller: "alice", Price: 500,
	}))

	count, err := store.SaleCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "a Listed event is not a sale")

	require.NoError(t, archiver.ArchiveEvent(ctx, events.Event{
		Seq: 2, Type: events.TypeSold, Time: base.Add(time.Minute),
		TokenID: 7, Seller: "alice", Buyer: "bob", Price: 500,
	}))

	sales, err := store.RecentSales(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, uint64(2), sales[0].EventSeq)
	assert.EqualValues(t, 7, sales[0].TokenID)
	assert.EqualValues(t, "alice", sales[0].Seller)
	assert.EqualValues(t, "bob", sales[0].Buyer)
	assert.EqualValues(t, 500, sales[0].Price)
	_, err = uuid.Parse(sales[0].ID)
	assert.NoError(t, err)

	archived, err := store.EventsRange(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, archived, 2, "the archiver stores every event")
}

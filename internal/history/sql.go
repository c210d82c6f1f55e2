package history

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/types"
)

// SQLStore implements Store on database/sql with the configured driver.
type SQLStore struct {
	db     *sql.DB
	config *Config
	log    *zap.Logger
}

// NewSQLStore creates a store from the configuration. Open must be
// called before use.
func NewSQLStore(config *Config, log *zap.Logger) (*SQLStore, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid history configuration: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLStore{config: config, log: log}, nil
}

// Open connects to the database and creates the schema if needed.
func (s *SQLStore) Open(ctx context.Context) error {
	db, err := sql.Open(s.config.Driver, s.config.DSN)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", s.config.Driver, err)
	}

	maxOpen := s.config.MaxOpenConns
	if s.config.Driver == DriverSQLite && maxOpen > 1 {
		// sqlite allows one writer; more connections just contend.
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(s.config.MaxIdleConns)
	db.SetConnMaxLifetime(s.config.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping %s database: %w", s.config.Driver, err)
	}

	s.db = db

	if err := s.initSchema(ctx); err != nil {
		s.db.Close()
		s.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.log.Info("history store opened",
		zap.String("driver", s.config.Driver))

	return nil
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Ping verifies the database connection is alive.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	ctx, cancel := s.queryContext(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// initSchema creates the archive tables and indexes.
func (s *SQLStore) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sales (
			sale_id     TEXT PRIMARY KEY,
			token_id    BIGINT NOT NULL,
			seller      TEXT NOT NULL,
			buyer       TEXT NOT NULL,
			price       BIGINT NOT NULL,
			event_seq   BIGINT NOT NULL,
			occurred_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_seq   BIGINT PRIMARY KEY,
			event_type  TEXT NOT NULL,
			token_id    BIGINT NOT NULL,
			seller      TEXT NOT NULL,
			buyer       TEXT NOT NULL,
			price       BIGINT NOT NULL,
			new_fee     BIGINT NOT NULL,
			occurred_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_token ON sales(token_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_seller ON sales(seller)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_buyer ON sales(buyer)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_event_seq ON sales(event_seq)`,
	}

	for _, query := range queries {
		execCtx, cancel := s.queryContext(ctx)
		_, err := s.db.ExecContext(execCtx, query)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// SaveEvent appends one committed event. Duplicate sequence numbers
// are ignored so crash replays cannot error out.
func (s *SQLStore) SaveEvent(ctx context.Context, ev events.Event) error {
	if s.db == nil {
		return ErrStoreClosed
	}

	query := `INSERT INTO events
		(event_seq, event_type, token_id, seller, buyer, price, new_fee, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if s.config.Driver == DriverPostgres {
		query += ` ON CONFLICT (event_seq) DO NOTHING`
	} else {
		query = strings.Replace(query, "INSERT INTO", "INSERT OR IGNORE INTO", 1)
	}

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		int64(ev.Seq),
		string(ev.Type),
		int64(ev.TokenID),
		string(ev.Seller),
		string(ev.Buyer),
		int64(ev.Price),
		int64(ev.NewFee),
		ev.Time.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save event %d: %w", ev.Seq, err)
	}
	return nil
}

// SaveSale records one completed purchase.
func (s *SQLStore) SaveSale(ctx context.Context, sale *Sale) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	query := `INSERT INTO sales
		(sale_id, token_id, seller, buyer, price, event_seq, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		sale.ID,
		int64(sale.TokenID),
		string(sale.Seller),
		string(sale.Buyer),
		int64(sale.Price),
		int64(sale.EventSeq),
		sale.OccurredAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save sale %s: %w", sale.ID, err)
	}
	return nil
}

// SaleByID returns the sale with the given identifier.
func (s *SQLStore) SaleByID(ctx context.Context, id string) (*Sale, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	query := `SELECT sale_id, token_id, seller, buyer, price, event_seq, occurred_at
		FROM sales WHERE sale_id = ?`
	row := s.db.QueryRowContext(ctx, s.rebind(query), id)

	sale, err := scanSale(row)
	if err == sql.ErrNoRows {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sale %s: %w", id, err)
	}
	return sale, nil
}

// RecentSales returns the most recent sales, newest first.
func (s *SQLStore) RecentSales(ctx context.Context, limit int) ([]Sale, error) {
	query := `SELECT sale_id, token_id, seller, buyer, price, event_seq, occurred_at
		FROM sales ORDER BY event_seq DESC LIMIT ?`
	return s.querySales(ctx, query, int64(normalizeLimit(limit)))
}

// SalesByToken returns sales of one token, newest first.
func (s *SQLStore) SalesByToken(ctx context.Context, tokenID types.TokenID, limit int) ([]Sale, error) {
	query := `SELECT sale_id, token_id, seller, buyer, price, event_seq, occurred_at
		FROM sales WHERE token_id = ? ORDER BY event_seq DESC LIMIT ?`
	return s.querySales(ctx, query, int64(tokenID), int64(normalizeLimit(limit)))
}

// SalesByAccount returns sales the account participated in, newest first.
func (s *SQLStore) SalesByAccount(ctx context.Context, account types.Address, limit int) ([]Sale, error) {
	query := `SELECT sale_id, token_id, seller, buyer, price, event_seq, occurred_at
		FROM sales WHERE seller = ? OR buyer = ? ORDER BY event_seq DESC LIMIT ?`
	return s.querySales(ctx, query, string(account), string(account), int64(normalizeLimit(limit)))
}

// EventsRange returns archived events in sequence order.
func (s *SQLStore) EventsRange(ctx context.Context, fromSeq, toSeq uint64) ([]events.Event, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}

	query := `SELECT event_seq, event_type, token_id, seller, buyer, price, new_fee, occurred_at
		FROM events WHERE event_seq >= ?`
	args := []any{int64(fromSeq)}
	if toSeq > 0 {
		query += ` AND event_seq <= ?`
		args = append(args, int64(toSeq))
	}
	query += ` ORDER BY event_seq ASC`

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var seq, tokenID, price, newFee, occurredAt int64
		var eventType, seller, buyer string
		if err := rows.Scan(&seq, &eventType, &tokenID, &seller, &buyer, &price, &newFee, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, events.Event{
			Seq:     uint64(seq),
			Type:    events.Type(eventType),
			Time:    time.Unix(occurredAt, 0).UTC(),
			TokenID: types.TokenID(tokenID),
			Seller:  types.Address(seller),
			Buyer:   types.Address(buyer),
			Price:   types.Amount(price),
			NewFee:  types.Amount(newFee),
		})
	}
	return out, rows.Err()
}

// SaleCount returns the total number of archived sales.
func (s *SQLStore) SaleCount(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrStoreClosed
	}

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sales: %w", err)
	}
	return count, nil
}

// querySales runs a sale query and scans the result rows.
func (s *SQLStore) querySales(ctx context.Context, query string, args ...any) ([]Sale, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var out []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		out = append(out, *sale)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanSale reads one sale row.
func scanSale(row scanner) (*Sale, error) {
	var id, seller, buyer string
	var tokenID, price, eventSeq, occurredAt int64
	if err := row.Scan(&id, &tokenID, &seller, &buyer, &price, &eventSeq, &occurredAt); err != nil {
		return nil, err
	}
	return &Sale{
		ID:         id,
		TokenID:    types.TokenID(tokenID),
		Seller:     types.Address(seller),
		Buyer:      types.Address(buyer),
		Price:      types.Amount(price),
		EventSeq:   uint64(eventSeq),
		OccurredAt: time.Unix(occurredAt, 0).UTC(),
	}, nil
}

// queryContext derives a per-statement timeout context.
func (s *SQLStore) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.QueryTimeout)
}

// normalizeLimit bounds query limits to a default and a hard cap.
func normalizeLimit(limit int) int {
	const (
		defaultLimit = 50
		maxLimit     = 500
	)
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// rebind rewrites ? placeholders to the $N form postgres expects.
func (s *SQLStore) rebind(query string) string {
	if s.config.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}

var _ Store = (*SQLStore)(nil)

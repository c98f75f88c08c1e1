package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS order_journal (
	id              BIGSERIAL PRIMARY KEY,
	attempted_at    TIMESTAMPTZ NOT NULL,
	symbol          TEXT NOT NULL,
	side            TEXT NOT NULL,
	order_type      TEXT NOT NULL,
	quantity        TEXT NOT NULL,
	price           TEXT,
	status          TEXT NOT NULL,
	balance         TEXT,
	reason          TEXT,
	client_order_id TEXT,
	order_id        BIGINT
)`

const insertSQL = `INSERT INTO order_journal
	(attempted_at, symbol, side, order_type, quantity, price, status, balance, reason, client_order_id, order_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresJournal stores entries in the order_journal table
type PostgresJournal struct {
	db   execer
	pool *pgxpool.Pool
}

// NewPostgresJournal connects, pings and makes sure the table exists
func NewPostgresJournal(ctx context.Context, dsn string) (*PostgresJournal, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	j := &PostgresJournal{db: pool, pool: pool}
	if err := j.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return j, nil
}

// EnsureSchema creates the journal table if missing
func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("postgres: create order_journal: %w", err)
	}
	return nil
}

// Append inserts one row
func (j *PostgresJournal) Append(ctx context.Context, entry Entry) error {
	_, err := j.db.Exec(ctx, insertSQL,
		entry.Time.UTC(),
		entry.Symbol,
		entry.Side,
		entry.Type,
		entry.Quantity,
		nullable(entry.Price),
		string(entry.Status),
		nullable(entry.Balance),
		nullable(entry.Reason),
		nullable(entry.ClientOrderID),
		nullableID(entry.OrderID),
	)
	if err != nil {
		return fmt.Errorf("postgres: append journal %s: %w", entry.Symbol, err)
	}
	return nil
}

// Close releases the pool
func (j *PostgresJournal) Close() {
	if j.pool != nil {
		j.pool.Close()
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

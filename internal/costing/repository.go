package costing

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/mnledger/internal/platform/db"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

// Repository reads and writes exchange_config.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	SaveValues(ctx context.Context, values map[string]float64) error
	AppendEvent(ctx context.Context, evt shared.Event) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// LoadValues returns every exchange_config row.
func (r *Repository) LoadValues(ctx context.Context) (map[string]float64, error) {
	return loadValues(ctx, r.pool)
}

func loadValues(ctx context.Context, pool *pgxpool.Pool) (map[string]float64, error) {
	rows, err := pool.Query(ctx, `SELECT key, value FROM exchange_config`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	values := make(map[string]float64)
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, rows.Err()
}

func (t *txRepo) SaveValues(ctx context.Context, values map[string]float64) error {
	batch := &pgx.Batch{}
	for key, value := range values {
		batch.Queue(`INSERT INTO exchange_config (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *txRepo) AppendEvent(ctx context.Context, evt shared.Event) error {
	return shared.AppendEvent(ctx, t.tx, evt)
}

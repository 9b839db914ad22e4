package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/mnledger/internal/platform/db"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

// Repository provides PostgreSQL backed persistence for budget heads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	UpsertHead(ctx context.Context, head HeadInput) (BudgetHead, error)
	ClearHeads(ctx context.Context) (int64, error)
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

// Snapshot reads heads and commitments from one consistent snapshot.
func (r *Repository) Snapshot(ctx context.Context) ([]BudgetHead, []Commitment, error) {
	var heads []BudgetHead
	var commitments []Commitment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if heads, err = listHeads(ctx, tx); err != nil {
			return err
		}
		commitments, err = listCommitments(ctx, tx, "")
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: snapshot: %w", err)
	}
	return heads, commitments, nil
}

// ListHeads returns every budget head ordered by department and cost area.
func (r *Repository) ListHeads(ctx context.Context) ([]BudgetHead, error) {
	return listHeads(ctx, r.pool)
}

// ListCommitments returns the ledger projection of every request.
func (r *Repository) ListCommitments(ctx context.Context) ([]Commitment, error) {
	return listCommitments(ctx, r.pool, "")
}

// ListAreaCommitments returns the ledger projection of the requests booked
// against costArea.
func (r *Repository) ListAreaCommitments(ctx context.Context, costArea string) ([]Commitment, error) {
	return listCommitments(ctx, r.pool, costArea)
}

// GetHead returns the head of one cost area.
func (r *Repository) GetHead(ctx context.Context, costArea string) (BudgetHead, error) {
	return scanHead(r.pool.QueryRow(ctx, `SELECT id, department, cost_area, total_budget FROM budget_heads WHERE cost_area = $1`, costArea), costArea)
}

// Queryer is satisfied by pgx.Tx and *pgxpool.Pool.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LockHead loads the head of costArea with a row lock held until tx ends.
// Every writer that books spend against a cost area takes this lock first, so
// concurrent commits to one area are serialised.
func LockHead(ctx context.Context, tx Queryer, costArea string) (BudgetHead, error) {
	return scanHead(tx.QueryRow(ctx, `SELECT id, department, cost_area, total_budget FROM budget_heads WHERE cost_area = $1 FOR UPDATE`, costArea), costArea)
}

// AreaCommitments lists the commitments booked against costArea.
func AreaCommitments(ctx context.Context, q Queryer, costArea string) ([]Commitment, error) {
	return listCommitments(ctx, q, costArea)
}

func scanHead(row pgx.Row, costArea string) (BudgetHead, error) {
	var head BudgetHead
	if err := row.Scan(&head.ID, &head.Department, &head.CostArea, &head.TotalBudget); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BudgetHead{}, shared.NotFoundf("cost area %q has no budget head", costArea)
		}
		return BudgetHead{}, err
	}
	return head, nil
}

func listHeads(ctx context.Context, q Queryer) ([]BudgetHead, error) {
	rows, err := q.Query(ctx, `SELECT id, department, cost_area, total_budget FROM budget_heads ORDER BY department, cost_area`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var heads []BudgetHead
	for rows.Next() {
		var head BudgetHead
		if err := rows.Scan(&head.ID, &head.Department, &head.CostArea, &head.TotalBudget); err != nil {
			return nil, err
		}
		heads = append(heads, head)
	}
	return heads, rows.Err()
}

func listCommitments(ctx context.Context, q Queryer, costArea string) ([]Commitment, error) {
	rows, err := q.Query(ctx, `SELECT cost_area, status, landed_total_cost FROM requests
		WHERE ($1 = '' OR cost_area = $1)`, costArea)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Commitment
	for rows.Next() {
		var c Commitment
		var status string
		if err := rows.Scan(&c.CostArea, &status, &c.LandedTotalCost); err != nil {
			return nil, err
		}
		c.Status = shared.RequestStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *txRepo) UpsertHead(ctx context.Context, head HeadInput) (BudgetHead, error) {
	var out BudgetHead
	err := t.tx.QueryRow(ctx, `INSERT INTO budget_heads (department, cost_area, total_budget) VALUES ($1, $2, $3)
		ON CONFLICT (cost_area) DO UPDATE SET department = EXCLUDED.department, total_budget = EXCLUDED.total_budget
		RETURNING id, department, cost_area, total_budget`,
		head.Department, head.CostArea, head.TotalBudget).Scan(&out.ID, &out.Department, &out.CostArea, &out.TotalBudget)
	return out, err
}

func (t *txRepo) ClearHeads(ctx context.Context) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM budget_heads`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *txRepo) AppendEvent(ctx context.Context, evt shared.Event) error {
	return shared.AppendEvent(ctx, t.tx, evt)
}

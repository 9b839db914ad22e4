package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/mnledger/internal/ledger"
	"github.com/odyssey-erp/mnledger/internal/platform/db"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	MNExists(ctx context.Context, mn string, excludeID int64) (bool, error)
	LockBudgetHead(ctx context.Context, costArea string) (ledger.BudgetHead, error)
	AreaCommitments(ctx context.Context, costArea string) ([]ledger.Commitment, error)
	Insert(ctx context.Context, req Request) (int64, error)
	GetForUpdate(ctx context.Context, id int64) (Request, error)
	Update(ctx context.Context, req Request) error
	UpdateStatus(ctx context.Context, id int64, status shared.RequestStatus) error
	AppendEvent(ctx context.Context, evt shared.Event) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a read-committed transaction. Writers lock the budget
// head row first; read committed lets the commitment sum taken after the lock
// see rows committed by the previous holder.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const requestColumns = `id, mn_number, issue_date, logged_date, requester, cost_area, particulars, category,
	department, location, supplier, supplier_type, currency, foreign_spare_cost, freight_charges,
	customs_duty_rate, local_cost_excl_tax, vat_tax, landed_total_cost, status, date_sent_to_head_office, remarks`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var status string
	err := row.Scan(&req.ID, &req.MNNumber, &req.IssueDate, &req.LoggedDate, &req.Requester, &req.CostArea,
		&req.Particulars, &req.Category, &req.Department, &req.Location, &req.Supplier, &req.SupplierType,
		&req.Currency, &req.ForeignSpareCost, &req.FreightCharges, &req.CustomsDutyRate, &req.LocalCostExclTax,
		&req.VATTax, &req.LandedTotalCost, &status, &req.DateSentToHeadOffice, &req.Remarks)
	req.Status = shared.RequestStatus(status)
	return req, err
}

// Get returns one request by id.
func (r *Repository) Get(ctx context.Context, id int64) (Request, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, shared.NotFoundf("request %d", id)
	}
	return req, err
}

// GetByMN returns one request by MN number.
func (r *Repository) GetByMN(ctx context.Context, mn string) (Request, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE mn_number = $1`, mn))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, shared.NotFoundf("request %s", mn)
	}
	return req, err
}

// List returns a filtered page of requests, newest first.
func (r *Repository) List(ctx context.Context, f ListFilters) (ListResult, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.CostArea != "" {
		add("cost_area = $%d", f.CostArea)
	}
	if f.SupplierType != "" {
		add("supplier_type = $%d", f.SupplierType)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(mn_number ILIKE $%d OR supplier ILIKE $%d OR particulars ILIKE $%d)", n, n, n))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var result ListResult
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM requests`+clause, args...).Scan(&result.Total); err != nil {
		return ListResult{}, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM requests%s ORDER BY id DESC LIMIT $%d OFFSET $%d`, requestColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return ListResult{}, err
		}
		result.Requests = append(result.Requests, req)
	}
	return result, rows.Err()
}

func (t *txRepo) MNExists(ctx context.Context, mn string, excludeID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM requests WHERE mn_number = $1 AND id <> $2)`, mn, excludeID).Scan(&exists)
	return exists, err
}

func (t *txRepo) LockBudgetHead(ctx context.Context, costArea string) (ledger.BudgetHead, error) {
	return ledger.LockHead(ctx, t.tx, costArea)
}

func (t *txRepo) AreaCommitments(ctx context.Context, costArea string) ([]ledger.Commitment, error) {
	return ledger.AreaCommitments(ctx, t.tx, costArea)
}

func (t *txRepo) Insert(ctx context.Context, req Request) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO requests (mn_number, issue_date, logged_date, requester, cost_area,
		particulars, category, department, location, supplier, supplier_type, currency, foreign_spare_cost,
		freight_charges, customs_duty_rate, local_cost_excl_tax, vat_tax, landed_total_cost, status,
		date_sent_to_head_office, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id`,
		req.MNNumber, req.IssueDate, req.LoggedDate, req.Requester, req.CostArea, req.Particulars, req.Category,
		req.Department, req.Location, req.Supplier, req.SupplierType, req.Currency, req.ForeignSpareCost,
		req.FreightCharges, req.CustomsDutyRate, req.LocalCostExclTax, req.VATTax, req.LandedTotalCost,
		string(req.Status), req.DateSentToHeadOffice, req.Remarks).Scan(&id)
	if shared.IsUniqueViolation(err) {
		return 0, shared.Conflictf("MN number %s already exists", req.MNNumber)
	}
	return id, err
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Request, error) {
	req, err := scanRequest(t.tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, shared.NotFoundf("request %d", id)
	}
	return req, err
}

func (t *txRepo) Update(ctx context.Context, req Request) error {
	_, err := t.tx.Exec(ctx, `UPDATE requests SET mn_number = $2, issue_date = $3, cost_area = $4, particulars = $5,
		category = $6, department = $7, location = $8, supplier = $9, supplier_type = $10, currency = $11,
		foreign_spare_cost = $12, freight_charges = $13, customs_duty_rate = $14, local_cost_excl_tax = $15,
		vat_tax = $16, landed_total_cost = $17, date_sent_to_head_office = $18, remarks = $19
		WHERE id = $1`,
		req.ID, req.MNNumber, req.IssueDate, req.CostArea, req.Particulars, req.Category, req.Department,
		req.Location, req.Supplier, req.SupplierType, req.Currency, req.ForeignSpareCost, req.FreightCharges,
		req.CustomsDutyRate, req.LocalCostExclTax, req.VATTax, req.LandedTotalCost, req.DateSentToHeadOffice,
		req.Remarks)
	if shared.IsUniqueViolation(err) {
		return shared.Conflictf("MN number %s already exists", req.MNNumber)
	}
	return err
}

func (t *txRepo) UpdateStatus(ctx context.Context, id int64, status shared.RequestStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE requests SET status = $2 WHERE id = $1`, id, string(status))
	return err
}

func (t *txRepo) AppendEvent(ctx context.Context, evt shared.Event) error {
	return shared.AppendEvent(ctx, t.tx, evt)
}

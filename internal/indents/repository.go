package indents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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
	InsertIndent(ctx context.Context, indent Indent) (int64, error)
	BillExists(ctx context.Context, billNo string) (bool, error)
	LockIndents(ctx context.Context, ids []int64) ([]Indent, error)
	InsertBill(ctx context.Context, bill Bill) error
	MarkPurchased(ctx context.Context, ids []int64) (int64, error)
	AppendEvent(ctx context.Context, evt shared.Event) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a read-committed transaction so a locked indent
// line reflects the status committed by a concurrent bill.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const indentColumns = `indent_id, indent_number, item_description, quantity, unit, rate, total_amount, indent_date, supplier, status`

func scanIndents(rows pgx.Rows) ([]Indent, error) {
	defer rows.Close()
	var out []Indent
	for rows.Next() {
		var in Indent
		if err := rows.Scan(&in.ID, &in.Number, &in.Description, &in.Quantity, &in.Unit, &in.Rate,
			&in.TotalAmount, &in.Date, &in.Supplier, &in.Status); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// ListIndents returns the whole registry, newest first.
func (r *Repository) ListIndents(ctx context.Context) ([]Indent, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+indentColumns+` FROM standalone_indents ORDER BY indent_id DESC`)
	if err != nil {
		return nil, err
	}
	return scanIndents(rows)
}

// ListEligible returns Not Purchased lines, optionally restricted to the given
// indent numbers.
func (r *Repository) ListEligible(ctx context.Context, numbers []string) ([]Indent, error) {
	if numbers == nil {
		numbers = []string{}
	}
	rows, err := r.pool.Query(ctx, `SELECT `+indentColumns+` FROM standalone_indents
		WHERE status = $1 AND (cardinality($2::text[]) = 0 OR indent_number = ANY($2))
		ORDER BY indent_date DESC, indent_id`, StatusNotPurchased, numbers)
	if err != nil {
		return nil, err
	}
	return scanIndents(rows)
}

// ListBills returns bill headers matching filters, newest first.
func (r *Repository) ListBills(ctx context.Context, f BillFilters) ([]Bill, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(bill_no ILIKE $%d OR indent_no_summary ILIKE $%d)", n, n))
	}
	if f.Supplier != "" {
		add("supplier = $%d", f.Supplier)
	}
	if f.PaymentMode != "" {
		add("payment_mode = $%d", f.PaymentMode)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.pool.Query(ctx, `SELECT bill_no, indent_no_summary, grn_no, supplier, bill_date, payment_mode,
		total_bill_amount, remarks, created_at FROM purchase_bills`+clause+` ORDER BY bill_date DESC, bill_no`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bill
	for rows.Next() {
		var b Bill
		if err := rows.Scan(&b.BillNo, &b.IndentSummary, &b.GRNNo, &b.Supplier, &b.BillDate, &b.PaymentMode,
			&b.Total, &b.Remarks, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBill returns one bill with its lines.
func (r *Repository) GetBill(ctx context.Context, billNo string) (Bill, error) {
	var b Bill
	err := r.pool.QueryRow(ctx, `SELECT bill_no, indent_no_summary, grn_no, supplier, bill_date, payment_mode,
		total_bill_amount, remarks, created_at FROM purchase_bills WHERE bill_no = $1`, billNo).
		Scan(&b.BillNo, &b.IndentSummary, &b.GRNNo, &b.Supplier, &b.BillDate, &b.PaymentMode, &b.Total, &b.Remarks, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, shared.NotFoundf("bill %s", billNo)
	}
	if err != nil {
		return Bill{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, bill_no, indent_id, description, quantity, unit, rate, amount
		FROM purchase_bill_lines WHERE bill_no = $1 ORDER BY id`, billNo)
	if err != nil {
		return Bill{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l BillLine
		if err := rows.Scan(&l.ID, &l.BillNo, &l.IndentID, &l.Description, &l.Quantity, &l.Unit, &l.Rate, &l.Amount); err != nil {
			return Bill{}, err
		}
		b.Lines = append(b.Lines, l)
	}
	return b, rows.Err()
}

func (t *txRepo) InsertIndent(ctx context.Context, in Indent) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO standalone_indents (indent_number, item_description, quantity, unit, rate,
		total_amount, indent_date, supplier, status) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING indent_id`,
		in.Number, in.Description, in.Quantity, in.Unit, in.Rate, in.TotalAmount, in.Date, in.Supplier, in.Status).Scan(&id)
	return id, err
}

func (t *txRepo) BillExists(ctx context.Context, billNo string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchase_bills WHERE bill_no = $1)`, billNo).Scan(&exists)
	return exists, err
}

func (t *txRepo) LockIndents(ctx context.Context, ids []int64) ([]Indent, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+indentColumns+` FROM standalone_indents WHERE indent_id = ANY($1)
		ORDER BY indent_id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	return scanIndents(rows)
}

func (t *txRepo) InsertBill(ctx context.Context, bill Bill) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO purchase_bills (bill_no, indent_no_summary, grn_no, supplier, bill_date,
		payment_mode, total_bill_amount, remarks) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		bill.BillNo, bill.IndentSummary, bill.GRNNo, bill.Supplier, bill.BillDate, bill.PaymentMode, bill.Total, bill.Remarks)
	if shared.IsUniqueViolation(err) {
		return shared.Conflictf("bill %s already exists", bill.BillNo)
	}
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, l := range bill.Lines {
		batch.Queue(`INSERT INTO purchase_bill_lines (bill_no, indent_id, description, quantity, unit, rate, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`, bill.BillNo, l.IndentID, l.Description, l.Quantity, l.Unit, l.Rate, l.Amount)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *txRepo) MarkPurchased(ctx context.Context, ids []int64) (int64, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE standalone_indents SET status = $1 WHERE indent_id = ANY($2) AND status = $3`,
		StatusPurchased, ids, StatusNotPurchased)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *txRepo) AppendEvent(ctx context.Context, evt shared.Event) error {
	return shared.AppendEvent(ctx, t.tx, evt)
}

package procurement

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
	LockRequest(ctx context.Context, mn string) (Trackable, error)
	Upsert(ctx context.Context, rec Record) (Record, error)
	SetRequestStatus(ctx context.Context, mn string, status shared.RequestStatus) error
	AppendEvent(ctx context.Context, evt shared.Event) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a read-committed transaction; the request row is
// locked before it is read.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const trackableColumns = `r.mn_number, r.particulars, r.cost_area, r.supplier, r.supplier_type, r.status, r.date_sent_to_head_office`

const recordColumns = `t.mn_number, t.lc_po_number, t.lc_po_date, t.eta, t.delivery_completed, t.delivery_date, t.remarks,
	t.delay_days, t.bill_submitted_by_vendor, t.bill_tracking_id, t.bill_submitted_to_accounts,
	t.bill_submitted_to_head_office, t.bill_paid, t.actual_cost, t.updated_at`

func scanTrackable(row pgx.Row) (Trackable, error) {
	var t Trackable
	var status string
	err := row.Scan(&t.MNNumber, &t.Particulars, &t.CostArea, &t.Supplier, &t.SupplierType, &status, &t.DateSentToHeadOffice)
	t.Status = shared.RequestStatus(status)
	return t, err
}

func recordDest(rec *Record) []any {
	return []any{&rec.MNNumber, &rec.LCPONumber, &rec.LCPODate, &rec.ETA, &rec.DeliveryCompleted, &rec.DeliveryDate,
		&rec.Remarks, &rec.DelayDays, &rec.BillSubmittedByVendor, &rec.BillTrackingID, &rec.BillSubmittedToAccounts,
		&rec.BillSubmittedToHeadOffice, &rec.BillPaid, &rec.ActualCost, &rec.UpdatedAt}
}

// ListTrackable returns requests in a trackable state, most recently sent first.
func (r *Repository) ListTrackable(ctx context.Context) ([]Trackable, error) {
	statuses := make([]string, len(TrackableStatuses))
	for i, s := range TrackableStatuses {
		statuses[i] = string(s)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+trackableColumns+` FROM requests r
		WHERE r.status = ANY($1) ORDER BY r.date_sent_to_head_office DESC, r.id DESC`, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Trackable
	for rows.Next() {
		t, err := scanTrackable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get returns the tracker record of mn.
func (r *Repository) Get(ctx context.Context, mn string) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM lc_po_tracker t WHERE t.mn_number = $1`, mn).Scan(recordDest(&rec)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, shared.NotFoundf("no tracker record for MN %s", mn)
	}
	return rec, err
}

// List returns the tracking table joined with request details.
func (r *Repository) List(ctx context.Context, f ListFilters) ([]Row, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.LCPONumber != "" {
		add("t.lc_po_number ILIKE $%d", "%"+f.LCPONumber+"%")
	}
	if f.SupplierType != "" {
		add("r.supplier_type = $%d", f.SupplierType)
	}
	if f.Delivered != nil {
		add("t.delivery_completed = $%d", *f.Delivered)
	}
	if f.Paid != nil {
		add("t.bill_paid = $%d", *f.Paid)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+trackableColumns+`, `+recordColumns+`
		FROM requests r JOIN lc_po_tracker t ON t.mn_number = r.mn_number`+clause+`
		ORDER BY t.updated_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var row Row
		var status string
		dest := []any{&row.MNNumber, &row.Particulars, &row.CostArea, &row.Supplier, &row.SupplierType, &status, &row.DateSentToHeadOffice}
		if err := rows.Scan(append(dest, recordDest(&row.Record)...)...); err != nil {
			return nil, err
		}
		row.Status = shared.RequestStatus(status)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (t *txRepo) LockRequest(ctx context.Context, mn string) (Trackable, error) {
	tr, err := scanTrackable(t.tx.QueryRow(ctx, `SELECT `+trackableColumns+` FROM requests r WHERE r.mn_number = $1 FOR UPDATE`, mn))
	if errors.Is(err, pgx.ErrNoRows) {
		return Trackable{}, shared.NotFoundf("request %s", mn)
	}
	return tr, err
}

func (t *txRepo) Upsert(ctx context.Context, rec Record) (Record, error) {
	var out Record
	err := t.tx.QueryRow(ctx, `INSERT INTO lc_po_tracker AS t (mn_number, lc_po_number, lc_po_date, eta,
		delivery_completed, delivery_date, remarks, delay_days, bill_submitted_by_vendor, bill_tracking_id,
		bill_submitted_to_accounts, bill_submitted_to_head_office, bill_paid, actual_cost, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (mn_number) DO UPDATE SET
			lc_po_number = EXCLUDED.lc_po_number,
			lc_po_date = EXCLUDED.lc_po_date,
			eta = EXCLUDED.eta,
			delivery_completed = EXCLUDED.delivery_completed,
			delivery_date = EXCLUDED.delivery_date,
			remarks = EXCLUDED.remarks,
			delay_days = EXCLUDED.delay_days,
			bill_submitted_by_vendor = EXCLUDED.bill_submitted_by_vendor,
			bill_tracking_id = EXCLUDED.bill_tracking_id,
			bill_submitted_to_accounts = EXCLUDED.bill_submitted_to_accounts,
			bill_submitted_to_head_office = EXCLUDED.bill_submitted_to_head_office,
			bill_paid = EXCLUDED.bill_paid,
			actual_cost = EXCLUDED.actual_cost,
			updated_at = NOW()
		RETURNING `+recordColumns,
		rec.MNNumber, rec.LCPONumber, rec.LCPODate, rec.ETA, rec.DeliveryCompleted, rec.DeliveryDate, rec.Remarks,
		rec.DelayDays, rec.BillSubmittedByVendor, rec.BillTrackingID, rec.BillSubmittedToAccounts,
		rec.BillSubmittedToHeadOffice, rec.BillPaid, rec.ActualCost).Scan(recordDest(&out)...)
	return out, err
}

func (t *txRepo) SetRequestStatus(ctx context.Context, mn string, status shared.RequestStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE requests SET status = $2 WHERE mn_number = $1`, mn, string(status))
	return err
}

func (t *txRepo) AppendEvent(ctx context.Context, evt shared.Event) error {
	return shared.AppendEvent(ctx, t.tx, evt)
}

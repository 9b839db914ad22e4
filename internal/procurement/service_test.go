package procurement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

type memoryTrackerRepo struct {
	requests  map[string]Trackable
	records   map[string]Record
	events    []shared.Event
	failWrite error
}

type memoryTrackerTx struct {
	requests map[string]Trackable
	records  map[string]Record
	events   []shared.Event
	fail     error
}

func newMemoryTrackerRepo(reqs ...Trackable) *memoryTrackerRepo {
	repo := &memoryTrackerRepo{requests: make(map[string]Trackable), records: make(map[string]Record)}
	for _, r := range reqs {
		repo.requests[r.MNNumber] = r
	}
	return repo
}

func (r *memoryTrackerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTrackerTx{requests: make(map[string]Trackable), records: make(map[string]Record), fail: r.failWrite}
	for k, v := range r.requests {
		tx.requests[k] = v
	}
	for k, v := range r.records {
		tx.records[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.requests = tx.requests
	r.records = tx.records
	r.events = append(r.events, tx.events...)
	return nil
}

func (r *memoryTrackerRepo) ListTrackable(ctx context.Context) ([]Trackable, error) {
	var out []Trackable
	for _, t := range r.requests {
		if trackable(t.Status) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryTrackerRepo) Get(ctx context.Context, mn string) (Record, error) {
	rec, ok := r.records[mn]
	if !ok {
		return Record{}, shared.NotFoundf("no tracker record for MN %s", mn)
	}
	return rec, nil
}

func (r *memoryTrackerRepo) List(ctx context.Context, f ListFilters) ([]Row, error) {
	var out []Row
	for mn, rec := range r.records {
		if f.Paid != nil && rec.BillPaid != *f.Paid {
			continue
		}
		out = append(out, Row{Trackable: r.requests[mn], Record: rec})
	}
	return out, nil
}

func (tx *memoryTrackerTx) LockRequest(ctx context.Context, mn string) (Trackable, error) {
	t, ok := tx.requests[mn]
	if !ok {
		return Trackable{}, shared.NotFoundf("request %s", mn)
	}
	return t, nil
}

func (tx *memoryTrackerTx) Upsert(ctx context.Context, rec Record) (Record, error) {
	if tx.fail != nil {
		return Record{}, tx.fail
	}
	rec.UpdatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tx.records[rec.MNNumber] = rec
	return rec, nil
}

func (tx *memoryTrackerTx) SetRequestStatus(ctx context.Context, mn string, status shared.RequestStatus) error {
	t := tx.requests[mn]
	t.Status = status
	tx.requests[mn] = t
	return nil
}

func (tx *memoryTrackerTx) AppendEvent(ctx context.Context, evt shared.Event) error {
	tx.events = append(tx.events, evt)
	return nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(ctx context.Context) { c.calls++ }

func approvedRequest(mn, supplierType string, status shared.RequestStatus) Trackable {
	return Trackable{
		MNNumber:             mn,
		CostArea:             "Line-1",
		Supplier:             "Acme",
		SupplierType:         supplierType,
		Status:               status,
		DateSentToHeadOffice: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func countActions(events []shared.Event, action string) int {
	n := 0
	for _, e := range events {
		if e.Action == action {
			n++
		}
	}
	return n
}

func TestUpsertPromotesFinanceApproved(t *testing.T) {
	repo := newMemoryTrackerRepo(approvedRequest("DHK/001/2026", "Foreign", shared.StatusFinanceApproved))
	inv := &countingInvalidator{}
	svc := NewService(repo, inv)

	result, err := svc.Upsert(context.Background(), "alice", "DHK/001/2026", Input{LCPONumber: "PO-55", LCPODate: "2026-01-25", ActualCost: 5000})
	require.NoError(t, err)
	require.True(t, result.Promoted)
	require.Equal(t, shared.StatusPOIssued, result.Status)
	require.Equal(t, shared.StatusPOIssued, repo.requests["DHK/001/2026"].Status)
	require.NotNil(t, result.Record.DelayDays)
	require.Equal(t, 15, *result.Record.DelayDays)
	require.Equal(t, 5000.0, result.Record.ActualCost)

	require.Equal(t, 1, countActions(repo.events, shared.ActionMNStatusChange))
	require.Equal(t, "MN DHK/001/2026 status changed to 'PO Issued' by LC/PO entry.", repo.events[0].Description)
	require.Equal(t, 1, countActions(repo.events, shared.ActionLCPOUpdate))
	require.Equal(t, 1, inv.calls)

	// A second save on a PO Issued request only updates the record.
	result, err = svc.Upsert(context.Background(), "alice", "DHK/001/2026", Input{LCPONumber: "PO-55", BillPaid: true})
	require.NoError(t, err)
	require.False(t, result.Promoted)
	require.Nil(t, result.Record.DelayDays)
	require.Equal(t, 1, countActions(repo.events, shared.ActionMNStatusChange))
	require.Equal(t, 1, inv.calls)
	require.Len(t, repo.records, 1)
}

func TestUpsertWithoutNumberDoesNotPromote(t *testing.T) {
	repo := newMemoryTrackerRepo(approvedRequest("DHK/002/2026", "Foreign", shared.StatusFinanceApproved))
	svc := NewService(repo, nil)

	result, err := svc.Upsert(context.Background(), "alice", "DHK/002/2026", Input{ETA: "2026-03-01"})
	require.NoError(t, err)
	require.False(t, result.Promoted)
	require.Equal(t, shared.StatusFinanceApproved, repo.requests["DHK/002/2026"].Status)
	require.Zero(t, countActions(repo.events, shared.ActionMNStatusChange))
}

func TestUpsertNegativeDelay(t *testing.T) {
	repo := newMemoryTrackerRepo(approvedRequest("DHK/003/2026", "Foreign", shared.StatusPOIssued))
	svc := NewService(repo, nil)

	result, err := svc.Upsert(context.Background(), "alice", "DHK/003/2026", Input{LCPODate: "2026-01-07"})
	require.NoError(t, err)
	require.Equal(t, -3, *result.Record.DelayDays)
}

func TestUpsertLocalSupplierRules(t *testing.T) {
	repo := newMemoryTrackerRepo(approvedRequest("DHK/004/2026", "Local", shared.StatusPOIssued))
	svc := NewService(repo, nil)
	ctx := context.Background()

	result, err := svc.Upsert(ctx, "alice", "DHK/004/2026", Input{ActualCost: 900})
	require.NoError(t, err)
	require.Zero(t, result.Record.ActualCost)
	require.Equal(t, VendorBillNo, result.Record.BillSubmittedByVendor)

	_, err = svc.Upsert(ctx, "alice", "DHK/004/2026", Input{BillSubmittedByVendor: "INV-22"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpsertRejections(t *testing.T) {
	repo := newMemoryTrackerRepo(approvedRequest("DHK/005/2026", "Foreign", shared.StatusPending))
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "alice", "DHK/005/2026", Input{LCPONumber: "PO-1"})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, shared.StatusPending, repo.requests["DHK/005/2026"].Status)

	_, err = svc.Upsert(ctx, "alice", "DHK/404/2026", Input{})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Upsert(ctx, "alice", "DHK/005/2026", Input{LCPODate: "25/01/2026"})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.events)
}

func TestUpsertFailureRollsBackPromotion(t *testing.T) {
	repo := newMemoryTrackerRepo(approvedRequest("DHK/006/2026", "Foreign", shared.StatusFinanceApproved))
	repo.failWrite = errors.New("connection reset")
	inv := &countingInvalidator{}
	svc := NewService(repo, inv)

	_, err := svc.Upsert(context.Background(), "alice", "DHK/006/2026", Input{LCPONumber: "PO-9"})
	require.EqualError(t, err, "connection reset")
	require.Equal(t, shared.StatusFinanceApproved, repo.requests["DHK/006/2026"].Status)
	require.Empty(t, repo.events)
	require.Empty(t, repo.records)
	require.Zero(t, inv.calls)
}

func TestListTrackable(t *testing.T) {
	repo := newMemoryTrackerRepo(
		approvedRequest("DHK/001/2026", "Foreign", shared.StatusFinanceApproved),
		approvedRequest("DHK/002/2026", "Local", shared.StatusPOIssued),
		approvedRequest("DHK/003/2026", "Local", shared.StatusCompleted),
	)
	items, err := NewService(repo, nil).ListTrackable(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
}

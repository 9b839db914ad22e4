package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

type memoryLedgerRepo struct {
	heads       []BudgetHead
	commitments []Commitment
	events      []shared.Event
	snapshots   int
	areaQueries []string
	nextID      int64
}

type memoryLedgerTx struct {
	heads  []BudgetHead
	events []shared.Event
	repo   *memoryLedgerRepo
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryLedgerTx{heads: append([]BudgetHead(nil), r.heads...), repo: r}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.heads = tx.heads
	r.events = append(r.events, tx.events...)
	return nil
}

func (r *memoryLedgerRepo) Snapshot(ctx context.Context) ([]BudgetHead, []Commitment, error) {
	r.snapshots++
	return append([]BudgetHead(nil), r.heads...), append([]Commitment(nil), r.commitments...), nil
}

func (r *memoryLedgerRepo) ListHeads(ctx context.Context) ([]BudgetHead, error) {
	return append([]BudgetHead(nil), r.heads...), nil
}

func (r *memoryLedgerRepo) ListCommitments(ctx context.Context) ([]Commitment, error) {
	return append([]Commitment(nil), r.commitments...), nil
}

func (r *memoryLedgerRepo) ListAreaCommitments(ctx context.Context, costArea string) ([]Commitment, error) {
	r.areaQueries = append(r.areaQueries, costArea)
	var out []Commitment
	for _, c := range r.commitments {
		if c.CostArea == costArea {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) GetHead(ctx context.Context, costArea string) (BudgetHead, error) {
	for _, h := range r.heads {
		if h.CostArea == costArea {
			return h, nil
		}
	}
	return BudgetHead{}, shared.NotFoundf("cost area %q has no budget head", costArea)
}

func (tx *memoryLedgerTx) UpsertHead(ctx context.Context, in HeadInput) (BudgetHead, error) {
	for i, h := range tx.heads {
		if h.CostArea == in.CostArea {
			tx.heads[i].Department = in.Department
			tx.heads[i].TotalBudget = in.TotalBudget
			return tx.heads[i], nil
		}
	}
	tx.repo.nextID++
	head := BudgetHead{ID: tx.repo.nextID, Department: in.Department, CostArea: in.CostArea, TotalBudget: in.TotalBudget}
	tx.heads = append(tx.heads, head)
	return head, nil
}

func (tx *memoryLedgerTx) ClearHeads(ctx context.Context) (int64, error) {
	n := int64(len(tx.heads))
	tx.heads = nil
	return n, nil
}

func (tx *memoryLedgerTx) AppendEvent(ctx context.Context, evt shared.Event) error {
	tx.events = append(tx.events, evt)
	return nil
}

func newCachedService(t *testing.T, repo RepositoryPort) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute), nil), mr
}

func TestUpsertHeadLogsAndReplaces(t *testing.T) {
	repo := &memoryLedgerRepo{}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	head, err := svc.UpsertHead(ctx, "admin", HeadInput{Department: " Maintenance ", CostArea: "Line-1", TotalBudget: 100000})
	require.NoError(t, err)
	require.Equal(t, "Maintenance", head.Department)

	_, err = svc.UpsertHead(ctx, "admin", HeadInput{Department: "Maintenance", CostArea: "Line-1", TotalBudget: 120000})
	require.NoError(t, err)
	require.Len(t, repo.heads, 1)
	require.Equal(t, 120000.0, repo.heads[0].TotalBudget)
	require.Len(t, repo.events, 2)
	require.Equal(t, shared.ActionBudgetUpdate, repo.events[1].Action)
	require.Equal(t, "Budget head Line-1 (Maintenance) set to 120,000.00.", repo.events[1].Description)
}

func TestUpsertHeadValidation(t *testing.T) {
	repo := &memoryLedgerRepo{}
	svc := NewService(repo, nil, nil)
	_, err := svc.UpsertHead(context.Background(), "admin", HeadInput{TotalBudget: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"Department", "Cost Area"}, verr.Missing)
	require.Len(t, verr.Problems, 1)
	require.Empty(t, repo.events)
}

func TestImportHeadsAllOrNothing(t *testing.T) {
	repo := &memoryLedgerRepo{}
	svc := NewService(repo, nil, nil)
	_, err := svc.ImportHeads(context.Background(), "admin", []HeadInput{
		{Department: "Maintenance", CostArea: "Line-1", TotalBudget: 1},
		{Department: "Maintenance", CostArea: "", TotalBudget: 1},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "row 2")
	require.Empty(t, repo.heads)

	n, err := svc.ImportHeads(context.Background(), "admin", []HeadInput{
		{Department: "Maintenance", CostArea: "Line-1", TotalBudget: 1},
		{Department: "Utilities", CostArea: "Boiler", TotalBudget: 2},
		{Department: "Maintenance", CostArea: "Line-1", TotalBudget: 3},
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Len(t, repo.heads, 2)
	require.Equal(t, 3.0, repo.heads[0].TotalBudget)
	require.Len(t, repo.events, 1)
	require.Equal(t, shared.ActionBudgetImport, repo.events[0].Action)
}

func TestClearHeadsKeepsRequests(t *testing.T) {
	repo := &memoryLedgerRepo{
		heads:       []BudgetHead{{CostArea: "Line-1", TotalBudget: 10}},
		commitments: []Commitment{{CostArea: "Line-1", Status: shared.StatusPending, LandedTotalCost: 5}},
	}
	svc := NewService(repo, nil, nil)
	n, err := svc.ClearHeads(context.Background(), "admin")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Empty(t, repo.heads)
	require.Len(t, repo.commitments, 1)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.Empty(t, status.Areas)
}

func TestStatusCachedUntilMutation(t *testing.T) {
	repo := &memoryLedgerRepo{heads: []BudgetHead{{Department: "Maintenance", CostArea: "Line-1", TotalBudget: 1000}}}
	svc, _ := newCachedService(t, repo)
	ctx := context.Background()

	first, err := svc.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 1000.0, first.Areas[0].Remaining)
	_, err = svc.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.snapshots)

	_, err = svc.UpsertHead(ctx, "admin", HeadInput{Department: "Maintenance", CostArea: "Line-1", TotalBudget: 2000})
	require.NoError(t, err)
	after, err := svc.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, repo.snapshots)
	require.Equal(t, 2000.0, after.Areas[0].Remaining)
}

func TestWarmFillsCache(t *testing.T) {
	repo := &memoryLedgerRepo{heads: []BudgetHead{{CostArea: "Line-1", TotalBudget: 1000}}}
	svc, _ := newCachedService(t, repo)
	ctx := context.Background()

	_, err := svc.Warm(ctx)
	require.NoError(t, err)
	_, err = svc.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.snapshots)
}

func TestAreasAbove(t *testing.T) {
	repo := &memoryLedgerRepo{
		heads: []BudgetHead{
			{CostArea: "Line-1", TotalBudget: 100},
			{CostArea: "Boiler", TotalBudget: 100},
			{CostArea: "Empty", TotalBudget: 0},
		},
		commitments: []Commitment{
			{CostArea: "Line-1", Status: shared.StatusPending, LandedTotalCost: 95},
			{CostArea: "Boiler", Status: shared.StatusPending, LandedTotalCost: 50},
		},
	}
	svc := NewService(repo, nil, nil)
	areas, err := svc.AreasAbove(context.Background(), 90)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	require.Equal(t, "Line-1", areas[0].CostArea)
}

func TestAreaNotFound(t *testing.T) {
	svc := NewService(&memoryLedgerRepo{}, nil, nil)
	_, err := svc.Area(context.Background(), "Nowhere")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

// commitDuringSnapshot books a request and invalidates the cache while the
// ledger is being read, as a concurrent submission would.
type commitDuringSnapshot struct {
	*memoryLedgerRepo
	svc  *Service
	once sync.Once
}

func (r *commitDuringSnapshot) Snapshot(ctx context.Context) ([]BudgetHead, []Commitment, error) {
	heads, commitments, err := r.memoryLedgerRepo.Snapshot(ctx)
	r.once.Do(func() {
		r.commitments = append(r.commitments, Commitment{CostArea: "Line-1", Status: shared.StatusPending, LandedTotalCost: 40000})
		r.svc.Invalidate(ctx)
	})
	return heads, commitments, err
}

func TestWarmDoesNotCacheStatusOlderThanVersion(t *testing.T) {
	repo := &commitDuringSnapshot{memoryLedgerRepo: &memoryLedgerRepo{
		heads: []BudgetHead{{Department: "Maintenance", CostArea: "Line-1", TotalBudget: 100000}},
	}}
	svc, _ := newCachedService(t, repo)
	repo.svc = svc
	ctx := context.Background()

	warmed, err := svc.Warm(ctx)
	require.NoError(t, err)
	require.Equal(t, 100000.0, warmed.Areas[0].Remaining)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 60000.0, status.Areas[0].Remaining)
	require.Equal(t, 2, repo.snapshots)
}

func TestFetchStatusFillIgnoresCallerCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	observed := make(chan error, 1)
	var once sync.Once
	loader := func(ctx context.Context) (Status, error) {
		first := false
		once.Do(func() { first = true })
		if first {
			close(started)
			<-release
			observed <- ctx.Err()
		}
		return Status{Areas: []AreaStatus{{CostArea: "Line-1", Remaining: 10}}}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.FetchStatus(ctx, loader)
		done <- err
	}()
	<-started
	cancel()
	require.True(t, errors.Is(<-done, context.Canceled))
	close(release)
	require.NoError(t, <-observed)

	status, err := cache.FetchStatus(context.Background(), loader)
	require.NoError(t, err)
	require.Equal(t, 10.0, status.Areas[0].Remaining)
}

func TestAreaReadsOnlyItsCommitments(t *testing.T) {
	repo := &memoryLedgerRepo{
		heads: []BudgetHead{{CostArea: "Line-1", TotalBudget: 100}, {CostArea: "Boiler", TotalBudget: 100}},
		commitments: []Commitment{
			{CostArea: "Line-1", Status: shared.StatusPending, LandedTotalCost: 30},
			{CostArea: "Boiler", Status: shared.StatusPending, LandedTotalCost: 50},
			{CostArea: "Line-1", Status: shared.StatusRejected, LandedTotalCost: 20},
		},
	}
	svc := NewService(repo, nil, nil)
	area, err := svc.Area(context.Background(), "Line-1")
	require.NoError(t, err)
	require.Equal(t, 30.0, area.Utilized)
	require.Equal(t, 70.0, area.Remaining)
	require.Equal(t, []string{"Line-1"}, repo.areaQueries)
}

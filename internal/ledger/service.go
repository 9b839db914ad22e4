package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Snapshot(ctx context.Context) ([]BudgetHead, []Commitment, error)
	ListHeads(ctx context.Context) ([]BudgetHead, error)
	ListCommitments(ctx context.Context) ([]Commitment, error)
	ListAreaCommitments(ctx context.Context, costArea string) ([]Commitment, error)
	GetHead(ctx context.Context, costArea string) (BudgetHead, error)
}

// Service owns budget heads and the derived ledger view.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the ledger service. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// Status returns the ledger view, served from cache when available.
func (s *Service) Status(ctx context.Context) (Status, error) {
	return s.cache.FetchStatus(ctx, s.Recompute)
}

// Recompute derives the ledger from storage, bypassing the cache.
func (s *Service) Recompute(ctx context.Context) (Status, error) {
	heads, commitments, err := s.repo.Snapshot(ctx)
	if err != nil {
		return Status{}, err
	}
	status := ComputeStatus(heads, commitments)
	status.ComputedAt = s.now().UTC()
	return status, nil
}

// Warm recomputes the ledger and stores it in the cache.
func (s *Service) Warm(ctx context.Context) (Status, error) {
	status, err := s.cache.Refresh(ctx, s.Recompute)
	if err != nil {
		return status, fmt.Errorf("ledger: warm cache: %w", err)
	}
	return status, nil
}

// Area returns the position of one cost area, always computed from storage.
func (s *Service) Area(ctx context.Context, costArea string) (AreaStatus, error) {
	head, err := s.repo.GetHead(ctx, costArea)
	if err != nil {
		return AreaStatus{}, err
	}
	commitments, err := s.repo.ListAreaCommitments(ctx, head.CostArea)
	if err != nil {
		return AreaStatus{}, err
	}
	return Summarize(head, commitments), nil
}

// AreasAbove lists cost areas whose utilization is at least pct percent.
func (s *Service) AreasAbove(ctx context.Context, pct float64) ([]AreaStatus, error) {
	status, err := s.Recompute(ctx)
	if err != nil {
		return nil, err
	}
	return Above(status, pct), nil
}

// StatusBreakdown counts requests per workflow state.
func (s *Service) StatusBreakdown(ctx context.Context) ([]StatusCount, error) {
	commitments, err := s.repo.ListCommitments(ctx)
	if err != nil {
		return nil, err
	}
	return CountByStatus(commitments), nil
}

// Heads lists every budget head.
func (s *Service) Heads(ctx context.Context) ([]BudgetHead, error) {
	return s.repo.ListHeads(ctx)
}

// UpsertHead creates or replaces the head of one cost area.
func (s *Service) UpsertHead(ctx context.Context, actor string, input HeadInput) (BudgetHead, error) {
	input = normalizeHead(input)
	if err := shared.ValidateStruct(input).OrNil(); err != nil {
		return BudgetHead{}, err
	}
	var saved BudgetHead
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		saved, err = tx.UpsertHead(ctx, input)
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, shared.Event{
			At:     s.now().UTC(),
			Actor:  actor,
			Action: shared.ActionBudgetUpdate,
			Description: fmt.Sprintf("Budget head %s (%s) set to %s.",
				saved.CostArea, saved.Department, shared.FormatAmount(saved.TotalBudget)),
		})
	})
	if err != nil {
		return BudgetHead{}, err
	}
	s.Invalidate(ctx)
	return saved, nil
}

// ImportHeads upserts a batch of heads in one transaction. Every row is
// validated before anything is written; a later row for the same cost area wins.
func (s *Service) ImportHeads(ctx context.Context, actor string, rows []HeadInput) (int, error) {
	if len(rows) == 0 {
		return 0, shared.NewValidationError("import contains no rows")
	}
	verr := &shared.ValidationError{}
	normalized := make([]HeadInput, len(rows))
	for i, row := range rows {
		normalized[i] = normalizeHead(row)
		if rowErr := shared.ValidateStruct(normalized[i]); !rowErr.Empty() {
			verr.Add("row %d: %s", i+1, rowErr.Detail())
		}
	}
	if err := verr.OrNil(); err != nil {
		return 0, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, row := range normalized {
			if _, err := tx.UpsertHead(ctx, row); err != nil {
				return err
			}
		}
		return tx.AppendEvent(ctx, shared.Event{
			At:          s.now().UTC(),
			Actor:       actor,
			Action:      shared.ActionBudgetImport,
			Description: fmt.Sprintf("Bulk imported/updated %d budget heads.", len(normalized)),
		})
	})
	if err != nil {
		return 0, err
	}
	s.Invalidate(ctx)
	return len(normalized), nil
}

// ClearHeads deletes every budget head. Requests are retained.
func (s *Service) ClearHeads(ctx context.Context, actor string) (int64, error) {
	var removed int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		removed, err = tx.ClearHeads(ctx)
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, shared.Event{
			At:          s.now().UTC(),
			Actor:       actor,
			Action:      shared.ActionBudgetClear,
			Description: fmt.Sprintf("Cleared all %d budget heads.", removed),
		})
	})
	if err != nil {
		return 0, err
	}
	s.Invalidate(ctx)
	return removed, nil
}

// Invalidate drops the cached ledger view. Failures are logged only; the next
// read after the TTL recomputes regardless.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("ledger cache bump", slog.Any("error", err))
	}
}

func normalizeHead(in HeadInput) HeadInput {
	in.Department = strings.TrimSpace(in.Department)
	in.CostArea = strings.TrimSpace(in.CostArea)
	return in
}

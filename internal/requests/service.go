package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/mnledger/internal/costing"
	"github.com/odyssey-erp/mnledger/internal/ledger"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Request, error)
	GetByMN(ctx context.Context, mn string) (Request, error)
	List(ctx context.Context, filters ListFilters) (ListResult, error)
}

// RatesSource supplies the exchange configuration used to price a request.
type RatesSource interface {
	Rates(ctx context.Context) (costing.Rates, error)
}

// LedgerInvalidator is notified after a committed change to the request set.
type LedgerInvalidator interface {
	Invalidate(ctx context.Context)
}

// SubmissionRecorder counts submission outcomes.
type SubmissionRecorder interface {
	ObserveSubmission(outcome string)
}

// Service orchestrates the request lifecycle.
type Service struct {
	repo     RepositoryPort
	rates    RatesSource
	ledger   LedgerInvalidator
	recorder SubmissionRecorder
	now      func() time.Time
}

// NewService constructs the lifecycle service. ledger and recorder may be nil.
func NewService(repo RepositoryPort, rates RatesSource, ledger LedgerInvalidator, recorder SubmissionRecorder) *Service {
	return &Service{repo: repo, rates: rates, ledger: ledger, recorder: recorder, now: time.Now}
}

// Create validates and books a new request in Pending. Nothing is written
// unless every check passes.
func (s *Service) Create(ctx context.Context, actor string, input Input) (Request, error) {
	req, err := s.create(ctx, actor, input)
	s.observe(err)
	return req, err
}

func (s *Service) create(ctx context.Context, actor string, input Input) (Request, error) {
	rates, err := s.rates.Rates(ctx)
	if err != nil {
		return Request{}, err
	}
	now := s.now()
	today := dateOf(now)
	c, err := check(input.normalized(), rates, today)
	if err != nil {
		return Request{}, err
	}

	req := c.toRequest()
	req.LoggedDate = today
	req.Requester = actor
	req.Status = shared.StatusPending

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.MNExists(ctx, req.MNNumber, 0)
		if err != nil {
			return err
		}
		if exists {
			return shared.Conflictf("MN number %s already exists", req.MNNumber)
		}
		if err := s.checkBudget(ctx, tx, req, 0); err != nil {
			return err
		}
		id, err := tx.Insert(ctx, req)
		if err != nil {
			return err
		}
		req.ID = id
		return tx.AppendEvent(ctx, shared.Event{
			At:     now.UTC(),
			Actor:  actor,
			Action: shared.ActionMNCreate,
			Description: fmt.Sprintf("MN %s submitted against %s for %s.",
				req.MNNumber, req.CostArea, shared.FormatAmount(req.LandedTotalCost)),
		})
	})
	if err != nil {
		return Request{}, err
	}
	s.invalidate(ctx)
	return req, nil
}

// Edit replaces every operator-editable field of an existing request. The
// figures are re-validated as on create. When the cost area is unchanged the
// request's own prior commitment is returned to the available balance.
func (s *Service) Edit(ctx context.Context, actor string, id int64, input Input) (Request, error) {
	rates, err := s.rates.Rates(ctx)
	if err != nil {
		return Request{}, err
	}
	now := s.now()
	c, err := check(input.normalized(), rates, dateOf(now))
	if err != nil {
		return Request{}, err
	}

	var updated Request
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next := c.toRequest()
		next.ID = old.ID
		next.LoggedDate = old.LoggedDate
		next.Requester = old.Requester
		next.Status = old.Status
		if input.IssueDate == "" {
			next.IssueDate = old.IssueDate
		}

		if next.MNNumber != old.MNNumber {
			exists, err := tx.MNExists(ctx, next.MNNumber, old.ID)
			if err != nil {
				return err
			}
			if exists {
				return shared.Conflictf("MN number %s already exists", next.MNNumber)
			}
		}

		var credit float64
		if next.CostArea == old.CostArea && old.Status.Commits() {
			credit = old.LandedTotalCost
		}
		if err := s.checkBudget(ctx, tx, next, credit); err != nil {
			return err
		}
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		updated = next
		return tx.AppendEvent(ctx, shared.Event{
			At:          now.UTC(),
			Actor:       actor,
			Action:      shared.ActionMNAdminEdit,
			Description: describeEdit(old, next),
		})
	})
	if err != nil {
		return Request{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// ChangeStatus moves a request to any workflow state. The transition is
// always permitted and always logged with the before and after states.
func (s *Service) ChangeStatus(ctx context.Context, actor string, id int64, status shared.RequestStatus) (Request, error) {
	if !status.Valid() {
		return Request{}, shared.NewValidationError(fmt.Sprintf("unknown status %q", status))
	}
	var updated Request
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		updated = old
		updated.Status = status
		return tx.AppendEvent(ctx, shared.Event{
			At:          s.now().UTC(),
			Actor:       actor,
			Action:      shared.ActionMNStatusChange,
			Description: fmt.Sprintf("MN ID %d status changed from %s to %s.", id, old.Status, status),
		})
	})
	if err != nil {
		return Request{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Get returns a request by id.
func (s *Service) Get(ctx context.Context, id int64) (Request, error) {
	return s.repo.Get(ctx, id)
}

// GetByMN returns a request by MN number.
func (s *Service) GetByMN(ctx context.Context, mn string) (Request, error) {
	return s.repo.GetByMN(ctx, mn)
}

// List returns a filtered page of requests.
func (s *Service) List(ctx context.Context, filters ListFilters) (ListResult, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return ListResult{}, shared.NewValidationError(fmt.Sprintf("unknown status %q", filters.Status))
	}
	if filters.Limit > 200 {
		filters.Limit = 200
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return s.repo.List(ctx, filters)
}

// checkBudget locks the cost area head and verifies req fits in its remaining
// balance plus credit.
func (s *Service) checkBudget(ctx context.Context, tx TxRepository, req Request, credit float64) error {
	head, err := tx.LockBudgetHead(ctx, req.CostArea)
	if err != nil {
		return err
	}
	if head.Department != req.Department {
		return shared.NewValidationError(fmt.Sprintf("Cost Area %s belongs to department %s, not %s", head.CostArea, head.Department, req.Department))
	}
	commitments, err := tx.AreaCommitments(ctx, req.CostArea)
	if err != nil {
		return err
	}
	available := ledger.Summarize(head, commitments).Remaining + credit
	if req.LandedTotalCost > available {
		return &shared.BudgetExceededError{CostArea: req.CostArea, Requested: req.LandedTotalCost, Remaining: available}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.ledger != nil {
		s.ledger.Invalidate(ctx)
	}
}

func (s *Service) observe(err error) {
	if s.recorder == nil {
		return
	}
	outcome := "accepted"
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrValidation):
		outcome = "validation"
	case errors.Is(err, shared.ErrConflict):
		outcome = "conflict"
	case errors.Is(err, shared.ErrBudgetExceeded):
		outcome = "budget_exceeded"
	case errors.Is(err, shared.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	s.recorder.ObserveSubmission(outcome)
}

func (c checked) toRequest() Request {
	return Request{
		MNNumber:             c.MNNumber,
		IssueDate:            c.issueDate,
		CostArea:             c.CostArea,
		Particulars:          c.Particulars,
		Category:             c.Category,
		Department:           c.Department,
		Location:             c.Location,
		Supplier:             c.Supplier,
		SupplierType:         c.SupplierType,
		Currency:             c.Currency,
		ForeignSpareCost:     c.ForeignSpareCost,
		FreightCharges:       c.FreightCharges,
		CustomsDutyRate:      c.dutyRate,
		LocalCostExclTax:     c.LocalCostExclTax,
		VATTax:               c.VATTax,
		LandedTotalCost:      c.landedTotal,
		DateSentToHeadOffice: c.sentHO,
		Remarks:              c.Remarks,
	}
}

func describeEdit(old, next Request) string {
	desc := fmt.Sprintf("MN ID %d (%s) edited by administrator", old.ID, next.MNNumber)
	if old.MNNumber != next.MNNumber {
		desc += fmt.Sprintf("; MN number %s -> %s", old.MNNumber, next.MNNumber)
	}
	if old.CostArea != next.CostArea {
		desc += fmt.Sprintf("; cost area %s -> %s", old.CostArea, next.CostArea)
	}
	if old.LandedTotalCost != next.LandedTotalCost {
		desc += fmt.Sprintf("; landed cost %s -> %s", shared.FormatAmount(old.LandedTotalCost), shared.FormatAmount(next.LandedTotalCost))
	}
	return desc + "."
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

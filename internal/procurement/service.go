package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/odyssey-erp/mnledger/internal/requests"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListTrackable(ctx context.Context) ([]Trackable, error)
	Get(ctx context.Context, mn string) (Record, error)
	List(ctx context.Context, filters ListFilters) ([]Row, error)
}

// LedgerInvalidator is notified after a request status changes.
type LedgerInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service orchestrates tracker updates.
type Service struct {
	repo   RepositoryPort
	ledger LedgerInvalidator
	now    func() time.Time
}

// NewService constructs the tracker service. ledger may be nil.
func NewService(repo RepositoryPort, ledger LedgerInvalidator) *Service {
	return &Service{repo: repo, ledger: ledger, now: time.Now}
}

// Upsert creates or replaces the tracker record of mn. Entering an LC/PO
// number on a Finance Approved request promotes it to PO Issued in the same
// transaction.
func (s *Service) Upsert(ctx context.Context, actor, mn string, input Input) (UpsertResult, error) {
	in := input.normalized()
	verr := shared.ValidateStruct(in)
	rec := Record{
		MNNumber:              mn,
		LCPONumber:            in.LCPONumber,
		DeliveryCompleted:     in.DeliveryCompleted,
		Remarks:               in.Remarks,
		BillSubmittedByVendor: in.BillSubmittedByVendor,
		BillTrackingID:        in.BillTrackingID,
		BillPaid:              in.BillPaid,
		ActualCost:            in.ActualCost,
	}
	rec.LCPODate = parseDate(in.LCPODate)
	rec.ETA = parseDate(in.ETA)
	rec.DeliveryDate = parseDate(in.DeliveryDate)
	rec.BillSubmittedToAccounts = parseDate(in.BillSubmittedToAccounts)
	rec.BillSubmittedToHeadOffice = parseDate(in.BillSubmittedToHeadOffice)
	if mn == "" {
		verr.AddMissing("MN Number")
	}
	if err := verr.OrNil(); err != nil {
		return UpsertResult{}, err
	}

	var result UpsertResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.LockRequest(ctx, mn)
		if err != nil {
			return err
		}
		if !trackable(req.Status) {
			return shared.NewValidationError(fmt.Sprintf("MN %s is %s; only Finance Approved or PO Issued requests can be tracked", mn, req.Status))
		}
		if err := applySupplierRules(&rec, req.SupplierType); err != nil {
			return err
		}
		if rec.LCPODate != nil {
			delay := delayDays(req.DateSentToHeadOffice, *rec.LCPODate)
			rec.DelayDays = &delay
		}

		now := s.now().UTC()
		result.Status = req.Status
		if rec.LCPONumber != "" && req.Status == shared.StatusFinanceApproved {
			if err := tx.SetRequestStatus(ctx, mn, shared.StatusPOIssued); err != nil {
				return err
			}
			if err := tx.AppendEvent(ctx, shared.Event{
				At:          now,
				Actor:       actor,
				Action:      shared.ActionMNStatusChange,
				Description: fmt.Sprintf("MN %s status changed to 'PO Issued' by LC/PO entry.", mn),
			}); err != nil {
				return err
			}
			result.Status = shared.StatusPOIssued
			result.Promoted = true
		}

		stored, err := tx.Upsert(ctx, rec)
		if err != nil {
			return err
		}
		result.Record = stored
		return tx.AppendEvent(ctx, shared.Event{
			At:          now,
			Actor:       actor,
			Action:      shared.ActionLCPOUpdate,
			Description: fmt.Sprintf("Updated LC/PO tracker for MN %s. LC/PO: %s.", mn, rec.LCPONumber),
		})
	})
	if err != nil {
		return UpsertResult{}, err
	}
	if result.Promoted && s.ledger != nil {
		s.ledger.Invalidate(ctx)
	}
	return result, nil
}

// ListTrackable returns requests that may carry a tracker record.
func (s *Service) ListTrackable(ctx context.Context) ([]Trackable, error) {
	return s.repo.ListTrackable(ctx)
}

// Get returns the tracker record of mn.
func (s *Service) Get(ctx context.Context, mn string) (Record, error) {
	return s.repo.Get(ctx, mn)
}

// List returns the filtered tracking table.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Row, error) {
	return s.repo.List(ctx, filters)
}

// applySupplierRules keeps the vendor bill answer to Yes/No and drops the
// actual cost for local suppliers.
func applySupplierRules(rec *Record, supplierType string) error {
	if supplierType != requests.SupplierLocal {
		return nil
	}
	rec.ActualCost = 0
	switch rec.BillSubmittedByVendor {
	case "":
		rec.BillSubmittedByVendor = VendorBillNo
	case VendorBillYes, VendorBillNo:
	default:
		return shared.NewValidationError(fmt.Sprintf("Bill Submitted by Vendor must be %s or %s for local suppliers", VendorBillYes, VendorBillNo))
	}
	return nil
}

// delayDays is the signed number of days from sending to head office until the LC/PO date.
func delayDays(sentHO, lcpo time.Time) int {
	return int(lcpo.Sub(sentHO).Hours() / 24)
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}

package indents

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListIndents(ctx context.Context) ([]Indent, error)
	ListEligible(ctx context.Context, numbers []string) ([]Indent, error)
	ListBills(ctx context.Context, filters BillFilters) ([]Bill, error)
	GetBill(ctx context.Context, billNo string) (Bill, error)
}

// BillRecorder counts generated bills.
type BillRecorder interface {
	ObserveBill(total float64)
}

// Service orchestrates the indent registry and bill generation.
type Service struct {
	repo     RepositoryPort
	recorder BillRecorder
	now      func() time.Time
}

// NewService constructs the indent service. recorder may be nil.
func NewService(repo RepositoryPort, recorder BillRecorder) *Service {
	return &Service{repo: repo, recorder: recorder, now: time.Now}
}

// CreateIndent adds a Not Purchased line to the registry.
func (s *Service) CreateIndent(ctx context.Context, actor string, input IndentInput) (Indent, error) {
	in := input.normalized()
	if verr := shared.ValidateStruct(in); !verr.Empty() {
		return Indent{}, verr
	}
	now := s.now()
	indent := Indent{
		Number:      in.Number,
		Description: in.Description,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		Rate:        in.Rate,
		TotalAmount: in.Quantity * in.Rate,
		Date:        dateOr(in.Date, now),
		Supplier:    in.Supplier,
		Status:      StatusNotPurchased,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertIndent(ctx, indent)
		if err != nil {
			return err
		}
		indent.ID = id
		return tx.AppendEvent(ctx, shared.Event{
			At:          now.UTC(),
			Actor:       actor,
			Action:      shared.ActionIndentCreate,
			Description: fmt.Sprintf("Added item '%s' to Indent %s.", indent.Description, indent.Number),
		})
	})
	if err != nil {
		return Indent{}, err
	}
	return indent, nil
}

// Registry returns every indent line.
func (s *Service) Registry(ctx context.Context) ([]Indent, error) {
	return s.repo.ListIndents(ctx)
}

// ListEligible returns lines that can still be billed.
func (s *Service) ListEligible(ctx context.Context, numbers []string) ([]Indent, error) {
	return s.repo.ListEligible(ctx, numbers)
}

// GenerateBill records a bill for the selected indent lines and marks them
// Purchased. Header, lines and status flips commit together or not at all.
func (s *Service) GenerateBill(ctx context.Context, actor string, input BillInput) (Bill, error) {
	in := input.normalized()
	verr := shared.ValidateStruct(in)
	if in.PaymentMode != "" && !slices.Contains(PaymentModes, in.PaymentMode) {
		verr.Add("Payment Mode must be one of %s", strings.Join(PaymentModes, ", "))
	}
	if len(in.Lines) == 0 {
		verr.Add("select at least one indent line")
	}
	ids := make([]int64, 0, len(in.Lines))
	seen := make(map[int64]bool, len(in.Lines))
	for _, sel := range in.Lines {
		if seen[sel.IndentID] {
			verr.Add("indent line %d selected more than once", sel.IndentID)
		}
		seen[sel.IndentID] = true
		ids = append(ids, sel.IndentID)
		if sel.Quantity != nil && *sel.Quantity < 0 {
			verr.Add("quantity of indent line %d must not be negative", sel.IndentID)
		}
		if sel.Rate != nil && *sel.Rate < 0 {
			verr.Add("rate of indent line %d must not be negative", sel.IndentID)
		}
	}
	if err := verr.OrNil(); err != nil {
		return Bill{}, err
	}

	now := s.now()
	bill := Bill{
		BillNo:      in.BillNo,
		GRNNo:       in.GRNNo,
		Supplier:    in.Supplier,
		BillDate:    dateOr(in.BillDate, now),
		PaymentMode: in.PaymentMode,
		Remarks:     in.Remarks,
		CreatedAt:   now.UTC(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.BillExists(ctx, bill.BillNo)
		if err != nil {
			return err
		}
		if exists {
			return shared.Conflictf("bill %s already exists", bill.BillNo)
		}
		locked, err := tx.LockIndents(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[int64]Indent, len(locked))
		for _, indent := range locked {
			byID[indent.ID] = indent
		}

		var numbers []string
		for _, sel := range in.Lines {
			indent, ok := byID[sel.IndentID]
			if !ok {
				return shared.NotFoundf("indent line %d", sel.IndentID)
			}
			if indent.Status == StatusPurchased {
				return shared.Conflictf("indent line %d (%s) is already purchased", indent.ID, indent.Number)
			}
			line := BillLine{
				BillNo:      bill.BillNo,
				IndentID:    indent.ID,
				Description: indent.Description,
				Quantity:    indent.Quantity,
				Unit:        indent.Unit,
				Rate:        indent.Rate,
			}
			if sel.Quantity != nil {
				line.Quantity = *sel.Quantity
			}
			if sel.Rate != nil {
				line.Rate = *sel.Rate
			}
			line.Amount = line.Quantity * line.Rate
			bill.Total += line.Amount
			bill.Lines = append(bill.Lines, line)
			if !slices.Contains(numbers, indent.Number) {
				numbers = append(numbers, indent.Number)
			}
		}
		bill.IndentSummary = strings.Join(numbers, ", ")

		if err := tx.InsertBill(ctx, bill); err != nil {
			return err
		}
		flipped, err := tx.MarkPurchased(ctx, ids)
		if err != nil {
			return err
		}
		if flipped != int64(len(ids)) {
			return shared.Conflictf("indent lines changed while bill %s was generated", bill.BillNo)
		}
		return tx.AppendEvent(ctx, shared.Event{
			At:     now.UTC(),
			Actor:  actor,
			Action: shared.ActionBillCreate,
			Description: fmt.Sprintf("Bill %s generated for Indents: %s (%d lines, %s, %s).",
				bill.BillNo, bill.IndentSummary, len(bill.Lines), shared.FormatAmount(bill.Total), bill.PaymentMode),
		})
	})
	if err != nil {
		return Bill{}, err
	}
	if s.recorder != nil {
		s.recorder.ObserveBill(bill.Total)
	}
	return bill, nil
}

// ListBills returns matching bills and their summary.
func (s *Service) ListBills(ctx context.Context, filters BillFilters) ([]Bill, BillSummary, error) {
	bills, err := s.repo.ListBills(ctx, filters)
	if err != nil {
		return nil, BillSummary{}, err
	}
	return bills, SummarizeBills(bills), nil
}

// GetBill returns one bill with its lines.
func (s *Service) GetBill(ctx context.Context, billNo string) (Bill, error) {
	return s.repo.GetBill(ctx, billNo)
}

// SummarizeBills totals bills overall and per payment mode.
func SummarizeBills(bills []Bill) BillSummary {
	sum := BillSummary{ByPaymentMode: make(map[string]float64)}
	for _, b := range bills {
		sum.Count++
		sum.Total += b.Total
		sum.ByPaymentMode[b.PaymentMode] += b.Total
	}
	sum.Cash = sum.ByPaymentMode[PaymentCash]
	sum.Cheque = sum.ByPaymentMode[PaymentCheque]
	return sum
}

func dateOr(raw string, now time.Time) time.Time {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Package ledger computes budget utilization per cost area and maintains the
// budget heads it is measured against.
package ledger

import (
	"time"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

// BudgetHead is the allocation of one cost area.
type BudgetHead struct {
	ID          int64   `json:"id"`
	Department  string  `json:"department"`
	CostArea    string  `json:"cost_area"`
	TotalBudget float64 `json:"total_budget"`
}

// Commitment is the slice of a request the ledger needs.
type Commitment struct {
	CostArea        string
	Status          shared.RequestStatus
	LandedTotalCost float64
}

// AreaStatus is the derived position of one cost area.
type AreaStatus struct {
	CostArea       string  `json:"cost_area"`
	Department     string  `json:"department"`
	TotalBudget    float64 `json:"total_budget"`
	Utilized       float64 `json:"utilized"`
	Approved       float64 `json:"approved"`
	Remaining      float64 `json:"remaining"`
	UtilizationPct float64 `json:"utilization_pct"`
}

// Totals are the column sums over every area.
type Totals struct {
	TotalBudget    float64 `json:"total_budget"`
	Utilized       float64 `json:"utilized"`
	Approved       float64 `json:"approved"`
	Remaining      float64 `json:"remaining"`
	UtilizationPct float64 `json:"utilization_pct"`
}

// Status is the full ledger view.
type Status struct {
	Areas      []AreaStatus `json:"areas"`
	Totals     Totals       `json:"totals"`
	ComputedAt time.Time    `json:"computed_at"`
}

// HeadInput is a manual entry or one row of a bulk import.
type HeadInput struct {
	Department  string  `json:"department" label:"Department" validate:"required"`
	CostArea    string  `json:"cost_area" label:"Cost Area" validate:"required"`
	TotalBudget float64 `json:"total_budget" label:"Total Budget" validate:"gte=0"`
}

// StatusCount is the number of requests in one workflow state.
type StatusCount struct {
	Status shared.RequestStatus `json:"status"`
	Count  int                  `json:"count"`
}

package ledger

import "github.com/odyssey-erp/mnledger/internal/shared"

// ComputeStatus derives the ledger from the budget heads and the current set of
// requests. Requests whose cost area has no head are ignored; rejected requests
// never count. The result depends only on its inputs.
func ComputeStatus(heads []BudgetHead, commitments []Commitment) Status {
	byArea := make(map[string][]Commitment, len(heads))
	for _, c := range commitments {
		byArea[c.CostArea] = append(byArea[c.CostArea], c)
	}

	status := Status{Areas: make([]AreaStatus, 0, len(heads))}
	for _, head := range heads {
		status.Areas = append(status.Areas, Summarize(head, byArea[head.CostArea]))
	}
	status.Totals = TotalsOf(status.Areas)
	return status
}

// TotalsOf sums the columns of areas.
func TotalsOf(areas []AreaStatus) Totals {
	var t Totals
	for _, area := range areas {
		t.TotalBudget += area.TotalBudget
		t.Utilized += area.Utilized
		t.Approved += area.Approved
		t.Remaining += area.Remaining
	}
	t.UtilizationPct = utilization(t.Utilized, t.TotalBudget)
	return t
}

// Summarize computes the position of head from the commitments booked against
// it. Commitments for other cost areas are skipped.
func Summarize(head BudgetHead, commitments []Commitment) AreaStatus {
	area := AreaStatus{
		CostArea:    head.CostArea,
		Department:  head.Department,
		TotalBudget: head.TotalBudget,
	}
	for _, c := range commitments {
		if c.CostArea != head.CostArea || !c.Status.Commits() {
			continue
		}
		area.Utilized += c.LandedTotalCost
		if c.Status.Approved() {
			area.Approved += c.LandedTotalCost
		}
	}
	area.Remaining = area.TotalBudget - area.Utilized
	area.UtilizationPct = utilization(area.Utilized, area.TotalBudget)
	return area
}

// CountByStatus tallies requests per workflow state in display order.
func CountByStatus(commitments []Commitment) []StatusCount {
	counts := make(map[shared.RequestStatus]int, len(shared.RequestStatuses))
	for _, c := range commitments {
		counts[c.Status]++
	}
	out := make([]StatusCount, 0, len(shared.RequestStatuses))
	for _, s := range shared.RequestStatuses {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

func utilization(utilized, total float64) float64 {
	if total == 0 {
		return 0
	}
	return utilized / total * 100
}

// Above filters areas with a non-zero budget whose utilization reached pct.
func Above(status Status, pct float64) []AreaStatus {
	var out []AreaStatus
	for _, area := range status.Areas {
		if area.TotalBudget > 0 && area.UtilizationPct >= pct {
			out = append(out, area)
		}
	}
	return out
}

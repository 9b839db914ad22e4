package requests

import (
	"errors"
	"regexp"
	"slices"
	"time"

	"github.com/odyssey-erp/mnledger/internal/costing"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

var mnPattern = regexp.MustCompile(`^[A-Z]{3}/\d{3}/\d{4}$`)

// ValidMNNumber reports whether mn has the AAA/000/0000 shape.
func ValidMNNumber(mn string) bool {
	return mnPattern.MatchString(mn)
}

// checked is an Input that passed validation, with its derived figures.
type checked struct {
	Input
	issueDate   time.Time
	sentHO      time.Time
	dutyRate    float64
	landedTotal float64
}

// check validates in and computes its landed cost under rates. All problems
// are reported together; the returned error is nil or a *shared.ValidationError.
func check(in Input, rates costing.Rates, today time.Time) (checked, error) {
	verr := shared.ValidateStruct(in)
	out := checked{Input: in}

	if in.MNNumber != "" && !ValidMNNumber(in.MNNumber) {
		verr.Add("MN Number %q must match the format AAA/000/0000", in.MNNumber)
	}
	if in.Category != "" && !slices.Contains(Categories, in.Category) {
		verr.Add("MN Category %q is not recognised", in.Category)
	}

	out.issueDate = today
	if d, err := time.Parse(DateLayout, in.IssueDate); err == nil {
		out.issueDate = d
	}
	if d, err := time.Parse(DateLayout, in.DateSentToHeadOffice); err == nil {
		out.sentHO = d
	}

	if in.Currency != "" && len(in.costs().Negative()) == 0 {
		quote, err := costing.QuoteWith(rates, in.Currency, in.costs(), in.CustomsDutyRate == nil)
		if err != nil {
			var qerr *shared.ValidationError
			if errors.As(err, &qerr) {
				verr.Problems = append(verr.Problems, qerr.Problems...)
			} else {
				verr.Add("%v", err)
			}
		} else {
			out.dutyRate = quote.CustomsDutyRate
			out.landedTotal = quote.LandedTotalCost
			if out.landedTotal <= 0 {
				verr.Add("Landed Total Cost must be greater than 0")
			}
		}
	}
	return out, verr.OrNil()
}

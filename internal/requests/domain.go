// Package requests drives Management Notifications (MN) from submission through
// the approval workflow, enforcing the cost area budget on every write.
package requests

import (
	"strings"
	"time"

	"github.com/odyssey-erp/mnledger/internal/costing"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

// Supplier types.
const (
	SupplierLocal   = "Local"
	SupplierForeign = "Foreign"
)

// MN categories.
const (
	CategoryRepairMaintenance    = "R&M (Repair & Maintenance)"
	CategoryChemicalsConsumables = "C&C (Chemicals & Consumables)"
)

// Categories lists the accepted MN categories.
var Categories = []string{CategoryRepairMaintenance, CategoryChemicalsConsumables}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Request is a Management Notification.
type Request struct {
	ID                   int64                `json:"id"`
	MNNumber             string               `json:"mn_number"`
	IssueDate            time.Time            `json:"issue_date"`
	LoggedDate           time.Time            `json:"logged_date"`
	Requester            string               `json:"requester"`
	CostArea             string               `json:"cost_area"`
	Particulars          string               `json:"particulars"`
	Category             string               `json:"category"`
	Department           string               `json:"department"`
	Location             string               `json:"location"`
	Supplier             string               `json:"supplier"`
	SupplierType         string               `json:"supplier_type"`
	Currency             string               `json:"currency"`
	ForeignSpareCost     float64              `json:"foreign_spare_cost"`
	FreightCharges       float64              `json:"freight_charges"`
	CustomsDutyRate      float64              `json:"customs_duty_rate"`
	LocalCostExclTax     float64              `json:"local_cost_excl_tax"`
	VATTax               float64              `json:"vat_tax"`
	LandedTotalCost      float64              `json:"landed_total_cost"`
	Status               shared.RequestStatus `json:"status"`
	DateSentToHeadOffice time.Time            `json:"date_sent_to_head_office"`
	Remarks              string               `json:"remarks"`
}

// Input carries the operator supplied fields of a submission or full edit.
// When CustomsDutyRate is nil the configured duty applies.
type Input struct {
	MNNumber             string   `json:"mn_number" label:"MN Number" validate:"required"`
	IssueDate            string   `json:"issue_date" label:"Date of Issue" validate:"omitempty,datetime=2006-01-02"`
	Category             string   `json:"category" label:"MN Category" validate:"required"`
	Department           string   `json:"department" label:"Department" validate:"required"`
	CostArea             string   `json:"cost_area" label:"Cost Area" validate:"required"`
	Location             string   `json:"location" label:"Location" validate:"required"`
	Supplier             string   `json:"supplier" label:"Supplier/Vendor" validate:"required"`
	SupplierType         string   `json:"supplier_type" label:"Supplier Type" validate:"required,oneof=Local Foreign"`
	Currency             string   `json:"currency" label:"Currency" validate:"required"`
	Particulars          string   `json:"particulars" label:"MN Particulars" validate:"required,max=200"`
	DateSentToHeadOffice string   `json:"date_sent_to_head_office" label:"Date of Sending To HO" validate:"required,datetime=2006-01-02"`
	Remarks              string   `json:"remarks" label:"Remarks"`
	ForeignSpareCost     float64  `json:"foreign_spare_cost" label:"Foreign Spare Cost" validate:"gte=0"`
	FreightCharges       float64  `json:"freight_charges" label:"Freight Charges" validate:"gte=0"`
	CustomsDutyRate      *float64 `json:"customs_duty_rate,omitempty" label:"Customs Duty Rate" validate:"omitempty,gte=0,lte=1"`
	LocalCostExclTax     float64  `json:"local_cost_excl_tax" label:"Local Cost (excl. tax)" validate:"gte=0"`
	VATTax               float64  `json:"vat_tax" label:"VAT/Tax" validate:"gte=0"`
}

func (in Input) normalized() Input {
	trim := func(s *string) { *s = strings.TrimSpace(*s) }
	for _, f := range []*string{
		&in.MNNumber, &in.IssueDate, &in.Category, &in.Department, &in.CostArea, &in.Location,
		&in.Supplier, &in.SupplierType, &in.Currency, &in.Particulars, &in.DateSentToHeadOffice, &in.Remarks,
	} {
		trim(f)
	}
	return in
}

func (in Input) costs() costing.CostInput {
	c := costing.CostInput{
		ForeignSpareCost: in.ForeignSpareCost,
		FreightCharges:   in.FreightCharges,
		LocalCostExclTax: in.LocalCostExclTax,
		VATTax:           in.VATTax,
	}
	if in.CustomsDutyRate != nil {
		c.CustomsDutyRate = *in.CustomsDutyRate
	}
	return c
}

// ListFilters narrows a request listing.
type ListFilters struct {
	Status       shared.RequestStatus
	CostArea     string
	SupplierType string
	Search       string
	Limit        int
	Offset       int
}

// ListResult is one page of requests.
type ListResult struct {
	Requests []Request `json:"requests"`
	Total    int       `json:"total"`
}

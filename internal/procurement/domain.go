// Package procurement tracks LC/PO issuance, delivery and bill payment for
// approved Management Notifications.
package procurement

import (
	"slices"
	"strings"
	"time"

	"github.com/odyssey-erp/mnledger/internal/shared"
)

// Vendor bill answers accepted for local suppliers.
const (
	VendorBillYes = "Yes"
	VendorBillNo  = "No"
)

// TrackableStatuses are the request states that may carry a tracker record.
var TrackableStatuses = []shared.RequestStatus{shared.StatusFinanceApproved, shared.StatusPOIssued}

// Record is the procurement and payment progress of one request.
type Record struct {
	MNNumber                  string     `json:"mn_number"`
	LCPONumber                string     `json:"lc_po_number"`
	LCPODate                  *time.Time `json:"lc_po_date"`
	ETA                       *time.Time `json:"eta"`
	DeliveryCompleted         bool       `json:"delivery_completed"`
	DeliveryDate              *time.Time `json:"delivery_date"`
	Remarks                   string     `json:"remarks"`
	DelayDays                 *int       `json:"delay_days"`
	BillSubmittedByVendor     string     `json:"bill_submitted_by_vendor"`
	BillTrackingID            string     `json:"bill_tracking_id"`
	BillSubmittedToAccounts   *time.Time `json:"bill_submitted_to_accounts"`
	BillSubmittedToHeadOffice *time.Time `json:"bill_submitted_to_head_office"`
	BillPaid                  bool       `json:"bill_paid"`
	ActualCost                float64    `json:"actual_cost"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

// Trackable summarises a request eligible for tracking.
type Trackable struct {
	MNNumber             string               `json:"mn_number"`
	Particulars          string               `json:"particulars"`
	CostArea             string               `json:"cost_area"`
	Supplier             string               `json:"supplier"`
	SupplierType         string               `json:"supplier_type"`
	Status               shared.RequestStatus `json:"status"`
	DateSentToHeadOffice time.Time            `json:"date_sent_to_head_office"`
}

// Row joins a tracker record with its request for the tracking table.
type Row struct {
	Trackable
	Record Record `json:"record"`
}

// Input carries the operator supplied tracker fields. Dates are YYYY-MM-DD and
// may be empty.
type Input struct {
	LCPONumber                string  `json:"lc_po_number" label:"LC Nr. / PO Nr."`
	LCPODate                  string  `json:"lc_po_date" label:"Date of LC/PO" validate:"omitempty,datetime=2006-01-02"`
	ETA                       string  `json:"eta" label:"ETA Shipment/Delivery Date" validate:"omitempty,datetime=2006-01-02"`
	DeliveryCompleted         bool    `json:"delivery_completed"`
	DeliveryDate              string  `json:"delivery_date" label:"Date of Delivery" validate:"omitempty,datetime=2006-01-02"`
	Remarks                   string  `json:"remarks"`
	BillSubmittedByVendor     string  `json:"bill_submitted_by_vendor"`
	BillTrackingID            string  `json:"bill_tracking_id"`
	BillSubmittedToAccounts   string  `json:"bill_submitted_to_accounts" label:"Date of Bill Submit to Acc." validate:"omitempty,datetime=2006-01-02"`
	BillSubmittedToHeadOffice string  `json:"bill_submitted_to_head_office" label:"Date of Bill Submit to HO" validate:"omitempty,datetime=2006-01-02"`
	BillPaid                  bool    `json:"bill_paid"`
	ActualCost                float64 `json:"actual_cost" label:"Actual LC Costing" validate:"gte=0"`
}

// ListFilters narrows the tracking table. Nil booleans match both values.
type ListFilters struct {
	LCPONumber   string
	SupplierType string
	Delivered    *bool
	Paid         *bool
}

// UpsertResult reports the stored record and whether the request was promoted.
type UpsertResult struct {
	Record   Record               `json:"record"`
	Status   shared.RequestStatus `json:"status"`
	Promoted bool                 `json:"promoted"`
}

func (in Input) normalized() Input {
	in.LCPONumber = strings.TrimSpace(in.LCPONumber)
	in.LCPODate = strings.TrimSpace(in.LCPODate)
	in.ETA = strings.TrimSpace(in.ETA)
	in.DeliveryDate = strings.TrimSpace(in.DeliveryDate)
	in.Remarks = strings.TrimSpace(in.Remarks)
	in.BillSubmittedByVendor = strings.TrimSpace(in.BillSubmittedByVendor)
	in.BillTrackingID = strings.TrimSpace(in.BillTrackingID)
	in.BillSubmittedToAccounts = strings.TrimSpace(in.BillSubmittedToAccounts)
	in.BillSubmittedToHeadOffice = strings.TrimSpace(in.BillSubmittedToHeadOffice)
	return in
}

func trackable(status shared.RequestStatus) bool {
	return slices.Contains(TrackableStatuses, status)
}

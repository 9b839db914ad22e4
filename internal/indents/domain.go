// Package indents keeps the standalone indent registry and turns selected
// indent lines into purchase bills.
package indents

import (
	"strings"
	"time"
)

// Indent line states. A line only moves to Purchased when it is billed.
const (
	StatusNotPurchased = "Not Purchased"
	StatusPurchased    = "Purchased"
)

// Units lists the accepted units of measure.
var Units = []string{"Nos", "Sets", "Kg", "Ltr", "Mtr", "Pkt", "Roll", "Box"}

// Payment modes.
const (
	PaymentCash         = "Cash"
	PaymentBankTransfer = "Bank Transfer"
	PaymentCheque       = "Cheque"
	PaymentCredit       = "Credit"
)

// PaymentModes lists the accepted payment modes.
var PaymentModes = []string{PaymentCash, PaymentBankTransfer, PaymentCheque, PaymentCredit}

const dateLayout = "2006-01-02"

// Indent is one registry line.
type Indent struct {
	ID          int64     `json:"indent_id"`
	Number      string    `json:"indent_number"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	Rate        float64   `json:"rate"`
	TotalAmount float64   `json:"total_amount"`
	Date        time.Time `json:"indent_date"`
	Supplier    string    `json:"supplier"`
	Status      string    `json:"status"`
}

// IndentInput is the payload for a new registry line.
type IndentInput struct {
	Number      string  `json:"indent_number" label:"Indent Number" validate:"required"`
	Date        string  `json:"indent_date" label:"Indent Date" validate:"omitempty,datetime=2006-01-02"`
	Description string  `json:"description" label:"Goods Description" validate:"required"`
	Quantity    float64 `json:"quantity" label:"Quantity" validate:"gt=0"`
	Unit        string  `json:"unit" label:"Unit" validate:"required,oneof=Nos Sets Kg Ltr Mtr Pkt Roll Box"`
	Rate        float64 `json:"rate" label:"Rate" validate:"gte=0"`
	Supplier    string  `json:"supplier" label:"Supplier"`
}

// LineSelection picks one indent line for a bill. Nil overrides keep the
// registry quantity and rate.
type LineSelection struct {
	IndentID int64    `json:"indent_id"`
	Quantity *float64 `json:"quantity,omitempty"`
	Rate     *float64 `json:"rate,omitempty"`
}

// BillInput is the payload for bill generation.
type BillInput struct {
	BillNo      string          `json:"bill_no" label:"Bill No" validate:"required"`
	Supplier    string          `json:"supplier" label:"Supplier Name" validate:"required"`
	BillDate    string          `json:"bill_date" label:"Bill Date" validate:"omitempty,datetime=2006-01-02"`
	GRNNo       string          `json:"grn_no" label:"GRN No"`
	PaymentMode string          `json:"payment_mode" label:"Payment Mode" validate:"required"`
	Remarks     string          `json:"remarks" label:"Remarks"`
	Lines       []LineSelection `json:"lines"`
}

// Bill is a purchase bill header with its lines.
type Bill struct {
	BillNo        string     `json:"bill_no"`
	IndentSummary string     `json:"indent_no_summary"`
	GRNNo         string     `json:"grn_no"`
	Supplier      string     `json:"supplier"`
	BillDate      time.Time  `json:"bill_date"`
	PaymentMode   string     `json:"payment_mode"`
	Total         float64    `json:"total_bill_amount"`
	Remarks       string     `json:"remarks"`
	CreatedAt     time.Time  `json:"created_at"`
	Lines         []BillLine `json:"lines,omitempty"`
}

// BillLine is one billed indent line.
type BillLine struct {
	ID          int64   `json:"id"`
	BillNo      string  `json:"bill_no"`
	IndentID    int64   `json:"indent_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// BillFilters narrows the bill listing. Search matches bill or indent numbers.
type BillFilters struct {
	Search      string
	Supplier    string
	PaymentMode string
}

// BillSummary totals a set of bills.
type BillSummary struct {
	Count         int                `json:"count"`
	Total         float64            `json:"total"`
	Cash          float64            `json:"cash"`
	Cheque        float64            `json:"cheque"`
	ByPaymentMode map[string]float64 `json:"by_payment_mode"`
}

func (in IndentInput) normalized() IndentInput {
	in.Number = strings.TrimSpace(in.Number)
	in.Date = strings.TrimSpace(in.Date)
	in.Description = strings.TrimSpace(in.Description)
	in.Unit = strings.TrimSpace(in.Unit)
	in.Supplier = strings.TrimSpace(in.Supplier)
	return in
}

func (in BillInput) normalized() BillInput {
	in.BillNo = strings.TrimSpace(in.BillNo)
	in.Supplier = strings.TrimSpace(in.Supplier)
	in.BillDate = strings.TrimSpace(in.BillDate)
	in.GRNNo = strings.TrimSpace(in.GRNNo)
	in.PaymentMode = strings.TrimSpace(in.PaymentMode)
	in.Remarks = strings.TrimSpace(in.Remarks)
	return in
}

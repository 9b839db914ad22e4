// Package costing converts foreign spend into the base currency and computes
// the landed total cost of a request.
package costing

// CostInput carries the cost components of a request.
type CostInput struct {
	ForeignSpareCost float64 `json:"foreign_spare_cost"`
	FreightCharges   float64 `json:"freight_charges"`
	CustomsDutyRate  float64 `json:"customs_duty_rate"`
	LocalCostExclTax float64 `json:"local_cost_excl_tax"`
	VATTax           float64 `json:"vat_tax"`
}

// LandedTotal computes
//
//	(foreign_spare_cost × (1 + customs_duty_rate) + freight_charges) × exchange_rate
//	+ local_cost_excl_tax + vat_tax
//
// in float64, evaluated left to right. Each product is converted explicitly so
// the compiler cannot fuse it into a multiply-add; the result is identical on
// every architecture.
func LandedTotal(in CostInput, exchangeRate float64) float64 {
	dutied := float64(in.ForeignSpareCost * (1 + in.CustomsDutyRate))
	converted := float64((dutied + in.FreightCharges) * exchangeRate)
	return converted + in.LocalCostExclTax + in.VATTax
}

// Negative reports the labels of components that are below zero.
func (in CostInput) Negative() []string {
	var out []string
	if in.ForeignSpareCost < 0 {
		out = append(out, "Foreign Spare Cost")
	}
	if in.FreightCharges < 0 {
		out = append(out, "Freight Charges")
	}
	if in.CustomsDutyRate < 0 {
		out = append(out, "Customs Duty Rate")
	}
	if in.LocalCostExclTax < 0 {
		out = append(out, "Local Cost (excl. tax)")
	}
	if in.VATTax < 0 {
		out = append(out, "VAT/Tax")
	}
	return out
}

package shared

// RequestStatus is a stage of the MN approval workflow.
type RequestStatus string

// Request workflow states.
const (
	StatusPending         RequestStatus = "Pending"
	StatusApprovedBySRPM  RequestStatus = "Approved by SRPM"
	StatusApprovedByAD    RequestStatus = "Approved by AD"
	StatusFinanceApproved RequestStatus = "Finance Approved"
	StatusRejected        RequestStatus = "Rejected"
	StatusPOIssued        RequestStatus = "PO Issued"
	StatusCompleted       RequestStatus = "Completed"
)

// RequestStatuses lists the workflow states in display order.
var RequestStatuses = []RequestStatus{
	StatusPending,
	StatusApprovedBySRPM,
	StatusApprovedByAD,
	StatusFinanceApproved,
	StatusRejected,
	StatusPOIssued,
	StatusCompleted,
}

// Valid reports whether s belongs to the workflow.
func (s RequestStatus) Valid() bool {
	for _, known := range RequestStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Commits reports whether a request in this state consumes budget.
func (s RequestStatus) Commits() bool {
	return s != StatusRejected
}

// Approved reports whether the request has cleared finance.
func (s RequestStatus) Approved() bool {
	switch s {
	case StatusFinanceApproved, StatusPOIssued, StatusCompleted:
		return true
	}
	return false
}

package domain

import "time"

// EmployeeRequestStatus enumerates review states for staff-access requests.
type EmployeeRequestStatus string

const (
	RequestPending  EmployeeRequestStatus = "PENDING"
	RequestApproved EmployeeRequestStatus = "APPROVED"
	RequestRejected EmployeeRequestStatus = "REJECTED"
)

// Reviewed reports whether the status is a review outcome.
func (s EmployeeRequestStatus) Reviewed() bool {
	return s == RequestApproved || s == RequestRejected
}

// EmployeeRequest records a petition for a staff account, submitted without
// authentication from the public site. An administrator approves or rejects
// it; account provisioning itself happens out of band.
type EmployeeRequest struct {
	ID           string
	Email        string
	Reason       string
	Status       EmployeeRequestStatus
	RequestedAt  time.Time
	ReviewedAt   *time.Time
	ReviewedByID *string
}

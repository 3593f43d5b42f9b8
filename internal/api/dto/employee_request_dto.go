package dto

import (
	"time"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// EmployeeRequestCreate payload for the public petition form.
type EmployeeRequestCreate struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// EmployeeRequestReview payload.
type EmployeeRequestReview struct {
	Status domain.EmployeeRequestStatus `json:"status"`
}

// EmployeeRequestResponse represents one petition.
type EmployeeRequestResponse struct {
	ID           string                       `json:"id"`
	Email        string                       `json:"email"`
	Reason       string                       `json:"reason"`
	Status       domain.EmployeeRequestStatus `json:"status"`
	RequestedAt  time.Time                    `json:"requested_at"`
	ReviewedAt   *time.Time                   `json:"reviewed_at"`
	ReviewedByID *string                      `json:"reviewed_by_id"`
}

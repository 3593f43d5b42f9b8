package domain

import "time"

// Role enumerates portal roles, staff and end-user alike.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleSupervisor Role = "SUPERVISOR"
	RoleEmployee   Role = "EMPLOYEE"
	RoleUser       Role = "USER"
)

// Capability names an operation a role may perform.
type Capability string

const (
	CapSubmitComplaint    Capability = "submit_complaint"
	CapViewAllComplaints  Capability = "view_all_complaints"
	CapUpdateStatus       Capability = "update_status"
	CapAssignComplaints   Capability = "assign_complaints"
	CapEscalateComplaints Capability = "escalate_complaints"
	CapAddNotes           Capability = "add_notes"
	CapViewReports        Capability = "view_reports"
	CapSendPersonalNotes  Capability = "send_personal_notes"
	CapReadPersonalNotes  Capability = "read_personal_notes"
	CapReviewStaffAccess  Capability = "review_staff_access"
)

// roleCapabilities is the closed capability table. Triage operations are
// restricted to the staff roles; plain users can only submit and view their
// own complaints. Admins author personal notes and review staff-access
// requests; the remaining staff roles are the note recipients.
var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleAdmin: capSet(
		CapSubmitComplaint, CapViewAllComplaints, CapUpdateStatus,
		CapAssignComplaints, CapEscalateComplaints, CapAddNotes, CapViewReports,
		CapSendPersonalNotes, CapReviewStaffAccess,
	),
	RoleManager: capSet(
		CapSubmitComplaint, CapViewAllComplaints, CapUpdateStatus,
		CapAssignComplaints, CapEscalateComplaints, CapAddNotes, CapViewReports,
		CapReadPersonalNotes,
	),
	RoleSupervisor: capSet(
		CapSubmitComplaint, CapViewAllComplaints, CapUpdateStatus, CapAddNotes, CapViewReports,
		CapReadPersonalNotes,
	),
	RoleEmployee: capSet(
		CapSubmitComplaint, CapViewAllComplaints, CapAddNotes, CapReadPersonalNotes,
	),
	RoleUser: capSet(CapSubmitComplaint),
}

func capSet(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Can reports whether the role holds the capability.
func (r Role) Can(cap Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, allowed := caps[cap]
	return allowed
}

// AssignmentEligible reports whether the role may be the target of an
// assignment or escalation.
func (r Role) AssignmentEligible() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleSupervisor || r == RoleEmployee
}

// User models any portal identity: submitters and staff.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

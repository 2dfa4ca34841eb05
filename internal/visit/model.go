// Package visit provides the rental visit domain model and the rules
// for which lifecycle actions may be offered on a visit.
package visit

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a visit.
type Status string

const (
	Scheduled Status = "scheduled"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
)

// ValidStatuses is the set of allowed visit statuses.
var ValidStatuses = []Status{Scheduled, Completed, Cancelled}

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the status.
func (s Status) Label() string {
	switch s {
	case Scheduled:
		return "Scheduled"
	case Completed:
		return "Completed"
	case Cancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid status: %q (use scheduled, completed, cancelled)", s)
	}
	return st, nil
}

// Decision is a party's post-visit interest signal. The zero value means
// no decision has been recorded.
type Decision string

const (
	Interested    Decision = "interested"
	NotInterested Decision = "not_interested"
	Undecided     Decision = "undecided"
)

// ValidDecisions is the set of decisions a party may submit.
var ValidDecisions = []Decision{Interested, NotInterested, Undecided}

// IsValid checks if a decision is one that can be submitted.
func (d Decision) IsValid() bool {
	for _, v := range ValidDecisions {
		if d == v {
			return true
		}
	}
	return false
}

// IsFinal reports whether the decision settles the party's interest.
func (d Decision) IsFinal() bool {
	return d == Interested || d == NotInterested
}

// Label returns a human-readable label for the decision.
func (d Decision) Label() string {
	switch d {
	case Interested:
		return "Interested"
	case NotInterested:
		return "Not interested"
	case Undecided:
		return "Undecided"
	case "":
		return "-"
	default:
		return string(d)
	}
}

// ParseDecision converts user input into a Decision.
func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid decision: %q (use interested, not_interested, undecided)", s)
	}
	return d, nil
}

// Role is the acting user's relationship to a visit.
type Role string

const (
	Tenant Role = "tenant"
	Owner  Role = "owner"
	Staff  Role = "staff"
)

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case Tenant, Owner, Staff:
		return r, nil
	default:
		return "", fmt.Errorf("invalid role: %q (use tenant, owner, staff)", s)
	}
}

// Visit represents one scheduled or historical viewing of a listing.
// Timestamps are kept as the ISO-8601 strings the server sends.
type Visit struct {
	ID                  string   `json:"visit_id"`
	ListingID           string   `json:"listing_id"`
	TenantID            string   `json:"tenant_id"`
	RepID               string   `json:"rep_id,omitempty"`
	VisitDatetime       string   `json:"visit_datetime"`
	Status              Status   `json:"status"`
	VisitNotes          string   `json:"visit_notes,omitempty"`
	TenantFeedback      string   `json:"tenant_feedback,omitempty"`
	RepFeedback         string   `json:"rep_feedback,omitempty"`
	TenantDecision      Decision `json:"tenant_decision,omitempty"`
	OwnerDecision       Decision `json:"owner_decision,omitempty"`
	TenantDecisionNotes string   `json:"tenant_decision_notes,omitempty"`
	OwnerDecisionNotes  string   `json:"owner_decision_notes,omitempty"`
	CreatedAt           string   `json:"created_at,omitempty"`
	UpdatedAt           string   `json:"updated_at,omitempty"`
}

// DecisionFor returns the decision field owned by role.
// Staff owns no decision and always gets the zero value.
func (v *Visit) DecisionFor(role Role) Decision {
	switch role {
	case Tenant:
		return v.TenantDecision
	case Owner:
		return v.OwnerDecision
	default:
		return ""
	}
}

// ScheduledAt parses the visit datetime. Used for display only.
func (v *Visit) ScheduledAt() (time.Time, error) {
	return ParseDatetime(v.VisitDatetime)
}

// ParseDatetime parses an ISO-8601 instant as sent by the API.
func ParseDatetime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime (use ISO-8601, e.g. 2030-01-01T10:00:00Z): %w", err)
	}
	return t, nil
}

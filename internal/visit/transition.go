package visit

// Action is a lifecycle control that can be offered for a visit.
type Action string

const (
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
	ActionDecide   Action = "decide"
)

// transitions lists the legal status changes. Completed and cancelled are
// terminal.
var transitions = map[Status][]Status{
	Scheduled: {Completed, Cancelled},
}

// CanTransition reports whether a visit may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanCancel reports whether a cancel control should be offered.
func CanCancel(v *Visit) bool {
	return v.Status == Scheduled
}

// CanMarkComplete reports whether a mark-complete control should be offered.
func CanMarkComplete(v *Visit) bool {
	return v.Status == Scheduled
}

// NeedsDecision reports whether role still owes a decision on a completed visit.
func NeedsDecision(v *Visit, role Role) bool {
	if v.Status != Completed {
		return false
	}
	if role != Tenant && role != Owner {
		return false
	}
	return !v.DecisionFor(role).IsFinal()
}

// CanDecide reports whether role may submit or change its decision.
// Resubmission after a final decision is allowed.
func CanDecide(v *Visit, role Role) bool {
	return v.Status == Completed && (role == Tenant || role == Owner)
}

// IsMatch reports whether both parties are interested.
func IsMatch(v *Visit) bool {
	return v.TenantDecision == Interested && v.OwnerDecision == Interested
}

// Actions returns the controls to offer role for v, in display order.
func Actions(v *Visit, role Role) []Action {
	var actions []Action
	if CanMarkComplete(v) {
		actions = append(actions, ActionComplete)
	}
	if CanCancel(v) {
		actions = append(actions, ActionCancel)
	}
	if CanDecide(v, role) {
		actions = append(actions, ActionDecide)
	}
	return actions
}

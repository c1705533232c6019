package grade

import "fmt"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusDisputed  Status = "disputed"
	StatusFinal     Status = "final"
)

var AllStatuses = []Status{StatusDraft, StatusSubmitted, StatusApproved, StatusDisputed, StatusFinal}

// transitions is the single source of legal status changes.
// disputed -> submitted (resubmission) is the only backward edge.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusDisputed},
	StatusApproved:  {StatusFinal},
	StatusDisputed:  {StatusSubmitted},
	StatusFinal:     {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether target is a legal next status for s.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// History actions, one per accepted transition plus record-level events.
const (
	ActionCreated        = "created"
	ActionUpdated        = "updated"
	ActionSubmitted      = "submitted"
	ActionApproved       = "approved"
	ActionDisputed       = "disputed"
	ActionFinalized      = "finalized"
	ActionDeleted        = "deleted"
	ActionAutoCalculated = "auto_calculated"
)

// StateTransitionError indicates an illegal status change attempt.
// The record is left untouched whenever it is returned.
type StateTransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *StateTransitionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

func newTransitionErr(from, to Status) error {
	return &StateTransitionError{From: from, To: to}
}

// IsStateTransitionError reports whether err is a StateTransitionError.
func IsStateTransitionError(err error) bool {
	_, ok := err.(*StateTransitionError)
	return ok
}

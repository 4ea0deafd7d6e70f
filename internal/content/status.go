package content

import (
	"fmt"
	"slices"
)

// Transitions maps a status to the statuses it may move to.
type Transitions map[string][]string

// Allows reports whether from may move to to. Re-applying the current
// status is always allowed.
func (t Transitions) Allows(from, to string) bool {
	if !t.Known(to) {
		return false
	}
	if from == to {
		return true
	}
	return slices.Contains(t[from], to)
}

// Known reports whether status belongs to the table.
func (t Transitions) Known(status string) bool {
	_, ok := t[status]
	return ok
}

// InquiryTransitions: archived inquiries can only be reopened for review.
var InquiryTransitions = Transitions{
	InquiryNew:      {InquiryReviewed, InquiryArchived},
	InquiryReviewed: {InquiryArchived, InquiryNew},
	InquiryArchived: {InquiryReviewed},
}

// ApplicationTransitions: rejection is terminal.
var ApplicationTransitions = Transitions{
	ApplicationReceived:  {ApplicationInterview, ApplicationRejected},
	ApplicationInterview: {ApplicationRejected},
	ApplicationRejected:  {},
}

// ErrInvalidStatus is returned for a status outside the known set.
type ErrInvalidStatus struct {
	Collection string
	Status     string
}

func (e *ErrInvalidStatus) Error() string {
	return fmt.Sprintf("invalid %s status: %q", e.Collection, e.Status)
}

// ErrInvalidTransition is returned when a status change is not in the table.
type ErrInvalidTransition struct {
	Collection string
	From       string
	To         string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("%s cannot move from %q to %q", e.Collection, e.From, e.To)
}

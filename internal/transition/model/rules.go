package model

import "fmt"

// Rules is the fixed transition table, loaded once at startup and immutable
// for the process lifetime. Status and transition ids are opaque values owned
// by the tracker.
type Rules struct {
	// BacklogStatusID guards the branch-created rule.
	BacklogStatusID int
	// InProgressStatusID and InProgressStatusName guard the merge-request
	// rule. Both must match, to defend against the tracker reusing ids.
	InProgressStatusID   int
	InProgressStatusName string

	// InProgress is applied when a branch is created off a backlog issue.
	InProgress Target
	// WaitingForPublish is applied when a merge request lands.
	WaitingForPublish Target
	// SendToReview is applied per issue key found in build commits, unguarded.
	SendToReview Target
}

// Validate validates the rule table.
func (r Rules) Validate() error {
	if r.BacklogStatusID <= 0 {
		return fmt.Errorf("backlog status id must be positive")
	}
	if r.InProgressStatusID <= 0 {
		return fmt.Errorf("in-progress status id must be positive")
	}
	if r.InProgressStatusName == "" {
		return fmt.Errorf("in-progress status name must not be empty")
	}
	for _, target := range []Target{r.InProgress, r.WaitingForPublish, r.SendToReview} {
		if target.ID == "" {
			return fmt.Errorf("transition target id must not be empty")
		}
	}
	return nil
}

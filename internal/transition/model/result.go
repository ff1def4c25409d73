// Package model provides domain models for the transition module.
package model

// Status is an issue's workflow status observed at decision time.
type Status struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Target identifies the workflow transition a rule applies.
type Target struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Outcome classifies how an event was handled. Skips are ordinary results,
// not errors: redelivered and out-of-order webhooks are expected.
type Outcome string

const (
	// OutcomeTransitioned means the transition was applied.
	OutcomeTransitioned Outcome = "transitioned"
	// OutcomeNoIssueKey means no issue key was found in the input text.
	OutcomeNoIssueKey Outcome = "no_issue_key"
	// OutcomeExistingRef means the push updated an existing ref rather than creating one.
	OutcomeExistingRef Outcome = "existing_ref"
	// OutcomeGuardNotSatisfied means the issue's current status did not match the rule's guard.
	OutcomeGuardNotSatisfied Outcome = "guard_not_satisfied"
	// OutcomeNotMerged means the merge request lifecycle state was not "merged".
	OutcomeNotMerged Outcome = "not_merged"
)

// Result reports the decision taken for a single event.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	IssueKey string  `json:"issue_key,omitempty"`
	Before   *Status `json:"before,omitempty"`
	Next     *Target `json:"next,omitempty"`
}

// BuildFailure records one issue key whose transition failed in the build path.
type BuildFailure struct {
	IssueKey string `json:"issue_key"`
	Reason   string `json:"reason"`
}

// BuildReport aggregates per-key results for a build-completion event.
// A failure on one key never prevents attempting the others.
type BuildReport struct {
	Issues       []string       `json:"issues"`
	Transitioned []string       `json:"transitioned"`
	Failures     []BuildFailure `json:"failures"`
}

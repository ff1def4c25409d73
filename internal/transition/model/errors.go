package model

import "errors"

var (
	// ErrIssueNotFound indicates that the extracted issue key does not exist in the tracker.
	ErrIssueNotFound = errors.New("issue not found in tracker")
)

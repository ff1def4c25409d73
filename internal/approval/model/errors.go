package model

import "errors"

var (
	// ErrApprovalNotFound indicates that no approval record exists for the merge request.
	ErrApprovalNotFound = errors.New("approval record not found")
	// ErrApprovalExists indicates that an approval record for the merge request already exists.
	ErrApprovalExists = errors.New("approval record already exists")
	// ErrVersionConflict indicates that a concurrent update won the compare-and-swap race.
	ErrVersionConflict = errors.New("approval record version conflict")
	// ErrInvalidApprovalKey indicates that the project id or merge request iid is not positive.
	ErrInvalidApprovalKey = errors.New("project id and merge request iid must be positive")
	// ErrInvalidApprover indicates that the approver username is empty.
	ErrInvalidApprover = errors.New("approver username is required")
)

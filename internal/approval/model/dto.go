// Package model provides data transfer objects and domain models for the approval module.
package model

// ApprovalEvent represents one approve or unapprove webhook delivery.
type ApprovalEvent struct {
	ProjectID       int64
	MergeRequestIID int64
	User            Approver
	Approved        bool
}

// QuorumStatus reports the approval state after an event was recorded.
type QuorumStatus struct {
	Count         int  `json:"count"`
	Threshold     int  `json:"threshold"`
	QuorumReached bool `json:"quorum_reached"`
	Merged        bool `json:"merged"`
}

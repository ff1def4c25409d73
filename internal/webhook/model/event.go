// Package model provides webhook payload models for the webhook module.
package model

// Event kinds carried in the code-host payload discriminator.
const (
	KindPush         = "push"
	KindMergeRequest = "merge_request"
)

// Merge request actions routed to the approval quorum tracker. Any other
// action falls through to the merged-transition path.
const (
	ActionApproved   = "approved"
	ActionUnapproved = "unapproved"
)

// GitLabEvent is the code-host webhook payload, discriminated on ObjectKind.
// Push events populate Ref, Before and UserName; merge request events
// populate Project, User and ObjectAttributes.
type GitLabEvent struct {
	ObjectKind string `json:"object_kind"`

	Ref      string `json:"ref"`
	Before   string `json:"before"`
	UserName string `json:"user_name"`

	Project          *Project                `json:"project"`
	User             *User                   `json:"user"`
	ObjectAttributes *MergeRequestAttributes `json:"object_attributes"`
}

// Project identifies the code-host project the event belongs to.
type Project struct {
	ID int64 `json:"id"`
}

// User is the webhook's acting user payload.
type User struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// MergeRequestAttributes carries the merge request fields the bridge reads.
type MergeRequestAttributes struct {
	IID          int64  `json:"iid"`
	Action       string `json:"action"`
	State        string `json:"state"`
	SourceBranch string `json:"source_branch"`
}

// BuildEvent is the build-completion callback payload.
type BuildEvent struct {
	MergeCommit string   `json:"mergecommit"`
	Commits     []string `json:"commits"`
}

package model

import (
	"time"
)

// Approver is the reviewer payload captured from the webhook user object.
type Approver struct {
	Username  string `json:"username"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ApproverList is stored as a JSON document in the approvals table.
type ApproverList []Approver

// Approval tracks distinct reviewer approvals for one merge request.
// Matches the approvals table schema. Count equals len(Users) after every
// successful write. Version backs the compare-and-swap update in the
// repository.
type Approval struct {
	ProjectID       int64        `gorm:"primaryKey;column:project_id;type:bigint"                  json:"project_id"`
	MergeRequestIID int64        `gorm:"primaryKey;column:merge_request_iid;type:bigint"           json:"merge_request_iid"`
	Count           int          `gorm:"column:count;not null"                                     json:"count"`
	Users           ApproverList `gorm:"column:users;type:jsonb;serializer:json;not null"          json:"users"`
	Merged          bool         `gorm:"column:merged;not null"                                    json:"merged"`
	Version         int64        `gorm:"column:version;not null"                                   json:"-"`
	CreatedAt       time.Time    `gorm:"column:created_at;autoCreateTime"                          json:"created_at"`
	UpdatedAt       time.Time    `gorm:"column:updated_at;autoUpdateTime"                          json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Approval) TableName() string {
	return "approvals"
}

// HasApprover reports whether the given username already approved.
func (a *Approval) HasApprover(username string) bool {
	for _, user := range a.Users {
		if user.Username == username {
			return true
		}
	}
	return false
}

// Apply records an approve or unapprove event and reports whether the record
// changed. Duplicate approvals and unapprovals of non-members are no-ops.
func (a *Approval) Apply(user Approver, approved bool) bool {
	member := a.HasApprover(user.Username)

	switch {
	case approved && !member:
		a.Users = append(a.Users, user)
		a.Count++
		return true
	case !approved && member:
		kept := make(ApproverList, 0, len(a.Users))
		for _, existing := range a.Users {
			if existing.Username != user.Username {
				kept = append(kept, existing)
			}
		}
		a.Users = kept
		a.Count--
		return true
	default:
		return false
	}
}

package config

import "fmt"

// JiraConfig holds issue tracker connection configuration.
type JiraConfig struct {
	// Host is the Jira base URL.
	Host string
	// User is the basic auth username.
	User string
	// Password is the basic auth password.
	Password string
}

// LoadJiraConfigFromEnv loads Jira configuration from environment variables.
func LoadJiraConfigFromEnv() JiraConfig {
	return JiraConfig{
		Host:     GetEnv("JIRA_HOST", ""),
		User:     GetEnv("JIRA_USER", ""),
		Password: GetEnv("JIRA_PASSWORD", ""),
	}
}

// Validate validates Jira configuration.
func (c JiraConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("JIRA_HOST must not be empty")
	}
	if c.User == "" {
		return fmt.Errorf("JIRA_USER must not be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("JIRA_PASSWORD must not be empty")
	}
	return nil
}

// GitLabConfig holds merge service connection configuration.
type GitLabConfig struct {
	// BaseURL is the GitLab base URL.
	BaseURL string
	// Token is the private access token used to accept merge requests.
	Token string
}

// LoadGitLabConfigFromEnv loads GitLab configuration from environment variables.
func LoadGitLabConfigFromEnv() GitLabConfig {
	return GitLabConfig{
		BaseURL: GetEnv("GITLAB_BASE_URL", ""),
		Token:   GetEnv("GITLAB_TOKEN", ""),
	}
}

// Validate validates GitLab configuration.
func (c GitLabConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("GITLAB_BASE_URL must not be empty")
	}
	if c.Token == "" {
		return fmt.Errorf("GITLAB_TOKEN must not be empty")
	}
	return nil
}

// WebhookConfig holds webhook authentication and bridge behavior configuration.
type WebhookConfig struct {
	// GitLabSecret is the shared secret expected in the X-Gitlab-Token header.
	GitLabSecret string
	// BuildSecret is the shared secret expected in the X-Build-Token header.
	BuildSecret string
	// IssueKeyPrefix is the literal project prefix of issue keys, e.g. "MSIGN".
	IssueKeyPrefix string
	// QuorumThreshold is the number of distinct approvers required to auto-merge.
	QuorumThreshold int

	// BacklogStatusID is the status required before the In Progress transition.
	BacklogStatusID int
	// InProgressStatusID is the status id required before the Waiting for Publish transition.
	InProgressStatusID int
	// InProgressStatusName is the status display name required alongside InProgressStatusID.
	InProgressStatusName string
	// InProgressTransitionID is the tracker transition applied on branch creation.
	InProgressTransitionID string
	// WaitingForPublishTransitionID is the tracker transition applied on merge.
	WaitingForPublishTransitionID string
	// SendToReviewTransitionID is the tracker transition applied on build completion.
	SendToReviewTransitionID string
}

// LoadWebhookConfigFromEnv loads webhook configuration from environment variables.
func LoadWebhookConfigFromEnv() WebhookConfig {
	return WebhookConfig{
		GitLabSecret:                  GetEnv("WEBHOOK_GITLAB_SECRET", ""),
		BuildSecret:                   GetEnv("WEBHOOK_BUILD_SECRET", ""),
		IssueKeyPrefix:                GetEnv("ISSUE_KEY_PREFIX", "MSIGN"),
		QuorumThreshold:               GetEnvInt("APPROVAL_QUORUM", 2),
		BacklogStatusID:               GetEnvInt("BACKLOG_STATUS_ID", 1),
		InProgressStatusID:            GetEnvInt("IN_PROGRESS_STATUS_ID", 3),
		InProgressStatusName:          GetEnv("IN_PROGRESS_STATUS_NAME", "In Progress"),
		InProgressTransitionID:        GetEnv("IN_PROGRESS_TRANSITION_ID", "190"),
		WaitingForPublishTransitionID: GetEnv("WAITING_FOR_PUBLISH_TRANSITION_ID", "70"),
		SendToReviewTransitionID:      GetEnv("SEND_TO_REVIEW_TRANSITION_ID", "80"),
	}
}

// Validate validates webhook configuration.
func (c WebhookConfig) Validate() error {
	if c.GitLabSecret == "" {
		return fmt.Errorf("WEBHOOK_GITLAB_SECRET must not be empty")
	}
	if c.BuildSecret == "" {
		return fmt.Errorf("WEBHOOK_BUILD_SECRET must not be empty")
	}
	if c.IssueKeyPrefix == "" {
		return fmt.Errorf("ISSUE_KEY_PREFIX must not be empty")
	}
	if c.QuorumThreshold < 1 {
		return fmt.Errorf("APPROVAL_QUORUM must be at least 1")
	}
	if c.BacklogStatusID <= 0 {
		return fmt.Errorf("BACKLOG_STATUS_ID must be positive")
	}
	if c.InProgressStatusID <= 0 {
		return fmt.Errorf("IN_PROGRESS_STATUS_ID must be positive")
	}
	if c.InProgressStatusName == "" {
		return fmt.Errorf("IN_PROGRESS_STATUS_NAME must not be empty")
	}
	if c.InProgressTransitionID == "" || c.WaitingForPublishTransitionID == "" ||
		c.SendToReviewTransitionID == "" {
		return fmt.Errorf("transition ids must not be empty")
	}
	return nil
}

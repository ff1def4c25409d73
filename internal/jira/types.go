package jira

// Status is the workflow status of an issue as reported by Jira.
type Status struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IssueFields holds the subset of issue fields the bridge reads.
type IssueFields struct {
	Status Status `json:"status"`
}

// Issue is a Jira issue with its current workflow status.
type Issue struct {
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// User is a Jira user as returned by the user search endpoint.
type User struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// transitionPayload is the body for the transitions endpoint.
type transitionPayload struct {
	Transition transitionRef `json:"transition"`
}

type transitionRef struct {
	ID string `json:"id"`
}

// assigneePayload is the body for the assignee endpoint.
type assigneePayload struct {
	Name string `json:"name"`
}

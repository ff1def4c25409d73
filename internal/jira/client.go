// Package jira provides a minimal Jira REST API v2 client covering the calls
// the bridge makes: issue lookup, user search, assignment and transitions.
package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrIssueNotFound indicates that the requested issue does not exist in Jira.
var ErrIssueNotFound = errors.New("issue not found")

// Tracker defines the issue tracker operations used by the transition service.
type Tracker interface {
	// GetIssue fetches a single issue with its current status.
	GetIssue(ctx context.Context, key string) (*Issue, error)

	// SearchUsers finds users whose name matches the given query.
	SearchUsers(ctx context.Context, query string) ([]User, error)

	// AssignIssue sets the issue assignee.
	AssignIssue(ctx context.Context, key, assignee string) error

	// DoTransition applies a workflow transition to an issue.
	DoTransition(ctx context.Context, key, transitionID string) error
}

// Client is a Jira REST API v2 client using basic authentication.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// Config holds Jira connection settings.
type Config struct {
	// Host is the Jira base URL, e.g. "https://jira.example.com".
	Host string
	// User is the basic auth username.
	User string
	// Password is the basic auth password.
	Password string
}

// NewClient creates a new Jira client from the given config.
func NewClient(cfg Config) *Client {
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.User + ":" + cfg.Password))
	return &Client{
		baseURL:    strings.TrimRight(cfg.Host, "/"),
		authHeader: "Basic " + creds,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetIssue fetches a single issue by key.
// Returns ErrIssueNotFound when Jira reports 404.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s?fields=status", c.baseURL, url.PathEscape(key))

	var issue Issue
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &issue); err != nil {
		return nil, err
	}

	return &issue, nil
}

// SearchUsers finds users whose name matches the given query.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]User, error) {
	endpoint := fmt.Sprintf("%s/rest/api/2/user/search?username=%s", c.baseURL, url.QueryEscape(query))

	var users []User
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &users); err != nil {
		return nil, err
	}

	return users, nil
}

// AssignIssue sets the issue assignee by user name.
func (c *Client) AssignIssue(ctx context.Context, key, assignee string) error {
	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s/assignee", c.baseURL, url.PathEscape(key))
	return c.doJSON(ctx, http.MethodPut, endpoint, assigneePayload{Name: assignee}, nil)
}

// DoTransition applies a workflow transition to an issue.
func (c *Client) DoTransition(ctx context.Context, key, transitionID string) error {
	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s/transitions", c.baseURL, url.PathEscape(key))
	payload := transitionPayload{Transition: transitionRef{ID: transitionID}}
	return c.doJSON(ctx, http.MethodPost, endpoint, payload, nil)
}

// doJSON performs a Jira API request, optionally sending and decoding JSON.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrIssueNotFound
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("jira API returned %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// Package gitlab provides a minimal GitLab REST API v4 client used to accept
// merge requests once the approval quorum is reached.
package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrAlreadyMerged indicates that the merge request is already merged or not
// in a mergeable state. GitLab reports this as 405/406; callers treat it as
// the merge being satisfied.
var ErrAlreadyMerged = errors.New("merge request is not mergeable")

// MergeService defines the merge operation used by the approval tracker.
type MergeService interface {
	// AcceptMergeRequest merges the given merge request into its target branch.
	AcceptMergeRequest(ctx context.Context, projectID, mrIID int64) (*MergeResult, error)
}

// MergeResult is the subset of GitLab's merge request response the bridge uses.
type MergeResult struct {
	IID          int64  `json:"iid"`
	State        string `json:"state"`
	TargetBranch string `json:"target_branch"`
}

// Client is a GitLab REST API v4 client authenticated with a private token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Config holds GitLab connection settings.
type Config struct {
	// BaseURL is the GitLab base URL, e.g. "https://gitlab.example.com".
	BaseURL string
	// Token is the private access token.
	Token string
}

// NewClient creates a new GitLab client.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AcceptMergeRequest merges the given merge request into its target branch.
// Returns ErrAlreadyMerged when GitLab reports the request as not mergeable.
func (c *Client) AcceptMergeRequest(ctx context.Context, projectID, mrIID int64) (*MergeResult, error) {
	endpoint := fmt.Sprintf("%s/api/v4/projects/%d/merge_requests/%d/merge", c.baseURL, projectID, mrIID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Merged below.
	case http.StatusMethodNotAllowed, http.StatusNotAcceptable:
		return nil, ErrAlreadyMerged
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result MergeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

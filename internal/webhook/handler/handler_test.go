package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	approvalModel "github.com/msign/jira-bridge/internal/approval/model"
	approvalService "github.com/msign/jira-bridge/internal/approval/service"
	transitionModel "github.com/msign/jira-bridge/internal/transition/model"
	transitionService "github.com/msign/jira-bridge/internal/transition/service"
)

type mockTransitionService struct {
	mock.Mock
}

func (m *mockTransitionService) HandleBranchCreated(
	ctx context.Context, ref, before, pusherName string,
) (*transitionModel.Result, error) {
	args := m.Called(ctx, ref, before, pusherName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transitionModel.Result), args.Error(1)
}

func (m *mockTransitionService) HandleMergeRequestMerged(
	ctx context.Context, state, sourceBranch string,
) (*transitionModel.Result, error) {
	args := m.Called(ctx, state, sourceBranch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transitionModel.Result), args.Error(1)
}

func (m *mockTransitionService) HandleBuildCompleted(
	ctx context.Context, mergeCommit string, commits []string,
) (*transitionModel.BuildReport, error) {
	args := m.Called(ctx, mergeCommit, commits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transitionModel.BuildReport), args.Error(1)
}

type mockApprovalService struct {
	mock.Mock
}

func (m *mockApprovalService) RecordApprovalEvent(
	ctx context.Context, event *approvalModel.ApprovalEvent,
) (*approvalModel.QuorumStatus, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approvalModel.QuorumStatus), args.Error(1)
}

var (
	_ transitionService.Service = (*mockTransitionService)(nil)
	_ approvalService.Service   = (*mockApprovalService)(nil)
)

func setupHandler(t *testing.T) (*Handler, *mockTransitionService, *mockApprovalService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	transitions := new(mockTransitionService)
	approvals := new(mockApprovalService)
	h := New(transitions, approvals, zap.NewNop().Sugar())
	return h, transitions, approvals
}

func performJSON(h gin.HandlerFunc, body any) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/", h)

	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandler_GitLabEvent_Push(t *testing.T) {
	t.Run("successful transition", func(t *testing.T) {
		h, transitions, _ := setupHandler(t)

		transitions.On("HandleBranchCreated",
			mock.Anything, "refs/heads/MSIGN-1", "0000000000000000000000000000000000000000", "alice",
		).Return(&transitionModel.Result{
			Outcome:  transitionModel.OutcomeTransitioned,
			IssueKey: "MSIGN-1",
		}, nil)

		w := performJSON(h.GitLabEvent, map[string]any{
			"object_kind": "push",
			"ref":         "refs/heads/MSIGN-1",
			"before":      "0000000000000000000000000000000000000000",
			"user_name":   "alice",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "transition completed", body["message"])
		transitions.AssertExpectations(t)
	})

	t.Run("no issue key", func(t *testing.T) {
		h, transitions, _ := setupHandler(t)

		transitions.On("HandleBranchCreated", mock.Anything, "refs/heads/main", "abc", "alice").
			Return(&transitionModel.Result{Outcome: transitionModel.OutcomeNoIssueKey}, nil)

		w := performJSON(h.GitLabEvent, map[string]any{
			"object_kind": "push",
			"ref":         "refs/heads/main",
			"before":      "abc",
			"user_name":   "alice",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no issue key found, no action", decodeBody(t, w)["message"])
	})

	t.Run("issue not found", func(t *testing.T) {
		h, transitions, _ := setupHandler(t)

		transitions.On("HandleBranchCreated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, transitionModel.ErrIssueNotFound)

		w := performJSON(h.GitLabEvent, map[string]any{"object_kind": "push", "ref": "MSIGN-9"})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("tracker failure", func(t *testing.T) {
		h, transitions, _ := setupHandler(t)

		transitions.On("HandleBranchCreated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("boom"))

		w := performJSON(h.GitLabEvent, map[string]any{"object_kind": "push"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandler_GitLabEvent_Validation(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		h, _, _ := setupHandler(t)

		w := performJSON(h.GitLabEvent, "{not json")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown event kind", func(t *testing.T) {
		h, _, _ := setupHandler(t)

		w := performJSON(h.GitLabEvent, map[string]any{"object_kind": "pipeline"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		errObj, ok := body["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "INVALID_REQUEST", errObj["code"])
	})

	t.Run("merge request without attributes", func(t *testing.T) {
		h, _, _ := setupHandler(t)

		w := performJSON(h.GitLabEvent, map[string]any{"object_kind": "merge_request"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("approval action without user", func(t *testing.T) {
		h, _, _ := setupHandler(t)

		w := performJSON(h.GitLabEvent, map[string]any{
			"object_kind": "merge_request",
			"project":     map[string]any{"id": 10},
			"object_attributes": map[string]any{
				"iid":    4,
				"action": "approved",
			},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("approval action without project", func(t *testing.T) {
		h, _, _ := setupHandler(t)

		w := performJSON(h.GitLabEvent, map[string]any{
			"object_kind": "merge_request",
			"user":        map[string]any{"username": "bob"},
			"object_attributes": map[string]any{
				"iid":    4,
				"action": "approved",
			},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_GitLabEvent_MergeRequest(t *testing.T) {
	t.Run("merge action routes to merged transition", func(t *testing.T) {
		h, transitions, approvals := setupHandler(t)

		transitions.On("HandleMergeRequestMerged", mock.Anything, "merged", "MSIGN-5-fix").
			Return(&transitionModel.Result{
				Outcome:  transitionModel.OutcomeTransitioned,
				IssueKey: "MSIGN-5",
			}, nil)

		w := performJSON(h.GitLabEvent, map[string]any{
			"object_kind": "merge_request",
			"project":     map[string]any{"id": 10},
			"object_attributes": map[string]any{
				"iid":           4,
				"action":        "merge",
				"state":         "merged",
				"source_branch": "MSIGN-5-fix",
			},
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "transition completed", decodeBody(t, w)["message"])
		transitions.AssertExpectations(t)
		approvals.AssertNotCalled(t, "RecordApprovalEvent", mock.Anything, mock.Anything)
	})

	t.Run("merge action without project still transitions", func(t *testing.T) {
		h, transitions, _ := setupHandler(t)

		transitions.On("HandleMergeRequestMerged", mock.Anything, "merged", "MSIGN-6").
			Return(&transitionModel.Result{
				Outcome:  transitionModel.OutcomeTransitioned,
				IssueKey: "MSIGN-6",
			}, nil)

		w := performJSON(h.GitLabEvent, map[string]any{
			"object_kind": "merge_request",
			"object_attributes": map[string]any{
				"iid":           4,
				"action":        "merge",
				"state":         "merged",
				"source_branch": "MSIGN-6",
			},
		})

		assert.Equal(t, http.StatusOK, w.Code)
		transitions.AssertExpectations(t)
	})

	t.Run("approved action routes to quorum tracker", func(t *testing.T) {
		h, transitions, approvals := setupHandler(t)

		approvals.On("RecordApprovalEvent", mock.Anything, &approvalModel.ApprovalEvent{
			ProjectID:       int64(10),
			MergeRequestIID: int64(4),
			User:            approvalModel.Approver{Username: "bob", Name: "Bob"},
			Approved:        true,
		}).Return(&approvalModel.QuorumStatus{Count: 1, Threshold: 2}, nil)

		w := performJSON(h.GitLabEvent, map[string]any{
			"object_kind": "merge_request",
			"project":     map[string]any{"id": 10},
			"user":        map[string]any{"username": "bob", "name": "Bob"},
			"object_attributes": map[string]any{
				"iid":    4,
				"action": "approved",
			},
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[1/2] reviewers approved this merge request", decodeBody(t, w)["message"])
		approvals.AssertExpectations(t)
		transitions.AssertNotCalled(t, "HandleMergeRequestMerged", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unapproved action routes to quorum tracker", func(t *testing.T) {
		h, _, approvals := setupHandler(t)

		approvals.On("RecordApprovalEvent", mock.Anything, mock.MatchedBy(func(e *approvalModel.ApprovalEvent) bool {
			return !e.Approved && e.User.Username == "bob"
		})).Return(&approvalModel.QuorumStatus{Count: 0, Threshold: 2}, nil)

		w := performJSON(h.GitLabEvent, map[string]any{
			"object_kind": "merge_request",
			"project":     map[string]any{"id": 10},
			"user":        map[string]any{"username": "bob"},
			"object_attributes": map[string]any{
				"iid":    4,
				"action": "unapproved",
			},
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[0/2] reviewers approved this merge request", decodeBody(t, w)["message"])
	})

	t.Run("quorum reached reports merge", func(t *testing.T) {
		h, _, approvals := setupHandler(t)

		approvals.On("RecordApprovalEvent", mock.Anything, mock.Anything).
			Return(&approvalModel.QuorumStatus{Count: 2, Threshold: 2, QuorumReached: true, Merged: true}, nil)

		w := performJSON(h.GitLabEvent, map[string]any{
			"object_kind": "merge_request",
			"project":     map[string]any{"id": 10},
			"user":        map[string]any{"username": "carol"},
			"object_attributes": map[string]any{
				"iid":    4,
				"action": "approved",
			},
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "quorum reached with 2 approvals, merge request merged", decodeBody(t, w)["message"])
	})

	t.Run("invalid approval event maps to bad request", func(t *testing.T) {
		h, _, approvals := setupHandler(t)

		approvals.On("RecordApprovalEvent", mock.Anything, mock.Anything).
			Return(nil, approvalModel.ErrInvalidApprovalKey)

		w := performJSON(h.GitLabEvent, map[string]any{
			"object_kind": "merge_request",
			"project":     map[string]any{"id": 0},
			"user":        map[string]any{"username": "bob"},
			"object_attributes": map[string]any{
				"iid":    4,
				"action": "approved",
			},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("storage failure maps to internal error", func(t *testing.T) {
		h, _, approvals := setupHandler(t)

		approvals.On("RecordApprovalEvent", mock.Anything, mock.Anything).
			Return(nil, errors.New("database is down"))

		w := performJSON(h.GitLabEvent, map[string]any{
			"object_kind": "merge_request",
			"project":     map[string]any{"id": 10},
			"user":        map[string]any{"username": "bob"},
			"object_attributes": map[string]any{
				"iid":    4,
				"action": "approved",
			},
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandler_BuildCompleted(t *testing.T) {
	t.Run("empty payload returns no content", func(t *testing.T) {
		h, transitions, _ := setupHandler(t)

		w := performJSON(h.BuildCompleted, map[string]any{})

		assert.Equal(t, http.StatusNoContent, w.Code)
		transitions.AssertNotCalled(t, "HandleBuildCompleted", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("issues sent to review", func(t *testing.T) {
		h, transitions, _ := setupHandler(t)

		transitions.On("HandleBuildCompleted", mock.Anything, "Merge MSIGN-1", []string{"MSIGN-2: fix"}).
			Return(&transitionModel.BuildReport{
				Issues:       []string{"MSIGN-1", "MSIGN-2"},
				Transitioned: []string{"MSIGN-1", "MSIGN-2"},
				Failures:     []transitionModel.BuildFailure{},
			}, nil)

		w := performJSON(h.BuildCompleted, map[string]any{
			"mergecommit": "Merge MSIGN-1",
			"commits":     []string{"MSIGN-2: fix"},
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "issues sent to review", decodeBody(t, w)["message"])
		transitions.AssertExpectations(t)
	})

	t.Run("no keys found", func(t *testing.T) {
		h, transitions, _ := setupHandler(t)

		transitions.On("HandleBuildCompleted", mock.Anything, "", []string{"chore: deps"}).
			Return(&transitionModel.BuildReport{Issues: []string{}}, nil)

		w := performJSON(h.BuildCompleted, map[string]any{
			"commits": []string{"chore: deps"},
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no issue keys found in commit messages, no action", decodeBody(t, w)["message"])
	})

	t.Run("malformed body", func(t *testing.T) {
		h, _, _ := setupHandler(t)

		w := performJSON(h.BuildCompleted, "not json at all")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("service failure", func(t *testing.T) {
		h, transitions, _ := setupHandler(t)

		transitions.On("HandleBuildCompleted", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("boom"))

		w := performJSON(h.BuildCompleted, map[string]any{"mergecommit": "MSIGN-1"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

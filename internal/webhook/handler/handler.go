// Package handler provides HTTP handlers for the webhook endpoints.
package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	approvalModel "github.com/msign/jira-bridge/internal/approval/model"
	approvalService "github.com/msign/jira-bridge/internal/approval/service"
	transitionModel "github.com/msign/jira-bridge/internal/transition/model"
	transitionService "github.com/msign/jira-bridge/internal/transition/service"
	webhookModel "github.com/msign/jira-bridge/internal/webhook/model"
)

// Handler handles HTTP requests for the webhook endpoints.
type Handler struct {
	transitions transitionService.Service
	approvals   approvalService.Service
	logger      *zap.SugaredLogger
}

// New creates a new webhook handler instance.
func New(
	transitions transitionService.Service,
	approvals approvalService.Service,
	logger *zap.SugaredLogger,
) *Handler {
	return &Handler{
		transitions: transitions,
		approvals:   approvals,
		logger:      logger,
	}
}

// GitLabEvent handles POST /webhook/gitlab. The payload is discriminated on
// object_kind: push events drive the branch-created transition, merge request
// approve/unapprove actions drive the quorum tracker, and every other merge
// request action drives the merged transition.
func (h *Handler) GitLabEvent(c *gin.Context) {
	var event webhookModel.GitLabEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		errorResponse(c, "INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		return
	}

	switch event.ObjectKind {
	case webhookModel.KindPush:
		h.handlePush(c, &event)
	case webhookModel.KindMergeRequest:
		h.handleMergeRequest(c, &event)
	default:
		errorResponse(c, "INVALID_REQUEST", "unknown event kind", http.StatusBadRequest)
	}
}

// handlePush routes a push event to the branch-created transition.
func (h *Handler) handlePush(c *gin.Context, event *webhookModel.GitLabEvent) {
	result, err := h.transitions.HandleBranchCreated(
		c.Request.Context(), event.Ref, event.Before, event.UserName)
	if err != nil {
		h.transitionError(c, err)
		return
	}

	h.transitionResult(c, result)
}

// handleMergeRequest routes a merge request event to either the quorum
// tracker or the merged transition, by action.
func (h *Handler) handleMergeRequest(c *gin.Context, event *webhookModel.GitLabEvent) {
	attrs := event.ObjectAttributes
	if attrs == nil {
		errorResponse(c, "INVALID_REQUEST", "missing merge request attributes", http.StatusBadRequest)
		return
	}

	// The merged-transition path needs only state and source branch; project
	// and user are required for quorum tracking alone.
	if attrs.Action != webhookModel.ActionApproved && attrs.Action != webhookModel.ActionUnapproved {
		result, err := h.transitions.HandleMergeRequestMerged(
			c.Request.Context(), attrs.State, attrs.SourceBranch)
		if err != nil {
			h.transitionError(c, err)
			return
		}
		h.transitionResult(c, result)
		return
	}

	if event.Project == nil || event.User == nil {
		errorResponse(c, "INVALID_REQUEST", "missing project or user", http.StatusBadRequest)
		return
	}

	status, err := h.approvals.RecordApprovalEvent(c.Request.Context(), &approvalModel.ApprovalEvent{
		ProjectID:       event.Project.ID,
		MergeRequestIID: attrs.IID,
		User: approvalModel.Approver{
			Username:  event.User.Username,
			Name:      event.User.Name,
			AvatarURL: event.User.AvatarURL,
		},
		Approved: attrs.Action == webhookModel.ActionApproved,
	})
	if err != nil {
		if errors.Is(err, approvalModel.ErrInvalidApprovalKey) ||
			errors.Is(err, approvalModel.ErrInvalidApprover) {
			errorResponse(c, "INVALID_REQUEST", err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Errorw("failed to record approval event",
			"project_id", event.Project.ID,
			"merge_request_iid", attrs.IID,
			"error", err,
		)
		errorResponse(c, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
		return
	}

	if status.Merged {
		okResponse(c, fmt.Sprintf(
			"quorum reached with %d approvals, merge request merged", status.Count), status)
		return
	}

	okResponse(c, fmt.Sprintf(
		"[%d/%d] reviewers approved this merge request", status.Count, status.Threshold), status)
}

// BuildCompleted handles POST /webhook/build. Every issue key mentioned in
// the merge commit or commit messages is sent to review; per-key failures are
// reported, not fatal.
func (h *Handler) BuildCompleted(c *gin.Context) {
	var event webhookModel.BuildEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		errorResponse(c, "INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		return
	}

	if event.MergeCommit == "" && len(event.Commits) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	report, err := h.transitions.HandleBuildCompleted(
		c.Request.Context(), event.MergeCommit, event.Commits)
	if err != nil {
		h.logger.Errorw("failed to handle build completion", "error", err)
		errorResponse(c, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
		return
	}

	if len(report.Issues) == 0 {
		okResponse(c, "no issue keys found in commit messages, no action", nil)
		return
	}

	okResponse(c, "issues sent to review", report)
}

// transitionResult writes the per-outcome response for a transition decision.
func (h *Handler) transitionResult(c *gin.Context, result *transitionModel.Result) {
	switch result.Outcome {
	case transitionModel.OutcomeTransitioned:
		okResponse(c, "transition completed", result)
	case transitionModel.OutcomeNoIssueKey:
		okResponse(c, "no issue key found, no action", nil)
	case transitionModel.OutcomeExistingRef:
		okResponse(c, "push to existing branch, no action", nil)
	case transitionModel.OutcomeGuardNotSatisfied:
		okResponse(c, "issue status does not match transition guard, no action", result)
	case transitionModel.OutcomeNotMerged:
		okResponse(c, "merge request is not merged, no action", nil)
	default:
		h.logger.Errorw("unknown transition outcome", "outcome", result.Outcome)
		errorResponse(c, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	}
}

// transitionError maps transition service errors to HTTP responses.
func (h *Handler) transitionError(c *gin.Context, err error) {
	if errors.Is(err, transitionModel.ErrIssueNotFound) {
		notFoundResponse(c, "issue not found in tracker")
		return
	}
	h.logger.Errorw("transition failed", "error", err)
	errorResponse(c, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
}

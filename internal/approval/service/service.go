// Package service provides business logic layer for the approval module.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	approvalModel "github.com/msign/jira-bridge/internal/approval/model"
	"github.com/msign/jira-bridge/internal/approval/repository"
	"github.com/msign/jira-bridge/internal/gitlab"
	"github.com/msign/jira-bridge/pkg/retry"
)

// Service defines the interface for approval quorum tracking.
type Service interface {
	// RecordApprovalEvent applies one approve or unapprove event and, once the
	// quorum of distinct approvers is reached, merges the merge request.
	RecordApprovalEvent(
		ctx context.Context,
		event *approvalModel.ApprovalEvent,
	) (*approvalModel.QuorumStatus, error)
}

type service struct {
	repo      repository.Repository
	merger    gitlab.MergeService
	threshold int
	logger    *zap.SugaredLogger
}

// New creates a new approval service instance.
func New(
	repo repository.Repository,
	merger gitlab.MergeService,
	threshold int,
	logger *zap.SugaredLogger,
) Service {
	return &service{
		repo:      repo,
		merger:    merger,
		threshold: threshold,
		logger:    logger,
	}
}

// casRetryConfig retries the read-modify-write cycle when a concurrent
// delivery for the same merge request wins the version check.
func casRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  4,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		RetryableErrors: []string{
			"version conflict",
			"already exists",
		},
	}
}

// RecordApprovalEvent applies one approve or unapprove event.
//
// The record is re-read and re-written under a compare-and-swap version check;
// lost updates between concurrent deliveries surface as a conflict and the
// whole cycle is retried. Duplicate approvals and unapprovals of non-members
// leave the count unchanged. The merge call fires only while quorum is reached
// and the merged flag is still unset, so redelivered events do not re-merge.
func (s *service) RecordApprovalEvent(
	ctx context.Context,
	event *approvalModel.ApprovalEvent,
) (*approvalModel.QuorumStatus, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	approval, err := retry.DoWithResult(ctx, casRetryConfig(), func() (*approvalModel.Approval, error) {
		return s.applyEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	status := &approvalModel.QuorumStatus{
		Count:         approval.Count,
		Threshold:     s.threshold,
		QuorumReached: approval.Count >= s.threshold,
		Merged:        approval.Merged,
	}

	if !status.QuorumReached || approval.Merged {
		return status, nil
	}

	if err := s.mergeAndMark(ctx, event, approval); err != nil {
		return nil, err
	}
	status.Merged = true

	return status, nil
}

// applyEvent performs one read-modify-write cycle for the approval record.
func (s *service) applyEvent(
	ctx context.Context,
	event *approvalModel.ApprovalEvent,
) (*approvalModel.Approval, error) {
	approval, err := s.repo.Get(ctx, event.ProjectID, event.MergeRequestIID)
	created := false
	if err != nil {
		if !errors.Is(err, approvalModel.ErrApprovalNotFound) {
			return nil, err
		}
		approval = &approvalModel.Approval{
			ProjectID:       event.ProjectID,
			MergeRequestIID: event.MergeRequestIID,
			Users:           approvalModel.ApproverList{},
		}
		created = true
	}

	approval.Apply(event.User, event.Approved)

	// Persist even when nothing changed so every delivery observes a
	// consistent durable record.
	if created {
		err = s.repo.Create(ctx, approval)
	} else {
		err = s.repo.Update(ctx, approval)
	}
	if err != nil {
		return nil, err
	}

	return approval, nil
}

// mergeAndMark accepts the merge request and records the merged flag.
func (s *service) mergeAndMark(
	ctx context.Context,
	event *approvalModel.ApprovalEvent,
	approval *approvalModel.Approval,
) error {
	_, err := s.merger.AcceptMergeRequest(ctx, event.ProjectID, event.MergeRequestIID)
	if err != nil && !errors.Is(err, gitlab.ErrAlreadyMerged) {
		return fmt.Errorf("failed to merge: %w", err)
	}

	s.logger.Infow("merge request merged on quorum",
		"project_id", event.ProjectID,
		"merge_request_iid", event.MergeRequestIID,
		"count", approval.Count,
		"threshold", s.threshold,
	)

	approval.Merged = true
	if err := s.repo.Update(ctx, approval); err != nil {
		// The merge already happened; a conflicting writer will observe the
		// unset flag and re-issue an accept, which GitLab answers as already
		// merged. Log and report success.
		s.logger.Warnw("failed to record merged flag",
			"project_id", event.ProjectID,
			"merge_request_iid", event.MergeRequestIID,
			"error", err,
		)
	}

	return nil
}

// validateEvent validates the approval event.
func validateEvent(event *approvalModel.ApprovalEvent) error {
	if event.ProjectID <= 0 || event.MergeRequestIID <= 0 {
		return approvalModel.ErrInvalidApprovalKey
	}
	if event.User.Username == "" {
		return approvalModel.ErrInvalidApprover
	}
	return nil
}

// Package service provides business logic layer for the transition module.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/msign/jira-bridge/internal/issuekey"
	"github.com/msign/jira-bridge/internal/jira"
	transitionModel "github.com/msign/jira-bridge/internal/transition/model"
)

// zeroSHA is the "before" value GitLab sends on the first push of a new ref.
const zeroSHA = "0000000000000000000000000000000000000000"

// stateMerged is the only merge request lifecycle state that triggers the
// waiting-for-publish rule.
const stateMerged = "merged"

// Service maps inbound code-host and build events to guarded single-step
// workflow transitions in the tracker.
type Service interface {
	// HandleBranchCreated moves a backlog issue to In Progress when a branch
	// named after it is created, and best-effort assigns it to the pusher.
	HandleBranchCreated(ctx context.Context, ref, before, pusherName string) (*transitionModel.Result, error)

	// HandleMergeRequestMerged moves an In Progress issue to Waiting for
	// Publish when its merge request lands.
	HandleMergeRequestMerged(ctx context.Context, state, sourceBranch string) (*transitionModel.Result, error)

	// HandleBuildCompleted sends every issue mentioned in the merge commit or
	// commit messages to review, collecting per-key failures.
	HandleBuildCompleted(ctx context.Context, mergeCommit string, commits []string) (*transitionModel.BuildReport, error)
}

type service struct {
	tracker jira.Tracker
	keys    *issuekey.Extractor
	rules   transitionModel.Rules
	logger  *zap.SugaredLogger
}

// New creates a new transition service instance.
func New(
	tracker jira.Tracker,
	keys *issuekey.Extractor,
	rules transitionModel.Rules,
	logger *zap.SugaredLogger,
) Service {
	return &service{
		tracker: tracker,
		keys:    keys,
		rules:   rules,
		logger:  logger,
	}
}

// HandleBranchCreated moves a backlog issue to In Progress.
func (s *service) HandleBranchCreated(
	ctx context.Context,
	ref, before, pusherName string,
) (*transitionModel.Result, error) {
	key, found := s.keys.First(ref)
	if !found {
		return &transitionModel.Result{Outcome: transitionModel.OutcomeNoIssueKey}, nil
	}

	// The branch-created rule fires once per branch lifetime. Pushes onto an
	// existing ref carry the previous head instead of the zero SHA.
	if before != zeroSHA {
		return &transitionModel.Result{
			Outcome:  transitionModel.OutcomeExistingRef,
			IssueKey: key,
		}, nil
	}

	status, err := s.fetchStatus(ctx, key)
	if err != nil {
		return nil, err
	}

	s.assignToPusher(ctx, key, pusherName)

	result := &transitionModel.Result{
		IssueKey: key,
		Before:   status,
		Next:     &s.rules.InProgress,
	}

	if status.ID != s.rules.BacklogStatusID {
		result.Outcome = transitionModel.OutcomeGuardNotSatisfied
		return result, nil
	}

	if err := s.tracker.DoTransition(ctx, key, s.rules.InProgress.ID); err != nil {
		return nil, fmt.Errorf("failed to transition %s: %w", key, err)
	}

	result.Outcome = transitionModel.OutcomeTransitioned
	return result, nil
}

// HandleMergeRequestMerged moves an In Progress issue to Waiting for Publish.
func (s *service) HandleMergeRequestMerged(
	ctx context.Context,
	state, sourceBranch string,
) (*transitionModel.Result, error) {
	if state != stateMerged {
		return &transitionModel.Result{Outcome: transitionModel.OutcomeNotMerged}, nil
	}

	key, found := s.keys.First(sourceBranch)
	if !found {
		return &transitionModel.Result{Outcome: transitionModel.OutcomeNoIssueKey}, nil
	}

	status, err := s.fetchStatus(ctx, key)
	if err != nil {
		return nil, err
	}

	result := &transitionModel.Result{
		IssueKey: key,
		Before:   status,
		Next:     &s.rules.WaitingForPublish,
	}

	// Guard on id and display name together; the tracker owns the id space
	// and may reuse ids across workflow rebuilds.
	if status.ID != s.rules.InProgressStatusID || status.Name != s.rules.InProgressStatusName {
		result.Outcome = transitionModel.OutcomeGuardNotSatisfied
		return result, nil
	}

	if err := s.tracker.DoTransition(ctx, key, s.rules.WaitingForPublish.ID); err != nil {
		return nil, fmt.Errorf("failed to transition %s: %w", key, err)
	}

	result.Outcome = transitionModel.OutcomeTransitioned
	return result, nil
}

// HandleBuildCompleted sends every mentioned issue to review.
func (s *service) HandleBuildCompleted(
	ctx context.Context,
	mergeCommit string,
	commits []string,
) (*transitionModel.BuildReport, error) {
	texts := make([]string, 0, len(commits)+1)
	if mergeCommit != "" {
		texts = append(texts, mergeCommit)
	}
	texts = append(texts, commits...)

	keys := s.keys.All(texts...)

	report := &transitionModel.BuildReport{
		Issues:       keys,
		Transitioned: []string{},
		Failures:     []transitionModel.BuildFailure{},
	}

	for _, key := range keys {
		if err := s.tracker.DoTransition(ctx, key, s.rules.SendToReview.ID); err != nil {
			s.logger.Errorw("send-to-review transition failed",
				"issue_key", key,
				"error", err,
			)
			report.Failures = append(report.Failures, transitionModel.BuildFailure{
				IssueKey: key,
				Reason:   "transition failed",
			})
			continue
		}
		report.Transitioned = append(report.Transitioned, key)
	}

	return report, nil
}

// fetchStatus reads the issue's current status from the tracker.
func (s *service) fetchStatus(ctx context.Context, key string) (*transitionModel.Status, error) {
	issue, err := s.tracker.GetIssue(ctx, key)
	if err != nil {
		if errors.Is(err, jira.ErrIssueNotFound) {
			return nil, transitionModel.ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to fetch issue %s: %w", key, err)
	}

	id, err := strconv.Atoi(issue.Fields.Status.ID)
	if err != nil {
		return nil, fmt.Errorf("unparseable status id %q for issue %s: %w", issue.Fields.Status.ID, key, err)
	}

	return &transitionModel.Status{ID: id, Name: issue.Fields.Status.Name}, nil
}

// assignToPusher looks up a tracker user matching the pusher and assigns the
// issue when exactly one match exists. Failures are logged and never abort
// the transition.
func (s *service) assignToPusher(ctx context.Context, key, pusherName string) {
	if pusherName == "" {
		return
	}

	users, err := s.tracker.SearchUsers(ctx, pusherName)
	if err != nil {
		s.logger.Warnw("assignee lookup failed",
			"issue_key", key,
			"pusher", pusherName,
			"error", err,
		)
		return
	}

	if len(users) != 1 {
		s.logger.Debugw("skipping assignment, pusher match is not unique",
			"issue_key", key,
			"pusher", pusherName,
			"matches", len(users),
		)
		return
	}

	if err := s.tracker.AssignIssue(ctx, key, users[0].Name); err != nil {
		s.logger.Warnw("assignment failed",
			"issue_key", key,
			"assignee", users[0].Name,
			"error", err,
		)
	}
}

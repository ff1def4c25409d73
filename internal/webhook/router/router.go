// Package router provides webhook module routes registration.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	approvalRepository "github.com/msign/jira-bridge/internal/approval/repository"
	approvalService "github.com/msign/jira-bridge/internal/approval/service"
	"github.com/msign/jira-bridge/internal/config"
	"github.com/msign/jira-bridge/internal/gitlab"
	"github.com/msign/jira-bridge/internal/issuekey"
	"github.com/msign/jira-bridge/internal/jira"
	"github.com/msign/jira-bridge/internal/middleware"
	transitionModel "github.com/msign/jira-bridge/internal/transition/model"
	transitionService "github.com/msign/jira-bridge/internal/transition/service"
	"github.com/msign/jira-bridge/internal/webhook/handler"
)

// Shared secret headers checked before any processing.
const (
	GitLabTokenHeader = "X-Gitlab-Token"
	BuildTokenHeader  = "X-Build-Token"
)

// RegisterRoutes registers webhook module routes.
func RegisterRoutes(
	r *gin.Engine,
	db *gorm.DB,
	tracker jira.Tracker,
	merger gitlab.MergeService,
	cfg config.WebhookConfig,
	logger *zap.SugaredLogger,
) error {
	keys, err := issuekey.New(cfg.IssueKeyPrefix)
	if err != nil {
		return err
	}

	rules := transitionModel.Rules{
		BacklogStatusID:      cfg.BacklogStatusID,
		InProgressStatusID:   cfg.InProgressStatusID,
		InProgressStatusName: cfg.InProgressStatusName,
		InProgress: transitionModel.Target{
			ID:   cfg.InProgressTransitionID,
			Name: "In Progress",
		},
		WaitingForPublish: transitionModel.Target{
			ID:   cfg.WaitingForPublishTransitionID,
			Name: "Waiting for Publish",
		},
		SendToReview: transitionModel.Target{
			ID:   cfg.SendToReviewTransitionID,
			Name: "Send to Review",
		},
	}
	if err := rules.Validate(); err != nil {
		return err
	}

	repo := approvalRepository.New(db)
	approvals := approvalService.New(repo, merger, cfg.QuorumThreshold, logger)
	transitions := transitionService.New(tracker, keys, rules, logger)
	h := handler.New(transitions, approvals, logger)

	r.POST("/webhook/gitlab",
		middleware.SharedSecret(GitLabTokenHeader, cfg.GitLabSecret), h.GitLabEvent)
	r.POST("/webhook/build",
		middleware.SharedSecret(BuildTokenHeader, cfg.BuildSecret), h.BuildCompleted)

	return nil
}

// Package repository provides data access layer for the approval module.
package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	approvalModel "github.com/msign/jira-bridge/internal/approval/model"
)

// Repository defines the interface for approval data access operations.
type Repository interface {
	// Get finds the approval record for a merge request.
	Get(ctx context.Context, projectID, mrIID int64) (*approvalModel.Approval, error)

	// Create inserts a new approval record with version 1.
	Create(ctx context.Context, approval *approvalModel.Approval) error

	// Update persists the record guarded by its version: the write succeeds
	// only if the stored version still matches, and bumps it by one.
	// Returns ErrVersionConflict when a concurrent writer got there first.
	Update(ctx context.Context, approval *approvalModel.Approval) error
}

type repository struct {
	db *gorm.DB
}

// New creates a new approval repository instance.
func New(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Get finds the approval record for a merge request.
func (r *repository) Get(ctx context.Context, projectID, mrIID int64) (*approvalModel.Approval, error) {
	var approval approvalModel.Approval
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND merge_request_iid = ?", projectID, mrIID).
		First(&approval).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, approvalModel.ErrApprovalNotFound
		}
		return nil, err
	}

	return &approval, nil
}

// Create inserts a new approval record with version 1.
func (r *repository) Create(ctx context.Context, approval *approvalModel.Approval) error {
	approval.Version = 1
	if approval.Users == nil {
		approval.Users = approvalModel.ApproverList{}
	}

	err := r.db.WithContext(ctx).Create(approval).Error
	if err != nil {
		if isDuplicateError(err) {
			return approvalModel.ErrApprovalExists
		}
		return err
	}

	return nil
}

// Update persists the record guarded by its version.
func (r *repository) Update(ctx context.Context, approval *approvalModel.Approval) error {
	result := r.db.WithContext(ctx).
		Model(&approvalModel.Approval{}).
		Where("project_id = ? AND merge_request_iid = ? AND version = ?",
			approval.ProjectID, approval.MergeRequestIID, approval.Version).
		Select("count", "users", "merged", "version", "updated_at").
		Updates(&approvalModel.Approval{
			Count:   approval.Count,
			Users:   approval.Users,
			Merged:  approval.Merged,
			Version: approval.Version + 1,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return approvalModel.ErrVersionConflict
	}

	approval.Version++
	return nil
}

// isDuplicateError checks if error is a duplicate key error.
// Covers PostgreSQL in production and SQLite in tests.
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint")
}

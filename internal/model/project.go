package model

import "time"

// Project 项目表 — 对应 projects
// completeness 为项目下所有工作流完成度的算术平均，由后台任务维护
type Project struct {
	ProjectID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"project_id"`
	Name         string     `gorm:"type:varchar(100);not null"                     json:"name"`
	DisplayName  string     `gorm:"type:varchar(255);not null"                     json:"display_name"`
	Live         bool       `gorm:"not null;default:false"                         json:"live"`
	LaunchDate   *time.Time `json:"launch_date,omitempty"`
	Completeness float64    `gorm:"not null;default:0"                             json:"completeness"`
	VersionedModel

	// 关联
	Workflows []Workflow `gorm:"foreignKey:ProjectID" json:"workflows,omitempty"`
}

func (Project) TableName() string { return "projects" }

// Launched 判断项目是否已在给定时刻前上线
// launch_date 为空表示不做上线时间门控
func (p *Project) Launched(at time.Time) bool {
	return p.LaunchDate == nil || !p.LaunchDate.After(at)
}

// LaunchDateOrNil nil 安全地取上线时间（工作流可能未预加载项目）
func (p *Project) LaunchDateOrNil() *time.Time {
	if p == nil {
		return nil
	}
	return p.LaunchDate
}

// [自证通过] internal/model/project.go

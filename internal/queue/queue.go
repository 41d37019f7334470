package queue

import (
	"context"
	"time"
)

// Lease 出队租约。条目在 ExpiresAt 之前对其他消费者不可见，
// 消费者处理成功后凭租约确认删除；不确认则到期自动重投。
type Lease struct {
	ID        string
	GameID    string
	ExpiresAt time.Time
}

// Queue 工作队列接口。至少一次投递：同一游戏id可能被重复投递，
// 去重由应用层的幂等更新协议负责，队列本身不去重。
type Queue interface {
	// Push 入队一个游戏id
	Push(ctx context.Context, gameID string) error
	// Pop 阻塞出队，最多等待 wait；队列为空返回 (nil, nil)
	Pop(ctx context.Context, wait time.Duration) (*Lease, error)
	// Ack 确认租约，删除对应条目；租约已被接管时为无操作
	Ack(ctx context.Context, lease *Lease) error
	// Depth 返回队列中的条目总数
	Depth(ctx context.Context) (int64, error)
}

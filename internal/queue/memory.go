package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryItem 内存队列条目
type memoryItem struct {
	gameID      string
	enqueueTime time.Time
	visibleAt   time.Time
	leaseID     string
}

// MemoryQueue 内存工作队列。语义与数据库队列一致（可见性超时、至少一次），
// 用于单机部署和测试，不跨进程、不持久化。
type MemoryQueue struct {
	mu         sync.Mutex
	items      []*memoryItem
	visibility time.Duration
	// 入队信号，容量1，满了说明已有待处理信号
	signal chan struct{}
}

// NewMemoryQueue 创建内存工作队列
func NewMemoryQueue(visibility time.Duration) *MemoryQueue {
	return &MemoryQueue{
		visibility: visibility,
		signal:     make(chan struct{}, 1),
	}
}

// Push 入队
func (q *MemoryQueue) Push(ctx context.Context, gameID string) error {
	q.mu.Lock()
	q.items = append(q.items, &memoryItem{
		gameID:      gameID,
		enqueueTime: time.Now().UTC(),
		visibleAt:   time.Now().UTC(),
	})
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Pop 阻塞出队
func (q *MemoryQueue) Pop(ctx context.Context, wait time.Duration) (*Lease, error) {
	deadline := time.Now().Add(wait)

	for {
		if lease := q.tryClaim(); lease != nil {
			return lease, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		// 租约可能先于deadline过期而重新可见，轮询间隔取两者较小值
		if remaining > 100*time.Millisecond {
			remaining = 100 * time.Millisecond
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-q.signal:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// tryClaim 尝试领取最早的可见条目
func (q *MemoryQueue) tryClaim() *Lease {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()
	var candidate *memoryItem
	for _, item := range q.items {
		if item.visibleAt.After(now) {
			continue
		}
		if candidate == nil || item.enqueueTime.Before(candidate.enqueueTime) {
			candidate = item
		}
	}
	if candidate == nil {
		return nil
	}

	candidate.leaseID = uuid.New().String()
	candidate.visibleAt = now.Add(q.visibility)
	return &Lease{
		ID:        candidate.leaseID,
		GameID:    candidate.gameID,
		ExpiresAt: candidate.visibleAt,
	}
}

// Ack 确认租约，删除对应条目
func (q *MemoryQueue) Ack(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.leaseID == lease.ID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return nil
		}
	}
	// 租约已被接管，无操作
	return nil
}

// Depth 返回队列深度
func (q *MemoryQueue) Depth(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

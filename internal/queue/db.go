package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/wiki-game/internal/errors"
	"github.com/wfunc/wiki-game/internal/repository"
	"go.uber.org/zap"
)

// DBQueue 数据库工作队列。条目持久化在 queue_items 表，
// 可跨进程消费，进程崩溃后未确认的条目在租约到期后重投。
type DBQueue struct {
	repo         repository.QueueRepository
	visibility   time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewDBQueue 创建数据库工作队列
func NewDBQueue(repo repository.QueueRepository, visibility, pollInterval time.Duration, logger *zap.Logger) *DBQueue {
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	return &DBQueue{
		repo:         repo,
		visibility:   visibility,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Push 入队
func (q *DBQueue) Push(ctx context.Context, gameID string) error {
	if err := q.repo.Push(ctx, gameID, time.Now().UTC()); err != nil {
		return errors.Wrap(err, errors.ErrQueuePush)
	}
	return nil
}

// Pop 阻塞出队。没有条件变量可用时用有界轮询逼近阻塞语义
func (q *DBQueue) Pop(ctx context.Context, wait time.Duration) (*Lease, error) {
	deadline := time.Now().Add(wait)
	timer := time.NewTimer(q.pollInterval)
	defer timer.Stop()

	for {
		now := time.Now().UTC()
		item, err := q.repo.Claim(ctx, uuid.New().String(), now, q.visibility)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrQueuePop)
		}
		if item != nil {
			return &Lease{
				ID:        item.LeaseID,
				GameID:    item.GameID,
				ExpiresAt: item.VisibleAt,
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, nil
		}

		timer.Reset(q.pollInterval)
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.ErrCanceled)
		case <-timer.C:
		}
	}
}

// Ack 确认租约
func (q *DBQueue) Ack(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	if err := q.repo.Ack(ctx, lease.ID); err != nil {
		return errors.Wrap(err, errors.ErrQueueAck)
	}
	return nil
}

// Depth 返回队列深度
func (q *DBQueue) Depth(ctx context.Context) (int64, error) {
	return q.repo.Depth(ctx)
}

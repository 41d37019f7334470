package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/wiki-game/internal/models"
	"github.com/wfunc/wiki-game/internal/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDBQueue 创建基于内存sqlite的数据库队列
func newTestDBQueue(t *testing.T, visibility time.Duration) *DBQueue {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.QueueItem{}))
	t.Cleanup(func() { sqlDB.Close() })

	return NewDBQueue(repository.NewQueueRepository(db), visibility, 10*time.Millisecond, zap.NewNop())
}

// queueImpls 两种实现共用一套行为测试
func queueImpls(t *testing.T, visibility time.Duration) map[string]Queue {
	return map[string]Queue{
		"db":     newTestDBQueue(t, visibility),
		"memory": NewMemoryQueue(visibility),
	}
}

func TestQueue_FIFO(t *testing.T) {
	for name, q := range queueImpls(t, time.Minute) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, q.Push(ctx, "game-1"))
			time.Sleep(2 * time.Millisecond)
			require.NoError(t, q.Push(ctx, "game-2"))

			first, err := q.Pop(ctx, 100*time.Millisecond)
			require.NoError(t, err)
			require.NotNil(t, first)
			assert.Equal(t, "game-1", first.GameID)

			second, err := q.Pop(ctx, 100*time.Millisecond)
			require.NoError(t, err)
			require.NotNil(t, second)
			assert.Equal(t, "game-2", second.GameID)
		})
	}
}

func TestQueue_PopEmptyTimesOut(t *testing.T) {
	for name, q := range queueImpls(t, time.Minute) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			start := time.Now()
			lease, err := q.Pop(ctx, 50*time.Millisecond)
			require.NoError(t, err)
			assert.Nil(t, lease)
			assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
		})
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	for name, q := range queueImpls(t, time.Minute) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			go func() {
				time.Sleep(30 * time.Millisecond)
				q.Push(ctx, "game-1")
			}()

			lease, err := q.Pop(ctx, time.Second)
			require.NoError(t, err)
			require.NotNil(t, lease)
			assert.Equal(t, "game-1", lease.GameID)
		})
	}
}

func TestQueue_RedeliveryAfterLeaseExpiry(t *testing.T) {
	for name, q := range queueImpls(t, 80*time.Millisecond) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, q.Push(ctx, "game-1"))

			// 第一次领取后不确认，模拟消费者崩溃
			lease, err := q.Pop(ctx, 100*time.Millisecond)
			require.NoError(t, err)
			require.NotNil(t, lease)

			// 租约期内不可见
			hidden, err := q.Pop(ctx, 20*time.Millisecond)
			require.NoError(t, err)
			assert.Nil(t, hidden)

			// 租约过期后重投
			redelivered, err := q.Pop(ctx, time.Second)
			require.NoError(t, err)
			require.NotNil(t, redelivered)
			assert.Equal(t, "game-1", redelivered.GameID)
			assert.NotEqual(t, lease.ID, redelivered.ID)
		})
	}
}

func TestQueue_AckPreventsRedelivery(t *testing.T) {
	for name, q := range queueImpls(t, 50*time.Millisecond) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, q.Push(ctx, "game-1"))

			lease, err := q.Pop(ctx, 100*time.Millisecond)
			require.NoError(t, err)
			require.NotNil(t, lease)
			require.NoError(t, q.Ack(ctx, lease))

			// 等过租约期，确认过的条目不得重投
			time.Sleep(80 * time.Millisecond)
			gone, err := q.Pop(ctx, 20*time.Millisecond)
			require.NoError(t, err)
			assert.Nil(t, gone)

			depth, err := q.Depth(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), depth)
		})
	}
}

func TestQueue_AckNilLease(t *testing.T) {
	for name, q := range queueImpls(t, time.Minute) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, q.Ack(context.Background(), nil))
		})
	}
}

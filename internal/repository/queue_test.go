package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRepository_PushAndClaim(t *testing.T) {
	db := TestDB(t)
	repo := NewQueueRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Push(ctx, "game-1", now))
	require.NoError(t, repo.Push(ctx, "game-2", now.Add(time.Millisecond)))

	// 先进先出
	item, err := repo.Claim(ctx, "lease-a", now.Add(time.Second), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "game-1", item.GameID)
	assert.Equal(t, "lease-a", item.LeaseID)

	item2, err := repo.Claim(ctx, "lease-b", now.Add(time.Second), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, item2)
	assert.Equal(t, "game-2", item2.GameID)

	// 队列已空
	item3, err := repo.Claim(ctx, "lease-c", now.Add(time.Second), time.Minute)
	require.NoError(t, err)
	assert.Nil(t, item3)
}

func TestQueueRepository_LeaseHidesItem(t *testing.T) {
	db := TestDB(t)
	repo := NewQueueRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Push(ctx, "game-1", now))

	item, err := repo.Claim(ctx, "lease-a", now, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, item)

	// 租约期内不可见
	hidden, err := repo.Claim(ctx, "lease-b", now.Add(30*time.Second), time.Minute)
	require.NoError(t, err)
	assert.Nil(t, hidden)

	// 租约过期后自动重新可见（消费者崩溃的恢复路径）
	redelivered, err := repo.Claim(ctx, "lease-b", now.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, redelivered)
	assert.Equal(t, "game-1", redelivered.GameID)
	assert.Equal(t, "lease-b", redelivered.LeaseID)
}

func TestQueueRepository_Ack(t *testing.T) {
	db := TestDB(t)
	repo := NewQueueRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Push(ctx, "game-1", now))

	item, err := repo.Claim(ctx, "lease-a", now, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, item)

	require.NoError(t, repo.Ack(ctx, "lease-a"))

	// 确认后条目彻底消失，过期也不会重投
	gone, err := repo.Claim(ctx, "lease-b", now.Add(time.Hour), time.Minute)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestQueueRepository_StaleAckIsNoop(t *testing.T) {
	db := TestDB(t)
	repo := NewQueueRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Push(ctx, "game-1", now))

	// 第一个消费者领取后租约过期，条目被第二个消费者接管
	_, err := repo.Claim(ctx, "lease-a", now, time.Minute)
	require.NoError(t, err)
	item, err := repo.Claim(ctx, "lease-b", now.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, item)

	// 迟到的旧租约确认不应删除新租约的条目
	require.NoError(t, repo.Ack(ctx, "lease-a"))

	depth, err := repo.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}

func TestQueueRepository_DuplicateIDsAllowed(t *testing.T) {
	db := TestDB(t)
	repo := NewQueueRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	// 同一游戏id允许并存，去重在应用层
	require.NoError(t, repo.Push(ctx, "game-1", now))
	require.NoError(t, repo.Push(ctx, "game-1", now.Add(time.Millisecond)))

	depth, err := repo.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)
}

func TestQueueRepository_Leased(t *testing.T) {
	db := TestDB(t)
	repo := NewQueueRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Push(ctx, "game-1", now))
	require.NoError(t, repo.Push(ctx, "game-2", now))

	_, err := repo.Claim(ctx, "lease-a", now, time.Minute)
	require.NoError(t, err)

	leased, err := repo.Leased(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), leased)
}

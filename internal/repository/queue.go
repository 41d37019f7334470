package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/wiki-game/internal/models"
	"gorm.io/gorm"
)

// QueueRepository 工作队列仓储接口。出队基于可见性时间戳：
// visible_at <= now 的条目可被领取，领取时把 visible_at 推到租约到期时刻，
// 租约过期的条目自动重新可见，无需单独的回收进程。
type QueueRepository interface {
	BaseRepository
	Push(ctx context.Context, gameID string, now time.Time) error
	// Claim 尝试领取一个可见条目并打上租约。队列为空返回 (nil, nil)。
	Claim(ctx context.Context, leaseID string, now time.Time, visibility time.Duration) (*models.QueueItem, error)
	// Ack 删除租约对应的条目。租约已被他人接管时为无操作。
	Ack(ctx context.Context, leaseID string) error
	Depth(ctx context.Context) (int64, error)
	Leased(ctx context.Context, now time.Time) (int64, error)
}

// queueRepo 工作队列仓储实现
type queueRepo struct {
	*BaseRepo
}

// NewQueueRepository 创建工作队列仓储
func NewQueueRepository(db *gorm.DB) QueueRepository {
	return &queueRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Push 入队。不去重：同一游戏id允许多个条目并存，
// 重复投递由应用层的幂等更新协议吸收。
func (r *queueRepo) Push(ctx context.Context, gameID string, now time.Time) error {
	item := &models.QueueItem{
		GameID:      gameID,
		EnqueueTime: now,
		VisibleAt:   now,
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// Claim 领取条目。先查找最早的可见条目，再以条件更新打租约；
// 条件更新失败说明被其他消费者抢先，换下一个候选。
func (r *queueRepo) Claim(ctx context.Context, leaseID string, now time.Time, visibility time.Duration) (*models.QueueItem, error) {
	// SQLite不支持SELECT FOR UPDATE，用条件更新的影响行数做抢占判定
	for attempt := 0; attempt < 3; attempt++ {
		var item models.QueueItem
		err := r.db.WithContext(ctx).
			Where("visible_at <= ?", now).
			Order("enqueue_time ASC").
			First(&item).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}

		result := r.db.WithContext(ctx).Model(&models.QueueItem{}).
			Where("id = ? AND visible_at <= ?", item.ID, now).
			Updates(map[string]interface{}{
				"lease_id":   leaseID,
				"visible_at": now.Add(visibility),
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			// 输掉抢占，重试下一个候选
			continue
		}

		item.LeaseID = leaseID
		item.VisibleAt = now.Add(visibility)
		return &item, nil
	}
	return nil, nil
}

// Ack 按租约id删除条目
func (r *queueRepo) Ack(ctx context.Context, leaseID string) error {
	return r.db.WithContext(ctx).
		Delete(&models.QueueItem{}, "lease_id = ?", leaseID).Error
}

// Depth 统计队列中的条目总数（含租约期内的）
func (r *queueRepo) Depth(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QueueItem{}).Count(&count).Error
	return count, err
}

// Leased 统计租约期内的条目数
func (r *queueRepo) Leased(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QueueItem{}).
		Where("lease_id <> '' AND visible_at > ?", now).
		Count(&count).Error
	return count, err
}

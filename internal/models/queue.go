package models

import (
	"time"
)

// QueueItem 工作队列条目。只携带游戏id，权威数据始终在games表，
// visible_at 之前的条目对消费者不可见（租约期内）。
type QueueItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GameID      string    `gorm:"size:36;not null;index" json:"game_id"`
	EnqueueTime time.Time `gorm:"not null;index" json:"enqueue_time"`
	VisibleAt   time.Time `gorm:"not null;index" json:"visible_at"`
	LeaseID     string    `gorm:"size:36;index" json:"lease_id"`
}

// TableName 指定表名
func (QueueItem) TableName() string {
	return "queue_items"
}

// Leased 判断条目当前是否处于租约期内
func (q *QueueItem) Leased(now time.Time) bool {
	return q.LeaseID != "" && now.Before(q.VisibleAt)
}

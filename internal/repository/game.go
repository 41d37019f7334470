package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/wiki-game/internal/models"
	"gorm.io/gorm"
)

// ErrGameNotFound 游戏不存在
var ErrGameNotFound = errors.New("游戏不存在")

// GameRepository 对局仓储接口。AppendMove 是唯一的变更路径，
// 通过版本号比较实现每条记录的乐观锁。
type GameRepository interface {
	BaseRepository
	Create(ctx context.Context, game *models.Game) error
	FindByID(ctx context.Context, id string) (*models.Game, error)
	// AppendMove 以比较并更新的方式追加一次移动。
	// 仅当存储中的版本等于 expectedVersion 时生效；版本不匹配返回 (false, nil)，
	// 表示输掉了竞争，调用方需要重读后重试或放弃。
	AppendMove(ctx context.Context, gameID string, expectedVersion int64, article string, ts time.Time, complete bool) (bool, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountComplete(ctx context.Context) (int64, error)
}

// gameRepo 对局仓储实现
type gameRepo struct {
	*BaseRepo
}

// NewGameRepository 创建对局仓储
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建对局
func (r *gameRepo) Create(ctx context.Context, game *models.Game) error {
	return r.db.WithContext(ctx).Create(game).Error
}

// FindByID 根据ID查找对局，移动按 seq 升序加载
func (r *gameRepo) FindByID(ctx context.Context, id string) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).
		Preload("Moves", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&game, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

// AppendMove 比较并更新：条件更新对局行，同一事务内插入移动行。
// 条件更新影响行数为0即版本不匹配，事务内不会产生任何写入。
func (r *gameRepo) AppendMove(ctx context.Context, gameID string, expectedVersion int64, article string, ts time.Time, complete bool) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Game{}).
			Where("id = ? AND version = ?", gameID, expectedVersion).
			Updates(map[string]interface{}{
				"current_article": article,
				"is_complete":     complete,
				"version":         expectedVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 版本不匹配，无任何副作用
			return nil
		}

		move := &models.Move{
			GameID:    gameID,
			Seq:       expectedVersion + 1,
			Article:   article,
			Timestamp: ts,
		}
		if err := tx.Create(move).Error; err != nil {
			return err
		}

		applied = true
		return nil
	})
	return applied, err
}

// Delete 删除对局及其移动记录
func (r *gameRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Game{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrGameNotFound
		}
		return tx.Delete(&models.Move{}, "game_id = ?", id).Error
	})
}

// Count 统计对局总数
func (r *gameRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Game{}).Count(&count).Error
	return count, err
}

// CountComplete 统计已完成对局数
func (r *gameRepo) CountComplete(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("is_complete = ?", true).Count(&count).Error
	return count, err
}

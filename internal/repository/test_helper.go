package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/wiki-game/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 创建测试数据库
func TestDB(t *testing.T) *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库是按连接隔离的，限制为单连接避免各连接各见一套表
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Game{},
		&models.Move{},
		&models.QueueItem{},
		&models.Article{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})

	return db
}

// CreateTestGame 创建测试对局
func CreateTestGame(start, end string) *models.Game {
	return &models.Game{
		ID:             uuid.New().String(),
		StartArticle:   start,
		EndArticle:     end,
		CurrentArticle: start,
		Player:         models.PlayerAI,
	}
}

// CreateTestArticle 创建测试文章
func CreateTestArticle(title string, links ...string) *models.Article {
	return &models.Article{
		Title: title,
		Links: links,
	}
}

// MustAppendMove 追加移动并断言成功
func MustAppendMove(t *testing.T, repo GameRepository, game *models.Game, article string) *models.Game {
	t.Helper()
	ctx := context.Background()

	g, err := repo.FindByID(ctx, game.ID)
	require.NoError(t, err)

	ok, err := repo.AppendMove(ctx, g.ID, g.Version, article, time.Now().UTC(), article == g.EndArticle)
	require.NoError(t, err)
	require.True(t, ok)

	updated, err := repo.FindByID(ctx, g.ID)
	require.NoError(t, err)
	return updated
}

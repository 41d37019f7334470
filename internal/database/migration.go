package database

import (
	"fmt"

	"github.com/wfunc/wiki-game/internal/logger"
	"github.com/wfunc/wiki-game/internal/models"
)

// AutoMigrate 自动迁移所有数据表
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	err := DB.AutoMigrate(
		// 游戏系统
		&models.Game{},
		&models.Move{},

		// 工作队列
		&models.QueueItem{},

		// 文章索引
		&models.Article{},
	)
	if err != nil {
		return fmt.Errorf("数据表迁移失败: %w", err)
	}

	logger.Info("数据表迁移完成")
	return nil
}

package models

import (
	"time"
)

// 玩家类型
const (
	PlayerHuman = "human" // 人类玩家，移动来自PATCH接口
	PlayerAI    = "ai"    // 智能体玩家，移动由工作协程异步计算
)

// Game 对局表。一局从起始文章到目标文章的链接导航，
// version 为乐观锁版本号，恒等于已应用的移动数。
type Game struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	StartArticle   string    `gorm:"size:512;not null" json:"start_article"`
	EndArticle     string    `gorm:"size:512;not null" json:"end_article"`
	CurrentArticle string    `gorm:"size:512;not null" json:"current_article"`
	IsComplete     bool      `gorm:"default:false" json:"is_complete"`
	Player         string    `gorm:"size:10;default:'human'" json:"player"`
	Version        int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// 关联（查询时使用 Preload("Moves") 按 seq 升序加载）
	Moves []Move `gorm:"foreignKey:GameID;references:ID" json:"moves,omitempty"`
}

// TableName 指定表名
func (Game) TableName() string {
	return "games"
}

// LastMoveArticle 返回最后一次移动的文章，没有移动时返回空串
func (g *Game) LastMoveArticle() string {
	if len(g.Moves) == 0 {
		return ""
	}
	return g.Moves[len(g.Moves)-1].Article
}

// Visited 返回本局已访问过的文章集合（含起始文章）
func (g *Game) Visited() map[string]struct{} {
	visited := make(map[string]struct{}, len(g.Moves)+1)
	visited[g.StartArticle] = struct{}{}
	for _, m := range g.Moves {
		visited[m.Article] = struct{}{}
	}
	return visited
}

// Move 移动表。(game_id, seq) 唯一，seq 从1开始且连续，
// 保证单局内移动全序且不会重复落库。
type Move struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GameID    string    `gorm:"size:36;not null;uniqueIndex:idx_moves_game_seq,priority:1" json:"game_id"`
	Seq       int64     `gorm:"not null;uniqueIndex:idx_moves_game_seq,priority:2" json:"seq"`
	Article   string    `gorm:"size:512;not null" json:"article"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
}

// TableName 指定表名
func (Move) TableName() string {
	return "moves"
}

package repository

import (
	"context"
	"errors"

	"github.com/wfunc/wiki-game/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrArticleNotFound 文章不存在
var ErrArticleNotFound = errors.New("文章不存在")

// ArticleRepository 文章索引仓储接口
type ArticleRepository interface {
	BaseRepository
	Upsert(ctx context.Context, article *models.Article) error
	FindByTitle(ctx context.Context, title string) (*models.Article, error)
	Count(ctx context.Context) (int64, error)
}

// articleRepo 文章索引仓储实现
type articleRepo struct {
	*BaseRepo
}

// NewArticleRepository 创建文章索引仓储
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Upsert 按标题插入或更新文章
func (r *articleRepo) Upsert(ctx context.Context, article *models.Article) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "title"}},
			DoUpdates: clause.AssignmentColumns([]string{"links"}),
		}).
		Create(article).Error
}

// FindByTitle 按标题查找文章
func (r *articleRepo) FindByTitle(ctx context.Context, title string) (*models.Article, error) {
	var article models.Article
	err := r.db.WithContext(ctx).Where("title = ?", title).First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return &article, nil
}

// Count 统计文章总数
func (r *articleRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Article{}).Count(&count).Error
	return count, err
}

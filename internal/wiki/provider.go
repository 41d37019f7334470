package wiki

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/wiki-game/internal/errors"
	"github.com/wfunc/wiki-game/internal/models"
	"github.com/wfunc/wiki-game/internal/repository"
)

// LinkProvider 出链获取协作方的边界。获取失败与"没有候选"
// 在工作协程侧同等对待。
type LinkProvider interface {
	// GetOutgoingLinks 返回文章的出链标题集合
	GetOutgoingLinks(ctx context.Context, article string) ([]string, error)
}

// Store 基于文章索引表的链接提供方
type Store struct {
	repo repository.ArticleRepository
}

// NewStore 创建链接提供方
func NewStore(repo repository.ArticleRepository) *Store {
	return &Store{repo: repo}
}

// GetOutgoingLinks 查询文章出链，文章不在索引中视为获取失败
func (s *Store) GetOutgoingLinks(ctx context.Context, article string) ([]string, error) {
	found, err := s.repo.FindByTitle(ctx, article)
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			return nil, apperrors.Newf(apperrors.ErrLinkFetch, "文章 %q 不在索引中", article)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrLinkFetch)
	}
	return found.Links, nil
}

// ImportArticle 写入一篇文章的出链（测试和种子数据用）
func (s *Store) ImportArticle(ctx context.Context, title string, links []string) error {
	return s.repo.Upsert(ctx, &models.Article{
		Title: title,
		Links: links,
	})
}

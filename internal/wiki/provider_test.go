package wiki

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/wiki-game/internal/errors"
	"github.com/wfunc/wiki-game/internal/repository"
)

func TestStore_GetOutgoingLinks(t *testing.T) {
	db := repository.TestDB(t)
	store := NewStore(repository.NewArticleRepository(db))
	ctx := context.Background()

	require.NoError(t, store.ImportArticle(ctx, "Apple", []string{"Fruit", "Tree", "Apple Inc."}))

	links, err := store.GetOutgoingLinks(ctx, "Apple")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fruit", "Tree", "Apple Inc."}, links)
}

func TestStore_GetOutgoingLinks_Missing(t *testing.T) {
	db := repository.TestDB(t)
	store := NewStore(repository.NewArticleRepository(db))

	links, err := store.GetOutgoingLinks(context.Background(), "不存在的文章")
	assert.Nil(t, links)
	require.Error(t, err)
	assert.Equal(t, errors.ErrLinkFetch, errors.GetCode(err))
}

package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/wiki-game/internal/config"
	"github.com/wfunc/wiki-game/internal/errors"
	"go.uber.org/zap"
)

// newLLMServer 模拟OpenAI兼容接口，按调用次数依次返回预设回答
func newLLMServer(t *testing.T, answers []string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		require.Less(t, calls, len(answers), "模型被询问的次数超出预期")
		answer := answers[calls]
		calls++

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": answer}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newTestLLMSelector(baseURL string) *LLMSelector {
	return NewLLMSelector(config.AgentConfig{
		Provider:    "llm",
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Model:       "test-model",
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
	}, zap.NewNop())
}

func TestLLMSelector_ChooseNextArticle(t *testing.T) {
	server, calls := newLLMServer(t, []string{"Fruit juice"})
	selector := newTestLLMSelector(server.URL)

	got, err := selector.ChooseNextArticle(context.Background(), "Apple", "Fruit salad",
		[]string{"Tree", "Fruit juice", "Apple Inc."})
	require.NoError(t, err)
	assert.Equal(t, "Fruit juice", got)
	assert.Equal(t, 1, *calls)
}

func TestLLMSelector_RetriesInvalidLink(t *testing.T) {
	// 前两次回复不在出链集合中，第三次才有效
	server, calls := newLLMServer(t, []string{"Banana", "  Fruit Basket ", "Tree"})
	selector := newTestLLMSelector(server.URL)

	got, err := selector.ChooseNextArticle(context.Background(), "Apple", "Forest",
		[]string{"Tree", "Orchard"})
	require.NoError(t, err)
	assert.Equal(t, "Tree", got)
	assert.Equal(t, 3, *calls)
}

func TestLLMSelector_FailsAfterMaxAttempts(t *testing.T) {
	server, calls := newLLMServer(t, []string{"Banana", "Banana", "Banana"})
	selector := newTestLLMSelector(server.URL)

	_, err := selector.ChooseNextArticle(context.Background(), "Apple", "Forest",
		[]string{"Tree", "Orchard"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrDecisionFailed, errors.GetCode(err))
	assert.Equal(t, 3, *calls)
}

func TestLLMSelector_GoalShortcutSkipsModel(t *testing.T) {
	server, calls := newLLMServer(t, nil)
	selector := newTestLLMSelector(server.URL)

	got, err := selector.ChooseNextArticle(context.Background(), "Apple", "fruit",
		[]string{"Tree", "Fruit"})
	require.NoError(t, err)
	assert.Equal(t, "Fruit", got)
	assert.Equal(t, 0, *calls)
}

func TestLLMSelector_NoLinks(t *testing.T) {
	selector := newTestLLMSelector("http://127.0.0.1:1")

	_, err := selector.ChooseNextArticle(context.Background(), "Dead End", "Fruit", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrNoCandidate, errors.GetCode(err))
}

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wfunc/wiki-game/internal/config"
	"github.com/wfunc/wiki-game/internal/errors"
	"go.uber.org/zap"
)

// LLMSelector 基于OpenAI兼容接口的大模型决策器。
// 模型返回的候选必须在出链集合内，否则带上错误提示重新询问，
// 最多 maxAttempts 次，仍然无效则决策失败。
type LLMSelector struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	maxAttempts int
	logger      *zap.Logger
}

// NewLLMSelector 创建大模型决策器
func NewLLMSelector(cfg config.AgentConfig, logger *zap.Logger) *LLMSelector {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &LLMSelector{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxAttempts: attempts,
		logger:      logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChooseNextArticle 询问模型选择下一步文章
func (s *LLMSelector) ChooseNextArticle(ctx context.Context, current, target string, links []string) (string, error) {
	if len(links) == 0 {
		return "", errors.Newf(errors.ErrNoCandidate, "文章 %q 没有出链", current)
	}

	if hit, ok := ContainsFold(links, target); ok {
		return hit, nil
	}

	messages := []chatMessage{
		{Role: "system", Content: "你是维基百科链接游戏的玩家。每一步从当前文章的出链中选择一个，使路径尽快到达目标文章。只回复所选链接的完整标题，不要附加任何解释。"},
		{Role: "user", Content: fmt.Sprintf("当前文章：%s\n目标文章：%s\n可选出链：\n%s", current, target, strings.Join(links, "\n"))},
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		answer, err := s.complete(ctx, messages)
		if err != nil {
			lastErr = err
			s.logger.Warn("大模型调用失败",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		if hit, ok := ContainsFold(links, answer); ok {
			return hit, nil
		}

		s.logger.Warn("大模型返回了无效候选",
			zap.Int("attempt", attempt),
			zap.String("answer", answer))
		lastErr = errors.Newf(errors.ErrDecisionFailed, "模型回复 %q 不在出链集合中", answer)
		// 把无效回复和纠正提示追加进对话，让模型重选
		messages = append(messages,
			chatMessage{Role: "assistant", Content: answer},
			chatMessage{Role: "user", Content: fmt.Sprintf("%q 不在可选出链中。请从上面列出的出链里原样选择一个标题回复。", answer)},
		)
	}

	return "", errors.Wrap(lastErr, errors.ErrDecisionFailed)
}

// complete 发起一次chat completion调用
func (s *LLMSelector) complete(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrDecisionFailed)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrDecisionFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf(errors.ErrDecisionFailed, "模型接口返回 %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Wrap(err, errors.ErrDecisionFailed)
	}
	if parsed.Error != nil {
		return "", errors.Newf(errors.ErrDecisionFailed, "模型接口错误: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New(errors.ErrDecisionFailed, "模型没有返回任何choice")
	}

	answer := strings.TrimSpace(parsed.Choices[0].Message.Content)
	s.logger.Debug("大模型决策完成",
		zap.String("answer", answer),
		zap.Duration("elapsed", time.Since(start)))
	return answer, nil
}

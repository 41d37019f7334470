package agent

import (
	"context"

	"github.com/wfunc/wiki-game/internal/errors"
	"go.uber.org/zap"
)

// HeuristicSelector 基于词元重合度的本地决策器。不依赖外部服务，
// 用于测试和没有配置大模型的部署。
type HeuristicSelector struct {
	logger *zap.Logger
}

// NewHeuristicSelector 创建启发式决策器
func NewHeuristicSelector(logger *zap.Logger) *HeuristicSelector {
	return &HeuristicSelector{logger: logger}
}

// ChooseNextArticle 选择与目标词元重合度最高的候选；
// 同分时保留先出现的候选，保证决策可复现
func (s *HeuristicSelector) ChooseNextArticle(ctx context.Context, current, target string, links []string) (string, error) {
	if len(links) == 0 {
		return "", errors.Newf(errors.ErrNoCandidate, "文章 %q 没有出链", current)
	}

	if hit, ok := ContainsFold(links, target); ok {
		return hit, nil
	}

	targetTokens := normalize(target)
	best := links[0]
	bestScore := -1
	for _, link := range links {
		score := 0
		for token := range normalize(link) {
			if _, ok := targetTokens[token]; ok {
				score++
			}
		}
		if score > bestScore {
			best = link
			bestScore = score
		}
	}

	s.logger.Debug("启发式决策",
		zap.String("current", current),
		zap.String("target", target),
		zap.String("chosen", best),
		zap.Int("score", bestScore),
		zap.Int("candidates", len(links)))
	return best, nil
}

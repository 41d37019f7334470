package worker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/wiki-game/internal/agent"
	"github.com/wfunc/wiki-game/internal/config"
	"github.com/wfunc/wiki-game/internal/errors"
	"github.com/wfunc/wiki-game/internal/models"
	"github.com/wfunc/wiki-game/internal/queue"
	"github.com/wfunc/wiki-game/internal/service"
	"github.com/wfunc/wiki-game/internal/wiki"
	"go.uber.org/zap"
)

// 决策失败时的回退策略
const (
	FallbackBacktrack = "backtrack" // 回退到上一篇文章继续尝试
	FallbackAbandon   = "abandon"   // 放弃本局，留在未完成状态
)

// Pool 工作协程池。每个协程循环领取智能体对局，推进一步后
// 确认租约；对局未完成则重新入队，由下一次领取继续推进。
type Pool struct {
	games    service.GameService
	queue    queue.Queue
	links    wiki.LinkProvider
	selector agent.Selector
	cfg      config.WorkerConfig
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool 创建工作协程池
func NewPool(
	games service.GameService,
	q queue.Queue,
	links wiki.LinkProvider,
	selector agent.Selector,
	cfg config.WorkerConfig,
	logger *zap.Logger,
) *Pool {
	if cfg.Count <= 0 {
		cfg.Count = 1
	}
	if cfg.Fallback == "" {
		cfg.Fallback = FallbackBacktrack
	}
	return &Pool{
		games:    games,
		queue:    q,
		links:    links,
		selector: selector,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start 启动所有工作协程
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.cfg.Count; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}

	p.logger.Info("工作协程池已启动", zap.Int("count", p.cfg.Count))
}

// Stop 停止池并等待所有协程退出
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("工作协程池已停止")
}

// run 单个工作协程的主循环
func (p *Pool) run(ctx context.Context, id int) {
	logger := p.logger.With(zap.Int("worker", id))
	logger.Debug("工作协程启动")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("工作协程退出")
			return
		default:
		}

		lease, err := p.queue.Pop(ctx, p.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("出队失败", zap.Error(err))
			p.sleep(ctx, p.cfg.ErrorBackoff)
			continue
		}
		if lease == nil {
			p.sleep(ctx, p.cfg.IdleBackoff)
			continue
		}

		if err := p.process(ctx, logger, lease); err != nil {
			// 不确认、不重新入队：租约到期后自动重投，
			// 幂等提交协议保证重投不会重复落子
			logger.Warn("处理对局失败，等待租约重投",
				zap.String("game_id", lease.GameID),
				zap.Error(err))
			p.sleep(ctx, p.cfg.ErrorBackoff)
		}
	}
}

// process 领取到对局后推进一步
func (p *Pool) process(ctx context.Context, logger *zap.Logger, lease *queue.Lease) error {
	game, err := p.games.GetGame(ctx, lease.GameID)
	if err != nil {
		if errors.GetCode(err) == errors.ErrGameNotFound {
			// 对局已被删除，丢弃队列条目
			logger.Info("对局不存在，丢弃条目", zap.String("game_id", lease.GameID))
			return p.queue.Ack(ctx, lease)
		}
		return err
	}

	if game.IsComplete {
		logger.Debug("对局已完成，丢弃条目", zap.String("game_id", game.ID))
		return p.queue.Ack(ctx, lease)
	}

	if game.Version >= int64(p.cfg.MaxMoves) {
		// 步数到达上限，放弃推进，留在未完成状态
		logger.Warn("对局步数达到上限",
			zap.String("game_id", game.ID),
			zap.Int64("moves", game.Version))
		return p.queue.Ack(ctx, lease)
	}

	next, err := p.decide(ctx, logger, game)
	if err != nil {
		return err
	}
	if next == "" {
		// 无路可走且无法回退，放弃本局
		logger.Warn("对局无路可走，放弃",
			zap.String("game_id", game.ID),
			zap.String("current", game.CurrentArticle))
		return p.queue.Ack(ctx, lease)
	}

	updated, err := p.games.SubmitMove(ctx, game.ID, next)
	if err != nil {
		return err
	}

	if !updated.IsComplete {
		// 先重新入队，再确认旧租约。两步之间崩溃只会造成重复投递，
		// 由幂等提交吸收；反序则入队失败后条目已删，对局永久卡死
		if err := p.queue.Push(ctx, updated.ID); err != nil {
			return err
		}
		return p.queue.Ack(ctx, lease)
	}

	if err := p.queue.Ack(ctx, lease); err != nil {
		return err
	}

	logger.Info("对局完成",
		zap.String("game_id", updated.ID),
		zap.Int64("moves", updated.Version))
	return nil
}

// decide 为对局选出下一步。链接获取失败或决策失败时按回退策略处理：
// backtrack 返回上一篇文章，abandon 返回空串表示放弃。
func (p *Pool) decide(ctx context.Context, logger *zap.Logger, game *models.Game) (string, error) {
	links, err := p.links.GetOutgoingLinks(ctx, game.CurrentArticle)
	if err != nil {
		logger.Warn("获取出链失败",
			zap.String("game_id", game.ID),
			zap.String("article", game.CurrentArticle),
			zap.Error(err))
		return p.fallback(game), nil
	}

	// 剪掉已访问过的文章，避免决策方原地打转；目标文章永远保留
	candidates := pruneVisited(links, game)
	if len(candidates) == 0 {
		return p.fallback(game), nil
	}

	next, err := p.selector.ChooseNextArticle(ctx, game.CurrentArticle, game.EndArticle, candidates)
	if err != nil {
		code := errors.GetCode(err)
		if code == errors.ErrNoCandidate || code == errors.ErrDecisionFailed {
			logger.Warn("决策失败",
				zap.String("game_id", game.ID),
				zap.Error(err))
			return p.fallback(game), nil
		}
		return "", err
	}
	return next, nil
}

// fallback 按配置的回退策略给出下一步
func (p *Pool) fallback(game *models.Game) string {
	if p.cfg.Fallback == FallbackAbandon {
		return ""
	}

	// 回退到当前文章的前一站；已在起点时无处可退
	switch len(game.Moves) {
	case 0:
		return ""
	case 1:
		return game.StartArticle
	default:
		return game.Moves[len(game.Moves)-2].Article
	}
}

// pruneVisited 从候选中去掉已访问过的文章和当前文章
func pruneVisited(links []string, game *models.Game) []string {
	visited := game.Visited()
	visited[game.CurrentArticle] = struct{}{}

	candidates := make([]string, 0, len(links))
	for _, link := range links {
		// 与选择器的目标匹配保持一致：大小写不敏感
		if strings.EqualFold(link, game.EndArticle) {
			return []string{link}
		}
		if _, seen := visited[link]; seen {
			continue
		}
		candidates = append(candidates, link)
	}
	return candidates
}

// sleep 可被取消的等待
func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

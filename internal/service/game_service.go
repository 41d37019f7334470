package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/wiki-game/internal/errors"
	"github.com/wfunc/wiki-game/internal/models"
	"github.com/wfunc/wiki-game/internal/queue"
	"github.com/wfunc/wiki-game/internal/repository"
	"go.uber.org/zap"
)

// casMaxRetries 提交移动时输掉版本竞争后的最大重读重试次数
const casMaxRetries = 3

// Notifier 对局状态推送边界，由WebSocket Hub实现
type Notifier interface {
	PublishGame(gameID, msgType string, payload interface{}) error
}

// 推送消息类型，与websocket包的常量保持一致
const (
	notifyGameMove     = "game_move"
	notifyGameComplete = "game_complete"
)

// GameService 对局服务接口。SubmitMove 是人类玩家和工作协程
// 共用的幂等提交路径。
type GameService interface {
	CreateGame(ctx context.Context, start, end, player string) (*models.Game, error)
	GetGame(ctx context.Context, id string) (*models.Game, error)
	// SubmitMove 幂等提交一次移动，返回提交后的对局状态。
	// 对局已完成、或最后一次移动与article相同时为无操作。
	SubmitMove(ctx context.Context, id, article string) (*models.Game, error)
	DeleteGame(ctx context.Context, id string) error
	Stats(ctx context.Context) (*GameStats, error)
}

// GameStats 运行统计
type GameStats struct {
	TotalGames    int64 `json:"total_games"`
	CompleteGames int64 `json:"complete_games"`
	PendingGames  int64 `json:"pending_games"`
	QueueDepth    int64 `json:"queue_depth"`
	ArticleCount  int64 `json:"article_count"`
}

// gameService 对局服务实现
type gameService struct {
	games    repository.GameRepository
	articles repository.ArticleRepository
	queue    queue.Queue
	notifier Notifier
	logger   *zap.Logger
}

// NewGameService 创建对局服务。notifier 可为 nil（无推送）
func NewGameService(
	games repository.GameRepository,
	articles repository.ArticleRepository,
	q queue.Queue,
	notifier Notifier,
	logger *zap.Logger,
) GameService {
	return &gameService{
		games:    games,
		articles: articles,
		queue:    q,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateGame 创建对局。起点与终点相同的对局直接创建为已完成，
// 智能体对局创建后入队等待工作协程处理。
func (s *gameService) CreateGame(ctx context.Context, start, end, player string) (*models.Game, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil, errors.New(errors.ErrInvalidParam, "起始文章和目标文章不能为空")
	}

	if player == "" {
		player = models.PlayerHuman
	}
	if player != models.PlayerHuman && player != models.PlayerAI {
		return nil, errors.Newf(errors.ErrInvalidParam, "未知的玩家类型 %q", player)
	}

	game := &models.Game{
		ID:             uuid.New().String(),
		StartArticle:   start,
		EndArticle:     end,
		CurrentArticle: start,
		IsComplete:     start == end,
		Player:         player,
	}

	if err := s.games.Create(ctx, game); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseInsert)
	}

	s.logger.Info("对局已创建",
		zap.String("game_id", game.ID),
		zap.String("start", start),
		zap.String("end", end),
		zap.String("player", player),
		zap.Bool("is_complete", game.IsComplete))

	// 已完成的对局没有任何待办，绝不入队
	if player == models.PlayerAI && !game.IsComplete {
		if err := s.queue.Push(ctx, game.ID); err != nil {
			return nil, err
		}
	}

	return game, nil
}

// GetGame 查询对局
func (s *gameService) GetGame(ctx context.Context, id string) (*models.Game, error) {
	game, err := s.games.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrGameNotFound) {
			return nil, errors.Newf(errors.ErrGameNotFound, "对局 %s 不存在", id)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return game, nil
}

// SubmitMove 幂等提交协议：
//  1. 读取对局，已完成或最后一次移动相同则无操作返回；
//  2. 按读取到的版本号做比较并更新；
//  3. 输掉竞争则重读，重新做幂等检查后重试，有限次后报版本冲突。
//
// 重复投递的同一移动会命中第1步的无操作分支，因此队列重投是安全的。
func (s *gameService) SubmitMove(ctx context.Context, id, article string) (*models.Game, error) {
	article = strings.TrimSpace(article)
	if article == "" {
		return nil, errors.New(errors.ErrInvalidParam, "移动的文章不能为空")
	}

	for attempt := 0; attempt <= casMaxRetries; attempt++ {
		game, err := s.GetGame(ctx, id)
		if err != nil {
			return nil, err
		}

		// 幂等检查：已完成的对局不再变化
		if game.IsComplete {
			return game, nil
		}
		// 幂等检查：与最后一次移动相同视为重复提交
		if game.LastMoveArticle() == article {
			return game, nil
		}

		complete := article == game.EndArticle
		applied, err := s.games.AppendMove(ctx, game.ID, game.Version, article, time.Now().UTC(), complete)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseUpdate)
		}
		if !applied {
			// 输掉版本竞争，重读后再判断
			s.logger.Debug("移动提交竞争失败",
				zap.String("game_id", id),
				zap.Int64("expected_version", game.Version),
				zap.Int("attempt", attempt))
			continue
		}

		updated, err := s.GetGame(ctx, id)
		if err != nil {
			return nil, err
		}
		s.logger.Info("移动已提交",
			zap.String("game_id", id),
			zap.String("article", article),
			zap.Int64("version", updated.Version),
			zap.Bool("is_complete", updated.IsComplete))
		s.notify(updated)
		return updated, nil
	}

	return nil, errors.Newf(errors.ErrVersionConflict, "对局 %s 并发更新冲突", id)
}

// DeleteGame 删除对局及其移动记录
func (s *gameService) DeleteGame(ctx context.Context, id string) error {
	if err := s.games.Delete(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrGameNotFound) {
			return errors.Newf(errors.ErrGameNotFound, "对局 %s 不存在", id)
		}
		return errors.Wrap(err, errors.ErrDatabaseDelete)
	}
	s.logger.Info("对局已删除", zap.String("game_id", id))
	return nil
}

// Stats 统计对局和队列状态
func (s *gameService) Stats(ctx context.Context) (*GameStats, error) {
	total, err := s.games.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	complete, err := s.games.CountComplete(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	depth, err := s.queue.Depth(ctx)
	if err != nil {
		return nil, err
	}
	articles, err := s.articles.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	return &GameStats{
		TotalGames:    total,
		CompleteGames: complete,
		PendingGames:  total - complete,
		QueueDepth:    depth,
		ArticleCount:  articles,
	}, nil
}

// notify 推送对局状态给观察者，推送失败只记日志不影响提交
func (s *gameService) notify(game *models.Game) {
	if s.notifier == nil {
		return
	}
	msgType := notifyGameMove
	if game.IsComplete {
		msgType = notifyGameComplete
	}
	if err := s.notifier.PublishGame(game.ID, msgType, game); err != nil {
		s.logger.Warn("推送对局状态失败",
			zap.String("game_id", game.ID),
			zap.Error(err))
	}
}

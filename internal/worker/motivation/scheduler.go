// Package motivation は最新の気分に応じた励ましメッセージを定期配信するバッチを提供する。
package motivation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/moodmate/internal/metrics"
	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/notification"
	"github.com/hitoshi/moodmate/internal/repository"
)

// ErrBatchInProgress は前回のバッチがまだ実行中のためスキップしたことを示す。
var ErrBatchInProgress = errors.New("motivation batch already in progress")

// Deliverer は通知の配信パイプライン。
type Deliverer interface {
	Deliver(ctx context.Context, kind notification.Kind, userID, message string) (*model.Notification, error)
}

// MessagePicker は気分カテゴリからメッセージを1件選ぶ。該当が無い場合はnilを返す。
type MessagePicker interface {
	Pick(ctx context.Context, moodType model.MoodType) (*model.MotivationalMessage, error)
}

// BatchResult は1回のバッチの集計。
type BatchResult struct {
	Users       int // 全ユーザー数
	Eligible    int // 気分記録があるユーザー数
	Sent        int
	EmptyBucket int // 該当カテゴリのメッセージが無くスキップした数
	Failed      int
}

// Scheduler は起動直後と一定間隔で励ましメッセージのバッチを実行する。
type Scheduler struct {
	users    repository.UserRepository
	moods    repository.MoodRepository
	picker   MessagePicker
	deliver  Deliverer
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
	interval time.Duration

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler はSchedulerを生成する。intervalが0以下の場合は7時間を使う。
func NewScheduler(
	users repository.UserRepository,
	moods repository.MoodRepository,
	picker MessagePicker,
	deliver Deliverer,
	logger *slog.Logger,
	mc metrics.MetricsCollector,
	interval time.Duration,
) *Scheduler {
	if interval <= 0 {
		interval = 7 * time.Hour
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Scheduler{
		users:    users,
		moods:    moods,
		picker:   picker,
		deliver:  deliver,
		logger:   logger,
		metrics:  mc,
		interval: interval,
	}
}

// Start はバックグラウンドでスケジューラを起動する。
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop はティッカーを止め、実行中のバッチが終わるまで待つ。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("励ましメッセージスケジューラを開始しました",
		slog.Duration("interval", s.interval),
	)

	s.batch(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("励ましメッセージスケジューラを停止しました")
			return
		case <-ticker.C:
			s.batch(ctx)
		}
	}
}

func (s *Scheduler) batch(ctx context.Context) {
	if _, err := s.RunOnce(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, ErrBatchInProgress) {
		s.logger.Error("励ましメッセージバッチの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は全ユーザーに対してバッチを1回実行する。
// ユーザー一覧の取得に失敗した場合のみエラーを返す。
// ユーザー単位の失敗は集計に含め、残りのユーザーの処理を続ける。
func (s *Scheduler) RunOnce(ctx context.Context) (BatchResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("前回の励ましメッセージバッチが実行中のためスキップしました")
		return BatchResult{}, ErrBatchInProgress
	}
	defer s.running.Store(false)

	start := time.Now()

	users, err := s.users.ListAll(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to list users: %w", err)
	}

	res := BatchResult{Users: len(users)}
	for _, u := range users {
		s.processUser(ctx, u, &res)
	}

	s.metrics.RecordMotivationBatch(res.Sent)
	s.logger.Info("励ましメッセージバッチが完了しました",
		slog.Int("sent", res.Sent),
		slog.Int("eligible", res.Eligible),
		slog.Int("users", res.Users),
		slog.Int("empty_bucket", res.EmptyBucket),
		slog.Int("failed", res.Failed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return res, nil
}

func (s *Scheduler) processUser(ctx context.Context, u *model.User, res *BatchResult) {
	mood, err := s.moods.LatestByUser(ctx, u.ID)
	if err != nil {
		res.Failed++
		s.logger.Error("最新の気分記録の取得に失敗しました",
			slog.String("user_id", u.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if mood == nil {
		return
	}
	res.Eligible++

	moodType := model.MoodTypeOf(mood.Mood)
	msg, err := s.picker.Pick(ctx, moodType)
	if err != nil {
		res.Failed++
		s.logger.Error("励ましメッセージの選択に失敗しました",
			slog.String("user_id", u.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if msg == nil {
		res.EmptyBucket++
		s.logger.Warn("該当カテゴリの励ましメッセージがありません",
			slog.String("user_id", u.ID),
			slog.String("mood_type", string(moodType)),
		)
		return
	}

	if _, err := s.deliver.Deliver(ctx, notification.KindMotivation, u.ID, msg.Content); err != nil {
		res.Failed++
		s.logger.Error("励ましメッセージの配信に失敗しました",
			slog.String("user_id", u.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	res.Sent++
}

package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hitoshi/moodmate/internal/metrics"
)

// ErrRegistryClosed はシャットダウン後に接続を登録しようとした場合のエラー。
var ErrRegistryClosed = errors.New("registry is closed")

// Registry はユーザーごとのWebSocket接続集合を管理する。
// 接続集合はmutexで保護し、ファンアウトはスナップショットに対して
// 接続ごとに独立したノンブロッキングのキュー投入で行う。
type Registry struct {
	mu     sync.Mutex
	conns  map[string]map[*Conn]struct{}
	total  int
	closed bool
	active sync.WaitGroup

	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewRegistry はRegistryを生成する。mcがnilの場合はメトリクスを記録しない。
func NewRegistry(logger *slog.Logger, mc metrics.MetricsCollector) *Registry {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Registry{
		conns:   make(map[string]map[*Conn]struct{}),
		logger:  logger,
		metrics: mc,
	}
}

// Register は接続をユーザーの接続集合に追加する。
func (r *Registry) Register(c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}

	set, ok := r.conns[c.UserID]
	if !ok {
		set = make(map[*Conn]struct{})
		r.conns[c.UserID] = set
	}
	if _, dup := set[c]; dup {
		return nil
	}
	set[c] = struct{}{}
	r.total++
	r.active.Add(1)
	r.metrics.SetConnections(r.total)

	r.logger.Info("WebSocket接続を登録しました",
		slog.String("user_id", c.UserID),
		slog.String("conn_id", c.ID),
		slog.Int("user_connections", len(set)),
	)
	return nil
}

// Unregister は接続を接続集合から取り除く。集合が空になったユーザーのエントリは削除する。
func (r *Registry) Unregister(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, c.UserID)
	}
	r.total--
	r.active.Done()
	r.metrics.SetConnections(r.total)

	r.logger.Info("WebSocket接続を解除しました",
		slog.String("user_id", c.UserID),
		slog.String("conn_id", c.ID),
	)
}

// Fanout はユーザーの全接続にイベントを送信キュー経由で配信し、投入できた接続数を返す。
// 接続が無いユーザーへの配信は何もせず0を返す。
// キューが満杯の接続ではそのイベントのみ破棄する。
func (r *Registry) Fanout(userID, event string, payload any) int {
	r.mu.Lock()
	set := r.conns[userID]
	targets := make([]*Conn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	r.mu.Unlock()

	if len(targets) == 0 {
		return 0
	}

	msg, err := encodeEvent(event, payload)
	if err != nil {
		r.logger.Error("イベントのエンコードに失敗しました",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		return 0
	}

	queued := 0
	for _, c := range targets {
		if c.enqueue(msg) {
			queued++
			r.metrics.RecordFanout(metrics.FanoutQueued)
			continue
		}
		r.metrics.RecordFanout(metrics.FanoutDropped)
		r.logger.Warn("送信キューが満杯のためイベントを破棄しました",
			slog.String("user_id", userID),
			slog.String("conn_id", c.ID),
			slog.String("event", event),
		)
	}
	return queued
}

// ConnectionCount はユーザーの現在の接続数を返す。
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[userID])
}

// UserCount は接続中のユーザー数を返す。
func (r *Registry) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseUser はユーザーの全接続にクローズを要求する。退会時に使う。
func (r *Registry) CloseUser(userID string) {
	r.mu.Lock()
	targets := make([]*Conn, 0, len(r.conns[userID]))
	for c := range r.conns[userID] {
		targets = append(targets, c)
	}
	r.mu.Unlock()

	for _, c := range targets {
		c.Close()
	}
}

// Shutdown は新規登録を停止し、全接続をクローズする。
// 各接続はキュー済みのイベントを送信してから閉じる。
// 全接続の登録解除を待つが、ctxの期限を超えた場合はctx.Err()を返す。
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	var targets []*Conn
	for _, set := range r.conns {
		for c := range set {
			targets = append(targets, c)
		}
	}
	r.mu.Unlock()

	r.logger.Info("接続レジストリを停止します", slog.Int("connections", len(targets)))
	for _, c := range targets {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		r.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

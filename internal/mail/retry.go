package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/hitoshi/moodmate/internal/model"
)

const (
	// defaultAttempts は送信の最大試行回数。
	defaultAttempts = 3
	// initialBackoff は指数バックオフの初回遅延。
	initialBackoff = 2 * time.Second
	// maxBackoff は指数バックオフの最大遅延。
	maxBackoff = 30 * time.Second
)

// SendResult は送信エラーの分類。
type SendResult int

const (
	// SendResultOK は送信成功。
	SendResultOK SendResult = iota
	// SendResultRetry は一時的な失敗で再送が可能。
	SendResultRetry
	// SendResultGiveUp は恒久的な失敗で再送しない。
	SendResultGiveUp
)

// ClassifySendError は送信エラーを再送可否で分類する。
// SMTPの4xx応答と接続エラーは一時的、5xx応答と宛先不正は恒久的とみなす。
func ClassifySendError(err error) SendResult {
	if err == nil {
		return SendResultOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return SendResultGiveUp
	}
	var sendErr *gomail.SendError
	if errors.As(err, &sendErr) {
		if sendErr.IsTemp() {
			return SendResultRetry
		}
		return SendResultGiveUp
	}
	if errors.Is(err, model.ErrTransport) {
		return SendResultRetry
	}
	return SendResultGiveUp
}

// CalculateBackoff は再送回数に基づいて指数バックオフ遅延を計算する。
// 初回2秒、2倍ずつ増加、最大30秒。
func CalculateBackoff(retries int) time.Duration {
	delay := initialBackoff
	for i := 0; i < retries; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// RetrySender は一時的な失敗を指数バックオフで再送するSender。
type RetrySender struct {
	next     Sender
	attempts int
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetrySender はnextをラップしたRetrySenderを生成する。
// attemptsが0以下の場合は3回とする。
func NewRetrySender(next Sender, attempts int, logger *slog.Logger) *RetrySender {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	return &RetrySender{
		next:     next,
		attempts: attempts,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Send は送信に成功するか、恒久的な失敗か、試行回数の上限に達するまで再送する。
func (s *RetrySender) Send(ctx context.Context, to, subject, body string) error {
	var err error
	for i := 0; i < s.attempts; i++ {
		err = s.next.Send(ctx, to, subject, body)
		if ClassifySendError(err) != SendResultRetry {
			return err
		}
		if i == s.attempts-1 {
			break
		}

		delay := CalculateBackoff(i)
		s.logger.Debug("メール送信を再試行します",
			slog.Int("attempt", i+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		if werr := s.sleep(ctx, delay); werr != nil {
			return fmt.Errorf("%w: %w", err, werr)
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", s.attempts, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ Sender = (*RetrySender)(nil)

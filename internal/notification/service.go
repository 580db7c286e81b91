// Package notification は通知の配信パイプラインと通知の参照・更新を提供する。
//
// 配信は「永続化 → ライブ配信 → メール」の3段階で行う。
// 永続化のみが必須で、ライブ配信とメールはベストエフォートとする。
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/moodmate/internal/mail"
	"github.com/hitoshi/moodmate/internal/metrics"
	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/realtime"
	"github.com/hitoshi/moodmate/internal/repository"
	"github.com/hitoshi/moodmate/internal/security"
)

// Kind は配信の種別。メール件名とメトリクスのラベルに使う。
type Kind string

const (
	KindReminder   Kind = "reminder"
	KindMotivation Kind = "motivation"
)

// ErrEmptyMessage はサニタイズ後のメッセージが空の場合のエラー。
var ErrEmptyMessage = errors.New("message is empty")

// Fanouter はユーザーの接続へイベントを配信する。
type Fanouter interface {
	Fanout(userID, event string, payload any) int
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithEmail は配信種別ごとにメール送信の有無を設定する。
func WithEmail(kind Kind, enabled bool) Option {
	return func(s *Service) {
		s.emailKinds[kind] = enabled
	}
}

// Service は通知の配信と管理を行う。
type Service struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	fanout        Fanouter
	mailer        mail.Sender
	sanitizer     *security.TextSanitizer
	emailKinds    map[Kind]bool
	logger        *slog.Logger
	metrics       metrics.MetricsCollector
	now           func() time.Time
}

// NewService はServiceを生成する。mailerがnilの場合はメールを送らない。
// デフォルトではリマインダーと励ましメッセージの両方でメールを送る。
func NewService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	fanout Fanouter,
	mailer mail.Sender,
	logger *slog.Logger,
	mc metrics.MetricsCollector,
	opts ...Option,
) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	s := &Service{
		notifications: notifications,
		users:         users,
		fanout:        fanout,
		mailer:        mailer,
		sanitizer:     security.NewTextSanitizer(),
		emailKinds: map[Kind]bool{
			KindReminder:   true,
			KindMotivation: true,
		},
		logger:  logger,
		metrics: mc,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver は通知を1件作成し、ユーザーの接続へライブ配信したうえでメールを送る。
//
// 永続化に失敗した場合はmodel.ErrDeliveryPersistenceをラップしたエラーを返し、
// ライブ配信もメール送信も行わない。
// ライブ配信とメール送信の失敗はログに記録するのみで、戻り値には影響しない。
func (s *Service) Deliver(ctx context.Context, kind Kind, userID, message string) (*model.Notification, error) {
	text := s.sanitizer.Sanitize(message)
	if text == "" {
		s.metrics.RecordDelivery(string(kind), metrics.ResultFailed)
		return nil, ErrEmptyMessage
	}

	n := &model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   text,
		Read:      false,
		CreatedAt: s.now(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.metrics.RecordDelivery(string(kind), metrics.ResultFailed)
		return nil, fmt.Errorf("%w: %v", model.ErrDeliveryPersistence, err)
	}
	s.metrics.RecordDelivery(string(kind), metrics.ResultOK)

	if s.fanout != nil {
		s.fanout.Fanout(userID, realtime.EventNotificationNew, toPayload(n))
	}

	if s.mailer != nil && s.emailKinds[kind] {
		if err := s.sendEmail(ctx, kind, userID, text); err != nil {
			s.metrics.RecordEmailFailure(string(kind))
			s.logger.Warn("通知メールの送信に失敗しました",
				slog.String("kind", string(kind)),
				slog.String("user_id", userID),
				slog.String("notification_id", n.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return n, nil
}

func (s *Service) sendEmail(ctx context.Context, kind Kind, userID, text string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.Email == "" {
		return fmt.Errorf("%w: no address for user %s", model.ErrTransport, userID)
	}

	var email mail.Email
	switch kind {
	case KindReminder:
		email = mail.ReminderEmail(user.Name, text)
	default:
		email = mail.MotivationEmail(user.Name, text)
	}
	return s.mailer.Send(ctx, user.Email, email.Subject, email.Body)
}

// List はユーザーの通知を新しい順に返す。
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error) {
	list, err := s.notifications.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

// MarkRead はユーザー所有の通知を既読にする。
// 該当する通知が無い場合はNOTIFICATION_NOT_FOUNDを返す。
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	ok, err := s.notifications.MarkRead(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return model.NewNotificationNotFoundError(id)
	}
	return nil
}

// MarkAllRead はユーザーの未読通知を全て既読にし、更新件数を返す。
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return n, nil
}

// Delete はユーザー所有の通知を削除する。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	ok, err := s.notifications.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if !ok {
		return model.NewNotificationNotFoundError(id)
	}
	return nil
}

func toPayload(n *model.Notification) realtime.NotificationPayload {
	return realtime.NotificationPayload{
		ID:        n.ID,
		UserID:    n.UserID,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// compile-time check
var _ realtime.ReadMarker = (*Service)(nil)

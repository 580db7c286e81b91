// Package mail はメール送信を提供する。
package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"
	"golang.org/x/time/rate"

	"github.com/hitoshi/moodmate/internal/model"
)

// Sender はメール送信のインターフェース。
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPConfig はSMTP接続設定。
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	RatePerSec float64
}

// SMTPSender はgo-mailを使用したSMTP送信の実装。
// 送信レートはトークンバケットで制限する。
type SMTPSender struct {
	client  *gomail.Client
	from    string
	limiter *rate.Limiter
}

// NewSMTPSender はSMTPSenderを生成する。接続は送信時に確立する。
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	ratePerSec := cfg.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 1
	}

	return &SMTPSender{
		client:  client,
		from:    cfg.From,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}, nil
}

// Send はメールを1通送信する。失敗時はmodel.ErrTransportをラップして返す。
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", model.ErrTransport, err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("%w: invalid from address: %v", model.ErrTransport, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: invalid recipient: %v", model.ErrTransport, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", model.ErrTransport, err)
	}
	return nil
}

// LogSender はSMTP未設定時に使う送信実装。送信内容をログに記録するだけで常に成功する。
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender はLogSenderを生成する。
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send は送信せずにログへ記録する。
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Debug("SMTP未設定のためメール送信をスキップ",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}

// compile-time interface check
var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*LogSender)(nil)
)

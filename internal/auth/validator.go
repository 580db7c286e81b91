package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/repository"
)

// TokenParser はトークンの署名と有効期限を検証する。
type TokenParser interface {
	Parse(token string) (*Claims, error)
}

// Validator はトークンを検証し、対応するユーザーを解決する。
// REST APIとWebSocketハンドシェイクの両方で使う。
type Validator struct {
	tokens   TokenParser
	sessions repository.SessionRepository
	users    repository.UserRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewValidator はValidatorを生成する。
func NewValidator(
	tokens TokenParser,
	sessions repository.SessionRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *Validator {
	return &Validator{
		tokens:   tokens,
		sessions: sessions,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidateToken はトークンに対応するユーザーを返す。
//
// 署名と有効期限の検証に失敗した場合はmodel.ErrInvalidToken、
// セッションが存在しない場合はmodel.ErrSessionNotFoundを返す。
// セッションの有効期限が切れていた場合はそのセッションを削除したうえで
// model.ErrSessionExpiredを返すため、同じトークンの再検証はErrSessionNotFoundになる。
// いずれもmodel.ErrUnauthenticatedをラップしている。
// DB障害はそれ以外のエラーとして返す。
func (v *Validator) ValidateToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.ErrInvalidToken
	}

	if _, err := v.tokens.Parse(token); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}

	session, err := v.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.ErrSessionNotFound
	}

	if session.IsExpired(v.now()) {
		if err := v.sessions.DeleteByID(ctx, session.ID); err != nil {
			v.logger.Error("期限切れセッションの削除に失敗",
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, model.ErrSessionExpired
	}

	user, err := v.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.ErrSessionNotFound
	}

	return user, nil
}

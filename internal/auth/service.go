// Package auth はトークン発行・検証とセッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/moodmate/internal/mail"
	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/repository"
)

const (
	minNameLength      = 2
	minPasswordLength  = 6
	welcomeMailTimeout = 30 * time.Second
)

// TokenSource はトークンを発行する。
type TokenSource interface {
	Issue(userID, email string) (string, time.Time, error)
}

// Result はログイン・登録の結果。
type Result struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	tokens   TokenSource
	users    repository.UserRepository
	sessions repository.SessionRepository
	mailer   mail.Sender
	logger   *slog.Logger
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	tokens TokenSource,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	mailer mail.Sender,
	logger *slog.Logger,
) *Service {
	return &Service{
		tokens:   tokens,
		users:    users,
		sessions: sessions,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

// Register はユーザーを作成し、トークンとセッションを発行する。
// ウェルカムメールは登録処理とは独立して送信し、失敗してもエラーにしない。
func (s *Service) Register(ctx context.Context, name, email, password string) (*Result, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if utf8.RuneCountInString(name) < minNameLength {
		return nil, model.NewValidationError("名前は2文字以上で入力してください")
	}
	if _, err := netmail.ParseAddress(email); err != nil {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if len(password) < minPasswordLength {
		return nil, model.NewValidationError("パスワードは6文字以上で入力してください")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, model.NewUserExistsError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Theme:        "light",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewUserExistsError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ユーザー登録完了", slog.String("user_id", user.ID))
	go s.sendWelcome(user)

	return result, nil
}

// Login はメールアドレスとパスワードを検証し、新しいトークンとセッションを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, model.NewValidationError("メールアドレスとパスワードを入力してください")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, model.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ログイン", slog.String("user_id", user.ID))
	return result, nil
}

// Logout はトークンに対応するセッションを破棄する。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CurrentUser は指定IDのユーザーを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// issueSession はトークンを発行し、同じトークンのセッションを1件作成する。
func (s *Service) issueSession(ctx context.Context, user *model.User) (*Result, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return &Result{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) sendWelcome(user *model.User) {
	ctx, cancel := context.WithTimeout(context.Background(), welcomeMailTimeout)
	defer cancel()

	email := mail.WelcomeEmail(user.Name)
	if err := s.mailer.Send(ctx, user.Email, email.Subject, email.Body); err != nil {
		s.logger.Warn("ウェルカムメールの送信に失敗",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

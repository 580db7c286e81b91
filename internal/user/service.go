// Package user はユーザープロフィールと退会のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/repository"
)

// ConnectionCloser はユーザーのリアルタイム接続を閉じる。
type ConnectionCloser interface {
	CloseUser(userID string)
}

// ProfileUpdate はプロフィール更新の入力。nilのフィールドは変更しない。
type ProfileUpdate struct {
	Name   *string
	Avatar *string
	Theme  *string
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	conns       ConnectionCloser
	logger      *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。connsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	conns ConnectionCloser,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		conns:       conns,
		logger:      logger,
	}
}

// Profile はユーザーのプロフィールを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は名前、アバター、テーマを更新する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*model.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if utf8.RuneCountInString(name) < 2 {
			return nil, model.NewValidationError("名前は2文字以上で入力してください")
		}
		user.Name = name
	}
	if in.Avatar != nil {
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}
	if in.Theme != nil {
		switch *in.Theme {
		case "light", "dark":
			user.Theme = *in.Theme
		default:
			return nil, model.NewValidationError("theme は light または dark を指定してください")
		}
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → user（+ CASCADE: mood_entries, reminders, notifications）
// 最後に接続中のWebSocketを閉じる。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	if _, err := s.Profile(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("退会処理を開始します", slog.String("user_id", userID))

	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	if s.conns != nil {
		s.conns.CloseUser(userID)
	}

	s.logger.Info("退会処理が完了しました", slog.String("user_id", userID))
	return nil
}

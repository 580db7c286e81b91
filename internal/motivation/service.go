// Package motivation は気分に応じた励ましメッセージのカタログを提供する。
package motivation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/repository"
	"github.com/hitoshi/moodmate/internal/security"
)

// Service は励ましメッセージの取得・登録・シードを行う。
type Service struct {
	repo      repository.MotivationRepository
	picker    *Picker
	sanitizer *security.TextSanitizer
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(repo repository.MotivationRepository, picker *Picker, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		picker:    picker,
		sanitizer: security.NewTextSanitizer(),
		logger:    logger,
	}
}

// ForMood は気分またはカテゴリ名に対応するメッセージを1件ランダムに返す。
func (s *Service) ForMood(ctx context.Context, mood string) (*model.MotivationalMessage, error) {
	moodType, ok := model.ParseMoodType(mood)
	if !ok {
		if !model.IsValidMood(mood) {
			return nil, model.NewInvalidMoodError(mood)
		}
		moodType = model.MoodTypeOf(mood)
	}

	msg, err := s.picker.Pick(ctx, moodType)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, model.NewMotivationNotFoundError(moodType)
	}
	return msg, nil
}

// List は全メッセージを新しい順に返す。
func (s *Service) List(ctx context.Context) ([]*model.MotivationalMessage, error) {
	msgs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list motivational messages: %w", err)
	}
	return msgs, nil
}

// Create はメッセージを登録する。
func (s *Service) Create(ctx context.Context, moodType, content string) (*model.MotivationalMessage, error) {
	mt, ok := model.ParseMoodType(moodType)
	if !ok {
		return nil, model.NewValidationError("moodType は positive, neutral, negative のいずれかを指定してください")
	}
	text := s.sanitizer.Sanitize(content)
	if text == "" {
		return nil, model.NewValidationError("content を入力してください")
	}

	msg := &model.MotivationalMessage{
		ID:        uuid.NewString(),
		MoodType:  mt,
		Content:   text,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create motivational message: %w", err)
	}
	return msg, nil
}

// Seed はメッセージが1件も無い場合に初期メッセージを登録し、登録件数を返す。
func (s *Service) Seed(ctx context.Context) (int, error) {
	now := time.Now()
	msgs := make([]*model.MotivationalMessage, len(defaultMessages))
	for i, d := range defaultMessages {
		msgs[i] = &model.MotivationalMessage{
			ID:        uuid.NewString(),
			MoodType:  d.moodType,
			Content:   d.content,
			CreatedAt: now,
		}
	}

	n, err := s.repo.SeedIfEmpty(ctx, msgs)
	if err != nil {
		return 0, fmt.Errorf("failed to seed motivational messages: %w", err)
	}
	s.logger.Info("励ましメッセージのシードが完了しました", slog.Int("inserted", n))
	return n, nil
}

// Package mood は気分記録の登録と参照を提供する。
package mood

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/repository"
	"github.com/hitoshi/moodmate/internal/security"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service は気分記録のサービス層。
type Service struct {
	repo      repository.MoodRepository
	sanitizer *security.TextSanitizer
}

// NewService はServiceを生成する。
func NewService(repo repository.MoodRepository) *Service {
	return &Service{repo: repo, sanitizer: security.NewTextSanitizer()}
}

// Record は気分を記録する。
func (s *Service) Record(ctx context.Context, userID, mood, note string) (*model.MoodEntry, error) {
	if !model.IsValidMood(mood) {
		return nil, model.NewInvalidMoodError(mood)
	}
	e := &model.MoodEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mood:      mood,
		Note:      s.sanitizer.Sanitize(note),
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to record mood: %w", err)
	}
	return e, nil
}

// List はユーザーの気分記録を新しい順に返す。limitが0以下なら50件。
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*model.MoodEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	list, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list moods: %w", err)
	}
	return list, nil
}

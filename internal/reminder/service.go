// Package reminder はユーザーによるリマインダーの管理を提供する。
// 発火処理は worker/reminder が担う。
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/repository"
	"github.com/hitoshi/moodmate/internal/security"
)

// Patch はリマインダー更新の入力。nilのフィールドは変更しない。
type Patch struct {
	Message *string
	Time    *time.Time
	Repeat  *string
	Active  *bool
}

// Service はリマインダーのCRUDを提供する。
type Service struct {
	repo      repository.ReminderRepository
	sanitizer *security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.ReminderRepository) *Service {
	return &Service{
		repo:      repo,
		sanitizer: security.NewTextSanitizer(),
		now:       time.Now,
	}
}

// Create はリマインダーを作成する。repeatが空の場合はnoneになる。
func (s *Service) Create(ctx context.Context, userID, message string, at time.Time, repeat string) (*model.Reminder, error) {
	text := s.sanitizer.Sanitize(message)
	if text == "" {
		return nil, model.NewValidationError("message を入力してください")
	}
	if at.IsZero() {
		return nil, model.NewValidationError("time を指定してください")
	}
	rep, err := model.ParseRepeat(repeat)
	if err != nil {
		return nil, model.NewValidationError("repeat は none, daily, weekly のいずれかを指定してください")
	}

	r := &model.Reminder{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   text,
		Time:      at.UTC(),
		Repeat:    rep,
		Active:    true,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return r, nil
}

// List はユーザーのリマインダーを予定時刻順に返す。
func (s *Service) List(ctx context.Context, userID string, activeOnly bool) ([]*model.Reminder, error) {
	list, err := s.repo.ListByUser(ctx, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return list, nil
}

// Update はユーザー所有のリマインダーを更新する。
func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (*model.Reminder, error) {
	r, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if p.Message != nil {
		text := s.sanitizer.Sanitize(*p.Message)
		if text == "" {
			return nil, model.NewValidationError("message を入力してください")
		}
		r.Message = text
	}
	if p.Time != nil {
		r.Time = p.Time.UTC()
	}
	if p.Repeat != nil {
		rep, err := model.ParseRepeat(*p.Repeat)
		if err != nil {
			return nil, model.NewValidationError("repeat は none, daily, weekly のいずれかを指定してください")
		}
		r.Repeat = rep
	}
	if p.Active != nil {
		r.Active = *p.Active
	}

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}
	return r, nil
}

// Delete はユーザー所有のリマインダーを削除する。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

// owned は他ユーザーのリマインダーを存在しないものとして扱う。
func (s *Service) owned(ctx context.Context, userID, id string) (*model.Reminder, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find reminder: %w", err)
	}
	if r == nil || r.UserID != userID {
		return nil, model.NewReminderNotFoundError(id)
	}
	return r, nil
}

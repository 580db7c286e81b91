package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/moodmate/internal/model"
)

type mockReminderRepo struct {
	stored  map[string]*model.Reminder
	updated *model.Reminder
	deleted string
}

func newMockRepo(rs ...*model.Reminder) *mockReminderRepo {
	m := &mockReminderRepo{stored: map[string]*model.Reminder{}}
	for _, r := range rs {
		m.stored[r.ID] = r
	}
	return m
}

func (m *mockReminderRepo) Create(_ context.Context, r *model.Reminder) error {
	m.stored[r.ID] = r
	return nil
}

func (m *mockReminderRepo) FindByID(_ context.Context, id string) (*model.Reminder, error) {
	return m.stored[id], nil
}

func (m *mockReminderRepo) ListByUser(_ context.Context, userID string, activeOnly bool) ([]*model.Reminder, error) {
	var out []*model.Reminder
	for _, r := range m.stored {
		if r.UserID == userID && (!activeOnly || r.Active) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReminderRepo) ListDue(context.Context, time.Time) ([]*model.Reminder, error) {
	return nil, nil
}

func (m *mockReminderRepo) Advance(context.Context, string, time.Time, time.Time, bool) (bool, error) {
	return false, nil
}

func (m *mockReminderRepo) Release(context.Context, string, time.Time, time.Time) error { return nil }

func (m *mockReminderRepo) Update(_ context.Context, r *model.Reminder) error {
	m.updated = r
	return nil
}

func (m *mockReminderRepo) Delete(_ context.Context, id string) error {
	m.deleted = id
	return nil
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != code {
		t.Errorf("err = %v, want %s", err, code)
	}
}

func TestCreate_DefaultsAndNormalization(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	jst := time.FixedZone("JST", 9*60*60)
	at := time.Date(2026, 3, 10, 18, 0, 0, 0, jst)

	r, err := svc.Create(context.Background(), "u-1", "  Evening walk ", at, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if r.Repeat != model.RepeatNone || !r.Active {
		t.Errorf("デフォルト値が不正: %+v", r)
	}
	if r.Message != "Evening walk" {
		t.Errorf("Message = %q", r.Message)
	}
	if !r.Time.Equal(at) || r.Time.Location() != time.UTC {
		t.Errorf("Time = %v, UTCで保存されるべき", r.Time)
	}
	if repo.stored[r.ID] == nil {
		t.Error("保存されていない")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	now := time.Now()

	_, err := svc.Create(context.Background(), "u-1", "", now, "daily")
	assertCode(t, err, model.ErrCodeValidation)

	_, err = svc.Create(context.Background(), "u-1", "x", now, "monthly")
	assertCode(t, err, model.ErrCodeValidation)

	_, err = svc.Create(context.Background(), "u-1", "x", time.Time{}, "daily")
	assertCode(t, err, model.ErrCodeValidation)
}

func TestUpdate_OtherUsersReminder_NotFound(t *testing.T) {
	repo := newMockRepo(&model.Reminder{ID: "r-1", UserID: "u-2"})
	svc := NewService(repo)

	msg := "hijack"
	_, err := svc.Update(context.Background(), "u-1", "r-1", Patch{Message: &msg})
	assertCode(t, err, model.ErrCodeReminderNotFound)
	if repo.updated != nil {
		t.Error("他ユーザーのリマインダーを更新してはならない")
	}
}

func TestUpdate_ReactivateWithNewTime(t *testing.T) {
	repo := newMockRepo(&model.Reminder{ID: "r-1", UserID: "u-1", Message: "m", Repeat: model.RepeatNone, Active: false})
	svc := NewService(repo)

	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	active, repeat := true, "weekly"
	r, err := svc.Update(context.Background(), "u-1", "r-1", Patch{Time: &at, Active: &active, Repeat: &repeat})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !r.Active || !r.Time.Equal(at) || r.Repeat != model.RepeatWeekly {
		t.Errorf("reminder = %+v", r)
	}
}

func TestDelete(t *testing.T) {
	repo := newMockRepo(&model.Reminder{ID: "r-1", UserID: "u-1"})
	svc := NewService(repo)

	assertCode(t, svc.Delete(context.Background(), "u-2", "r-1"), model.ErrCodeReminderNotFound)
	if err := svc.Delete(context.Background(), "u-1", "r-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if repo.deleted != "r-1" {
		t.Errorf("deleted = %q", repo.deleted)
	}
}

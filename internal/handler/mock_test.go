package handler

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/hitoshi/moodmate/internal/auth"
	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/reminder"
	"github.com/hitoshi/moodmate/internal/user"
)

// --- モック定義 ---

type mockValidator struct {
	users map[string]*model.User // token -> user
	err   error
}

func (m *mockValidator) ValidateToken(ctx context.Context, token string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[token]; ok {
		return u, nil
	}
	return nil, model.ErrSessionNotFound
}

type mockAuthService struct {
	registerFn    func(ctx context.Context, name, email, password string) (*auth.Result, error)
	loginFn       func(ctx context.Context, email, password string) (*auth.Result, error)
	logoutFn      func(ctx context.Context, token string) error
	currentUserFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, name, email, password string) (*auth.Result, error) {
	return m.registerFn(ctx, name, email, password)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	return m.currentUserFn(ctx, userID)
}

type mockNotificationService struct {
	listFn        func(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error)
	markReadFn    func(ctx context.Context, userID, id string) error
	markAllReadFn func(ctx context.Context, userID string) (int64, error)
	deleteFn      func(ctx context.Context, userID, id string) error
}

func (m *mockNotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error) {
	return m.listFn(ctx, userID, unreadOnly)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return m.markReadFn(ctx, userID, id)
}

func (m *mockNotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return m.markAllReadFn(ctx, userID)
}

func (m *mockNotificationService) Delete(ctx context.Context, userID, id string) error {
	return m.deleteFn(ctx, userID, id)
}

type mockReminderService struct {
	createFn func(ctx context.Context, userID, message string, at time.Time, repeat string) (*model.Reminder, error)
	listFn   func(ctx context.Context, userID string, activeOnly bool) ([]*model.Reminder, error)
	updateFn func(ctx context.Context, userID, id string, p reminder.Patch) (*model.Reminder, error)
	deleteFn func(ctx context.Context, userID, id string) error
}

func (m *mockReminderService) Create(ctx context.Context, userID, message string, at time.Time, repeat string) (*model.Reminder, error) {
	return m.createFn(ctx, userID, message, at, repeat)
}

func (m *mockReminderService) List(ctx context.Context, userID string, activeOnly bool) ([]*model.Reminder, error) {
	return m.listFn(ctx, userID, activeOnly)
}

func (m *mockReminderService) Update(ctx context.Context, userID, id string, p reminder.Patch) (*model.Reminder, error) {
	return m.updateFn(ctx, userID, id, p)
}

func (m *mockReminderService) Delete(ctx context.Context, userID, id string) error {
	return m.deleteFn(ctx, userID, id)
}

type mockMotivationService struct {
	forMoodFn func(ctx context.Context, mood string) (*model.MotivationalMessage, error)
	listFn    func(ctx context.Context) ([]*model.MotivationalMessage, error)
	createFn  func(ctx context.Context, moodType, content string) (*model.MotivationalMessage, error)
	seedFn    func(ctx context.Context) (int, error)
}

func (m *mockMotivationService) ForMood(ctx context.Context, mood string) (*model.MotivationalMessage, error) {
	return m.forMoodFn(ctx, mood)
}

func (m *mockMotivationService) List(ctx context.Context) ([]*model.MotivationalMessage, error) {
	return m.listFn(ctx)
}

func (m *mockMotivationService) Create(ctx context.Context, moodType, content string) (*model.MotivationalMessage, error) {
	return m.createFn(ctx, moodType, content)
}

func (m *mockMotivationService) Seed(ctx context.Context) (int, error) {
	return m.seedFn(ctx)
}

type mockMoodService struct {
	recordFn func(ctx context.Context, userID, mood, note string) (*model.MoodEntry, error)
	listFn   func(ctx context.Context, userID string, limit int) ([]*model.MoodEntry, error)
}

func (m *mockMoodService) Record(ctx context.Context, userID, mood, note string) (*model.MoodEntry, error) {
	return m.recordFn(ctx, userID, mood, note)
}

func (m *mockMoodService) List(ctx context.Context, userID string, limit int) ([]*model.MoodEntry, error) {
	return m.listFn(ctx, userID, limit)
}

type mockUserService struct {
	profileFn  func(ctx context.Context, userID string) (*model.User, error)
	updateFn   func(ctx context.Context, userID string, in user.ProfileUpdate) (*model.User, error)
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return m.profileFn(ctx, userID)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, in user.ProfileUpdate) (*model.User, error) {
	return m.updateFn(ctx, userID, in)
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	return m.withdrawFn(ctx, userID)
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error { return m.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

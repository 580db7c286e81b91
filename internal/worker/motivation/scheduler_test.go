package motivation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/notification"
)

// --- モック定義 ---

type mockUserRepo struct {
	users   []*model.User
	listErr error
}

func (m *mockUserRepo) FindByID(context.Context, string) (*model.User, error) { return nil, nil }
func (m *mockUserRepo) FindByEmail(context.Context, string) (*model.User, error) { return nil, nil }
func (m *mockUserRepo) ListAll(context.Context) ([]*model.User, error) { return m.users, m.listErr }
func (m *mockUserRepo) Create(context.Context, *model.User) error { return nil }
func (m *mockUserRepo) UpdateProfile(context.Context, *model.User) error { return nil }
func (m *mockUserRepo) DeleteByID(context.Context, string) error { return nil }

type mockMoodRepo struct {
	latest map[string]string
	errFor map[string]error
}

func (m *mockMoodRepo) Create(context.Context, *model.MoodEntry) error { return nil }

func (m *mockMoodRepo) ListByUser(context.Context, string, int) ([]*model.MoodEntry, error) {
	return nil, nil
}

func (m *mockMoodRepo) LatestByUser(_ context.Context, userID string) (*model.MoodEntry, error) {
	if err := m.errFor[userID]; err != nil {
		return nil, err
	}
	mood, ok := m.latest[userID]
	if !ok {
		return nil, nil
	}
	return &model.MoodEntry{UserID: userID, Mood: mood}, nil
}

// mockPicker はカテゴリごとに固定のメッセージを返す。登録が無いカテゴリはnil。
type mockPicker struct {
	buckets map[model.MoodType]string
}

func (m *mockPicker) Pick(_ context.Context, mt model.MoodType) (*model.MotivationalMessage, error) {
	c, ok := m.buckets[mt]
	if !ok {
		return nil, nil
	}
	return &model.MotivationalMessage{MoodType: mt, Content: c}, nil
}

type delivery struct {
	Kind    notification.Kind
	UserID  string
	Message string
}

type mockDeliverer struct {
	mu        sync.Mutex
	delivered []delivery
	failFor   map[string]bool
}

func (m *mockDeliverer) Deliver(_ context.Context, kind notification.Kind, userID, message string) (*model.Notification, error) {
	if m.failFor[userID] {
		return nil, model.ErrDeliveryPersistence
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, delivery{kind, userID, message})
	return &model.Notification{UserID: userID, Message: message}, nil
}

func (m *mockDeliverer) snapshot() []delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]delivery(nil), m.delivered...)
}

func newTestScheduler(users *mockUserRepo, moods *mockMoodRepo, picker MessagePicker, d *mockDeliverer) (*Scheduler, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewScheduler(users, moods, picker, d, logger, nil, time.Hour), &buf
}

// --- テスト ---

func TestRunOnce_ThreeUserScenario(t *testing.T) {
	users := &mockUserRepo{users: []*model.User{{ID: "A"}, {ID: "B"}, {ID: "C"}}}
	moods := &mockMoodRepo{latest: map[string]string{"A": "happy", "C": "sad"}}
	picker := &mockPicker{buckets: map[model.MoodType]string{
		model.MoodTypePositive: "Keep shining!",
		model.MoodTypeNeutral:  "Stay steady.",
	}}
	d := &mockDeliverer{}
	s, logs := newTestScheduler(users, moods, picker, d)

	res, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("バッチは失敗してはならない: %v", err)
	}

	want := []delivery{{notification.KindMotivation, "A", "Keep shining!"}}
	if diff := cmp.Diff(want, d.snapshot()); diff != "" {
		t.Errorf("deliveries mismatch (-want +got):\n%s", diff)
	}
	wantRes := BatchResult{Users: 3, Eligible: 2, Sent: 1, EmptyBucket: 1}
	if diff := cmp.Diff(wantRes, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if !bytes.Contains(logs.Bytes(), []byte("該当カテゴリの励ましメッセージがありません")) {
		t.Error("空のカテゴリがログに記録されていない")
	}
}

func TestRunOnce_UnknownMoodUsesNeutral(t *testing.T) {
	users := &mockUserRepo{users: []*model.User{{ID: "A"}}}
	moods := &mockMoodRepo{latest: map[string]string{"A": "meh"}}
	picker := &mockPicker{buckets: map[model.MoodType]string{model.MoodTypeNeutral: "Be present."}}
	d := &mockDeliverer{}
	s, _ := newTestScheduler(users, moods, picker, d)

	s.RunOnce(context.Background())

	if got := d.snapshot(); len(got) != 1 || got[0].Message != "Be present." {
		t.Errorf("deliveries = %+v", got)
	}
}

func TestRunOnce_PerUserFailureIsolation(t *testing.T) {
	users := &mockUserRepo{users: []*model.User{{ID: "A"}, {ID: "B"}, {ID: "C"}, {ID: "D"}}}
	moods := &mockMoodRepo{
		latest: map[string]string{"A": "happy", "C": "angry", "D": "calm"},
		errFor: map[string]error{"B": errors.New("timeout")},
	}
	picker := &mockPicker{buckets: map[model.MoodType]string{
		model.MoodTypePositive: "p",
		model.MoodTypeNegative: "n",
		model.MoodTypeNeutral:  "z",
	}}
	d := &mockDeliverer{failFor: map[string]bool{"C": true}}
	s, _ := newTestScheduler(users, moods, picker, d)

	res, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if res.Sent != 2 || res.Failed != 2 {
		t.Errorf("result = %+v, want sent=2 failed=2", res)
	}
	got := d.snapshot()
	if len(got) != 2 || got[0].UserID != "A" || got[1].UserID != "D" {
		t.Errorf("deliveries = %+v", got)
	}
}

func TestRunOnce_UserListFailure_AbandonsBatch(t *testing.T) {
	users := &mockUserRepo{listErr: errors.New("db down")}
	d := &mockDeliverer{}
	s, _ := newTestScheduler(users, &mockMoodRepo{}, &mockPicker{}, d)

	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("ユーザー一覧の取得失敗はエラーを返すべき")
	}
	if len(d.snapshot()) != 0 {
		t.Error("配信されてはならない")
	}
}

func TestStart_RunsImmediately(t *testing.T) {
	users := &mockUserRepo{users: []*model.User{{ID: "A"}}}
	moods := &mockMoodRepo{latest: map[string]string{"A": "excited"}}
	picker := &mockPicker{buckets: map[model.MoodType]string{model.MoodTypePositive: "Yay"}}
	d := &mockDeliverer{}
	s, _ := newTestScheduler(users, moods, picker, d)

	s.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for len(d.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()

	if len(d.snapshot()) != 1 {
		t.Errorf("起動直後に1回実行されるべき: %d", len(d.snapshot()))
	}
}

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	mu      sync.Mutex
	users   map[string]*model.User
	findErr error
}

func newMockUserRepo(users ...*model.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.users[id], nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) ListAll(_ context.Context) ([]*model.User, error) { return nil, nil }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, _ *model.User) error { return nil }
func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error { return nil }

// mockSessionRepo はトークンをキーにしたインメモリのセッションストア。
type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	deleted  []string
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

func (m *mockSessionRepo) FindByToken(_ context.Context, token string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[token], nil
}

func (m *mockSessionRepo) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if s.ID == id {
			delete(m.sessions, token)
			m.deleted = append(m.deleted, id)
		}
	}
	return nil
}

func (m *mockSessionRepo) DeleteByToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(_ context.Context, _ string) error { return nil }

func (m *mockSessionRepo) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *mockSessionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type mockSender struct {
	sent chan [3]string
	err  error
}

func (m *mockSender) Send(_ context.Context, to, subject, body string) error {
	if m.sent != nil {
		m.sent <- [3]string{to, subject, body}
	}
	return m.err
}

// --- compile-time interface checks ---
var (
	_ repository.UserRepository    = (*mockUserRepo)(nil)
	_ repository.SessionRepository = (*mockSessionRepo)(nil)
)

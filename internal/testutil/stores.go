// stores.go
//
// Shared mock implementations of auth.IdentityStore and auth.SessionCache.
// Imported by test files across packages to avoid duplicate mock definitions.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MGallo-Code/jetpass/internal/store"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// MockStore implements auth.IdentityStore for tests.
// Always stateful: Users is a map, like a real store.
// Use *Err fields to inject errors for specific operations.
type MockStore struct {
	// Error injection; zero value means no error
	UpsertErr  error
	GetUserErr error
	HealthErr  error

	Users map[uuid.UUID]*store.User

	mu sync.Mutex
}

// NewMockStore returns an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{Users: make(map[uuid.UUID]*store.User)}
}

func (m *MockStore) UpsertIdentity(_ context.Context, provider, subject string, name *string, emails []string) (uuid.UUID, error) {
	if m.UpsertErr != nil {
		return uuid.Nil, m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Users == nil {
		m.Users = make(map[uuid.UUID]*store.User)
	}

	var email *string
	if len(emails) > 0 {
		email = &emails[0]
	}
	now := time.Now()
	for _, u := range m.Users {
		if u.Provider == provider && u.Subject == subject {
			u.Name, u.Email, u.Emails = name, email, emails
			u.UpdatedAt, u.LastLogin = now, now
			return u.ID, nil
		}
	}
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}
	m.Users[id] = &store.User{
		ID: id, Provider: provider, Subject: subject,
		Name: name, Email: email, Emails: emails,
		CreatedAt: now, UpdatedAt: now, LastLogin: now,
	}
	return id, nil
}

func (m *MockStore) GetUserByID(_ context.Context, id uuid.UUID) (*store.User, error) {
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, fmt.Errorf("fetching user: %w", pgx.ErrNoRows)
	}
	return u, nil
}

func (m *MockStore) CheckHealth(context.Context) error { return m.HealthErr }

// MockCache implements auth.SessionCache for tests.
// Always stateful: Sessions is a map, like a real cache. TTLs are recorded, not enforced.
type MockCache struct {
	// Error injection; zero value means no error
	SetSessionErr    error
	GetSessionErr    error
	DeleteSessionErr error
	HealthErr        error

	Sessions map[string]*store.Session // keyed by base64 token hash
	TTLs     map[string]time.Duration

	mu sync.Mutex
}

// NewMockCache returns an empty MockCache ready for use.
func NewMockCache() *MockCache {
	return &MockCache{
		Sessions: make(map[string]*store.Session),
		TTLs:     make(map[string]time.Duration),
	}
}

func (m *MockCache) SetSession(_ context.Context, tokenHash string, sess store.Session, ttl time.Duration) error {
	if m.SetSessionErr != nil {
		return m.SetSessionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sessions == nil {
		m.Sessions = make(map[string]*store.Session)
		m.TTLs = make(map[string]time.Duration)
	}
	m.Sessions[tokenHash] = &sess
	m.TTLs[tokenHash] = ttl
	return nil
}

func (m *MockCache) GetSession(_ context.Context, tokenHash string) (*store.Session, error) {
	if m.GetSessionErr != nil {
		return nil, m.GetSessionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[tokenHash]
	if !ok {
		return nil, store.ErrCacheMiss
	}
	return s, nil
}

func (m *MockCache) DeleteSession(_ context.Context, tokenHash string) error {
	if m.DeleteSessionErr != nil {
		return m.DeleteSessionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Sessions, tokenHash)
	delete(m.TTLs, tokenHash)
	return nil
}

func (m *MockCache) CheckHealth(context.Context) error { return m.HealthErr }

// Len returns the number of cached sessions.
func (m *MockCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sessions)
}

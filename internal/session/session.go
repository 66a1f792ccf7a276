// Package session holds the authenticated user's bearer credential and
// profile. A Session is created once per process and handed to the transport;
// it replaces ambient storage access with explicit Establish and Invalidate
// operations and notifies observers when the credential is destroyed.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"evsched/internal/domain"
)

// Durable storage keys.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Store is durable key/value storage for the credential.
type Store interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error
}

type Session struct {
	store  Store
	Logger *log.Logger
	Now    func() time.Time

	mu        sync.Mutex
	token     string
	profile   domain.Profile
	observers []func()
}

func New(store Store) *Session {
	return &Session{store: store, Now: time.Now}
}

func (s *Session) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// Load restores the credential from the store. A missing token is not an
// error.
func (s *Session) Load(ctx context.Context) error {
	token, ok, err := s.store.GetValue(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("load session token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}
	var p domain.Profile
	if raw, ok, err := s.store.GetValue(ctx, KeyUser); err != nil {
		return fmt.Errorf("load session user: %w", err)
	} else if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return fmt.Errorf("decode session user: %w", err)
		}
	}
	s.mu.Lock()
	s.token = token
	s.profile = p
	s.mu.Unlock()
	return nil
}

// Establish stores a fresh credential after login or registration.
func (s *Session) Establish(ctx context.Context, token string, p domain.Profile) error {
	if token == "" {
		return fmt.Errorf("empty session token")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.store.SetValue(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	if err := s.store.SetValue(ctx, KeyUser, string(raw)); err != nil {
		return fmt.Errorf("store session user: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.profile = p
	s.mu.Unlock()
	return nil
}

// Token returns the bearer token, or "" when there is no session.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) Profile() (domain.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile, s.token != ""
}

func (s *Session) Active() bool {
	return s.Token() != ""
}

// Expiry reads the exp claim of the token without verifying the signature;
// the server remains the authority. ok is false for opaque tokens.
func (s *Session) Expiry() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the token carries an exp claim in the past.
func (s *Session) Expired() bool {
	exp, ok := s.Expiry()
	if !ok {
		return false
	}
	return !s.Now().Before(exp)
}

// OnInvalidate registers fn to run after the credential is destroyed.
func (s *Session) OnInvalidate(fn func()) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Invalidate clears the credential from memory and storage and notifies the
// observers. It returns false when there was nothing to clear, so concurrent
// 401s clear the session exactly once.
func (s *Session) Invalidate(ctx context.Context) bool {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return false
	}
	s.token = ""
	s.profile = domain.Profile{}
	observers := append([]func(){}, s.observers...)
	s.mu.Unlock()

	if err := s.store.DeleteValue(ctx, KeyToken); err != nil {
		s.logger().Printf("session: clear token: %v", err)
	}
	if err := s.store.DeleteValue(ctx, KeyUser); err != nil {
		s.logger().Printf("session: clear user: %v", err)
	}
	for _, fn := range observers {
		fn()
	}
	return true
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string]string
	Deletes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) GetValue(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) SetValue(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) DeleteValue(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	m.Deletes++
	return nil
}

package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Session holds the bearer token shared by every API call of one client.
// It is passed explicitly to the components that need it.
type Session struct {
	mu        sync.RWMutex
	token     string
	listeners []func()
}

// New creates a session seeded with token (which may be empty)
func New(token string) *Session {
	return &Session{token: token}
}

// Token returns the current bearer token, or "" when signed out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the bearer token
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Authenticated reports whether a token is held
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// OnInvalidate registers fn to run whenever the session is invalidated
func (s *Session) OnInvalidate(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Invalidate drops the token and notifies listeners. Listeners run
// outside the lock and only when a token was actually held.
func (s *Session) Invalidate() {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	if !had {
		return
	}

	log.Warn().Str("component", "session").Msg("session invalidated")
	for _, fn := range listeners {
		fn()
	}
}

// FileStore persists a token on disk between CLI invocations
type FileStore struct {
	Path string
}

// DefaultTokenPath returns ~/.studio-payroll/token
func DefaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".studio-payroll", "token")
	}
	return filepath.Join(home, ".studio-payroll", "token")
}

// Load returns the stored token, or "" when nothing is stored
func (f FileStore) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token with owner-only permissions
func (f FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Clear removes the stored token; a missing file is not an error
func (f FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// Attach loads the stored token into a new session and keeps the file in
// sync: invalidating the session removes the file.
func (f FileStore) Attach() (*Session, error) {
	token, err := f.Load()
	if err != nil {
		return nil, err
	}
	s := New(token)
	s.OnInvalidate(func() {
		if err := f.Clear(); err != nil {
			log.Error().Err(err).Str("component", "session").Msg("failed to clear stored token")
		}
	})
	return s, nil
}

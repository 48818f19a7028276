// Package appstate keeps the client's persisted settings: the access token,
// the derived admin flag and the UI theme.
package appstate

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultToken is used when nothing has been stored.
const DefaultToken = "vibe-dev-token"

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

var ErrInvalidTheme = errors.New("theme must be light, dark or system")

func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// State is the structured application state.
type State struct {
	Token   string
	IsAdmin bool
	Theme   Theme
}

// Snapshot is what a Persister reads and writes. LegacyToken mirrors the
// flat ACCESS_TOKEN key kept for older readers.
type Snapshot struct {
	State       State
	LegacyToken string
}

// Persister loads and saves snapshots.
type Persister interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// Store is the in-memory application state backed by a Persister. Every
// change is saved before the setter returns.
type Store struct {
	mu      sync.RWMutex
	snap    Snapshot
	persist Persister
}

// Open loads the persisted state.
func Open(p Persister) (*Store, error) {
	snap, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("load app state: %w", err)
	}
	if !snap.State.Theme.Valid() {
		snap.State.Theme = ThemeSystem
	}
	return &Store{snap: snap, persist: p}, nil
}

// Token returns the structured token, falling back to the legacy key and
// then to DefaultToken.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.State.Token != "" {
		return s.snap.State.Token
	}
	if s.snap.LegacyToken != "" {
		return s.snap.LegacyToken
	}
	return DefaultToken
}

// SetToken stores tok, or clears the stored token when tok is empty.
func (s *Store) SetToken(tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snap
	next.State.Token = tok
	next.State.IsAdmin = tok != ""
	next.LegacyToken = tok
	return s.save(next)
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.State.IsAdmin
}

func (s *Store) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.State.Theme
}

func (s *Store) SetTheme(t Theme) error {
	if !t.Valid() {
		return ErrInvalidTheme
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snap
	next.State.Theme = t
	return s.save(next)
}

// State returns a copy of the structured state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.State
}

func (s *Store) save(next Snapshot) error {
	if err := s.persist.Save(next); err != nil {
		return fmt.Errorf("save app state: %w", err)
	}
	s.snap = next
	return nil
}

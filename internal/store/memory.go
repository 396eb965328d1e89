package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hanq-games/baduk-server/internal/domain"
	"github.com/hanq-games/baduk-server/internal/game"
)

// Memory is a map-backed SessionStore and UserStore. Sessions round-trip
// through JSON so callers get the same copy semantics as Redis.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	active   map[string]bool
	byUser   map[string]map[string]bool
	users    map[string]domain.User
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string][]byte),
		active:   make(map[string]bool),
		byUser:   make(map[string]map[string]bool),
		users:    make(map[string]domain.User),
	}
}

func (s *Memory) GetSession(ctx context.Context, id string) (*game.Session, error) {
	s.mu.RLock()
	raw, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var sess game.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Memory) SaveSession(ctx context.Context, sess *game.Session) error {
	sess.UpdatedAt = time.Now()
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = raw
	if sess.Ended() {
		delete(s.active, sess.ID)
		for _, set := range s.byUser {
			delete(set, sess.ID)
		}
		return nil
	}
	s.active[sess.ID] = true
	for _, pl := range []*game.Player{sess.P1, sess.P2} {
		if pl == nil || pl.IsAI {
			continue
		}
		if s.byUser[pl.ID] == nil {
			s.byUser[pl.ID] = make(map[string]bool)
		}
		s.byUser[pl.ID][sess.ID] = true
	}
	return nil
}

func (s *Memory) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.active, id)
	for _, set := range s.byUser {
		delete(set, id)
	}
	return nil
}

func (s *Memory) ActiveIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.active))
	for id := range s.active {
		out = append(out, id)
	}
	return out, nil
}

func (s *Memory) SessionsByUser(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for id := range s.byUser[userID] {
		out = append(out, id)
	}
	return out, nil
}

func (s *Memory) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *Memory) UpdateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.UpdatedAt = time.Now()
	s.users[u.ID] = *u
	return nil
}

// Package store persists live sessions and player profiles. Redis backs
// production; the in-memory store backs tests and single-node dev runs.
package store

import (
	"context"
	"errors"

	"github.com/hanq-games/baduk-server/internal/domain"
	"github.com/hanq-games/baduk-server/internal/game"
)

var ErrNotFound = errors.New("store: not found")

// SessionStore holds live game sessions and the active index.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*game.Session, error)
	SaveSession(ctx context.Context, sess *game.Session) error
	DeleteSession(ctx context.Context, id string) error
	// ActiveIDs lists every session the tick loop must drive.
	ActiveIDs(ctx context.Context) ([]string, error)
	// SessionsByUser lists the ids a player is seated in.
	SessionsByUser(ctx context.Context, userID string) ([]string, error)
}

// UserStore holds player profiles.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
}

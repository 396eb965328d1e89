package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/hanq-games/baduk-server/internal/board"
	"github.com/hanq-games/baduk-server/internal/domain"
	"github.com/hanq-games/baduk-server/internal/game"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb)
}

func sampleSession(id string) *game.Session {
	sess := &game.Session{
		ID:     id,
		Mode:   game.ModeMissile,
		P1:     &game.Player{ID: "u1", Name: "one"},
		P2:     &game.Player{ID: "u2", Name: "two"},
		Board:  board.MustNew(9),
		Status: game.StatusPlaying,
		State:  &game.MissileState{MissilesBlack: 2, MissilesWhite: 1},
	}
	sess.Black, sess.White = sess.P1, sess.P2
	sess.Current = board.Black
	return sess
}

func TestRedisSessionRoundTrip(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, sampleSession("g1")))

	got, err := s.GetSession(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, game.ModeMissile, got.Mode)
	st, ok := got.State.(*game.MissileState)
	require.True(t, ok, "mode state survives the round trip")
	require.Equal(t, 2, st.MissilesBlack)

	active, err := s.ActiveIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"g1"}, active)

	ids, err := s.SessionsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"g1"}, ids)
}

func TestRedisRetiresEndedSessions(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	sess := sampleSession("g2")
	require.NoError(t, s.SaveSession(ctx, sess))

	sess.Status = game.StatusEnded
	require.NoError(t, s.SaveSession(ctx, sess))

	active, err := s.ActiveIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, active)

	ids, err := s.SessionsByUser(ctx, "u2")
	require.NoError(t, err)
	require.Empty(t, ids)

	// The payload stays readable for the post-game screen.
	got, err := s.GetSession(ctx, "g2")
	require.NoError(t, err)
	require.Equal(t, game.StatusEnded, got.Status)
}

func TestRedisMissingSession(t *testing.T) {
	s := newTestRedis(t)
	_, err := s.GetSession(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisUserRoundTrip(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	_, err := s.GetUser(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpdateUser(ctx, &domain.User{ID: "u1", Name: "one", Rating: 1500}))
	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1500, u.Rating)
	require.False(t, u.UpdatedAt.IsZero())
}

func TestMemoryMatchesRedisSemantics(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	sess := sampleSession("g3")
	require.NoError(t, m.SaveSession(ctx, sess))

	got, err := m.GetSession(ctx, "g3")
	require.NoError(t, err)
	require.IsType(t, &game.MissileState{}, got.State)

	// Mutating the returned copy must not leak into the store.
	got.Status = game.StatusEnded
	again, err := m.GetSession(ctx, "g3")
	require.NoError(t, err)
	require.Equal(t, game.StatusPlaying, again.Status)

	sess.Status = game.StatusEnded
	require.NoError(t, m.SaveSession(ctx, sess))
	active, err := m.ActiveIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, active)
}

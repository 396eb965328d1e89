package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hanq-games/baduk-server/internal/domain"
	"github.com/hanq-games/baduk-server/internal/game"
)

const (
	ttlSession = 24 * time.Hour
	ttlUser    = 0 // profiles do not expire
)

// Redis implements SessionStore and UserStore on go-redis.
type Redis struct{ rdb *redis.Client }

func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

// NewRedisFromURL dials from a redis:// URL.
func NewRedisFromURL(ctx context.Context, url string) (*Redis, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return NewRedis(rdb), nil
}

func (s *Redis) Close() error { return s.rdb.Close() }

func (s *Redis) keyGame(id string) string    { return "game:" + strings.TrimSpace(id) }
func (s *Redis) keyActive() string           { return "games:active" }
func (s *Redis) keyUserIdx(id string) string { return "user:" + strings.TrimSpace(id) + ":games" }
func (s *Redis) keyUser(id string) string    { return "user:" + strings.TrimSpace(id) }

func (s *Redis) GetSession(ctx context.Context, id string) (*game.Session, error) {
	raw, err := s.rdb.Get(ctx, s.keyGame(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess game.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Redis) SaveSession(ctx context.Context, sess *game.Session) error {
	sess.UpdatedAt = time.Now()
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.keyGame(sess.ID), raw, ttlSession).Err(); err != nil {
		return err
	}
	if sess.Ended() {
		return s.retire(ctx, sess)
	}
	if err := s.rdb.SAdd(ctx, s.keyActive(), sess.ID).Err(); err != nil {
		return err
	}
	for _, pl := range []*game.Player{sess.P1, sess.P2} {
		if pl == nil || pl.IsAI {
			continue
		}
		if err := s.rdb.SAdd(ctx, s.keyUserIdx(pl.ID), sess.ID).Err(); err != nil {
			return err
		}
		_ = s.rdb.Expire(ctx, s.keyUserIdx(pl.ID), ttlSession).Err()
	}
	return nil
}

// retire removes a finished session from the indexes; the payload stays
// until its TTL for post-game screens.
func (s *Redis) retire(ctx context.Context, sess *game.Session) error {
	if err := s.rdb.SRem(ctx, s.keyActive(), sess.ID).Err(); err != nil {
		return err
	}
	for _, pl := range []*game.Player{sess.P1, sess.P2} {
		if pl == nil || pl.IsAI {
			continue
		}
		if err := s.rdb.SRem(ctx, s.keyUserIdx(pl.ID), sess.ID).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Redis) DeleteSession(ctx context.Context, id string) error {
	sess, err := s.GetSession(ctx, id)
	if err == nil {
		_ = s.retire(ctx, sess)
	}
	return s.rdb.Del(ctx, s.keyGame(id)).Err()
}

func (s *Redis) ActiveIDs(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, s.keyActive()).Result()
}

func (s *Redis) SessionsByUser(ctx context.Context, userID string) ([]string, error) {
	return s.rdb.SMembers(ctx, s.keyUserIdx(userID)).Result()
}

func (s *Redis) GetUser(ctx context.Context, id string) (*domain.User, error) {
	raw, err := s.rdb.Get(ctx, s.keyUser(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Redis) UpdateUser(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now()
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.keyUser(u.ID), raw, ttlUser).Err()
}

package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/nebula-cloud/nebula/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.b().Set().Key(key).Value(string(value)).Ex(ttl).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// IncrExpire increments a counter and arms its expiry in one pipelined
// round trip. EXPIRE NX only sets the TTL when the key has none, so the
// window starts at the first increment and stays fixed for later ones.
// Returns the post-increment count.
func (s *Store) IncrExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	cmds := make(rueidis.Commands, 0, 2)
	cmds = append(cmds, s.b().Incr().Key(key).Build())
	cmds = append(cmds, s.b().Expire().Key(key).Seconds(int64(ttl.Seconds())).Nx().Build())

	results := s.client.DoMulti(ctx, cmds...)

	count, err := results[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncr, Err: err}
	}
	if err := results[1].Error(); err != nil {
		return 0, &db.Error{Op: db.OpExpire, Err: err}
	}
	return count, nil
}

// Del removes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	cmd := s.b().Del().Key(key).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

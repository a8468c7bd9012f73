package snapshotstore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "chatbox:snapshot:"

// RedisStore keeps every snapshot in a hash and orders sessions with a sorted
// set scored by update time.
type RedisStore struct {
	client *redis.Client
	prefix string
	owned  bool
}

var _ Store = &RedisStore{}

// NewRedisStore connects to addr. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis snapshot store: empty addr")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis snapshot store: ping %s", addr)
	}
	s := NewRedisStoreFromClient(client, prefix)
	s.owned = true
	return s, nil
}

// NewRedisStoreFromClient uses an existing client, which Close leaves open.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil || !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) key(sessionID string) string { return s.prefix + sessionID }
func (s *RedisStore) indexKey() string            { return s.prefix + "_index" }

func (s *RedisStore) Save(ctx context.Context, sessionID string, snapshot []byte) (uint64, error) {
	if s == nil || s.client == nil {
		return 0, errors.New("redis snapshot store: client is nil")
	}
	sessionID, err := validate(sessionID, snapshot)
	if err != nil {
		return 0, errors.Wrap(err, "redis snapshot store")
	}
	e := describe(Entry{SessionID: sessionID}, snapshot)

	// strictly increasing so List order follows Save order
	now := time.Now().UnixMilli()
	last, err := s.client.ZRevRangeWithScores(ctx, s.indexKey(), 0, 0).Result()
	if err != nil {
		return 0, errors.Wrap(err, "redis snapshot store: read clock")
	}
	if len(last) > 0 && now <= int64(last[0].Score) {
		now = int64(last[0].Score) + 1
	}

	var version *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		version = pipe.HIncrBy(ctx, s.key(sessionID), "version", 1)
		pipe.HSet(ctx, s.key(sessionID),
			"snapshot", string(snapshot),
			"updated_at_ms", now,
			"current_conversation", e.CurrentConversation,
			"conversations", e.Conversations,
		)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(now), Member: sessionID})
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "redis snapshot store: save")
	}
	return int64ToUint64(version.Val())
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]byte, uint64, error) {
	if s == nil || s.client == nil {
		return nil, 0, errors.New("redis snapshot store: client is nil")
	}
	sessionID = strings.TrimSpace(sessionID)
	vals, err := s.client.HMGet(ctx, s.key(sessionID), "snapshot", "version").Result()
	if err != nil {
		return nil, 0, errors.Wrap(err, "redis snapshot store: load")
	}
	data, ok := vals[0].(string)
	if !ok {
		return nil, 0, errors.Wrapf(ErrNotFound, "session %q", sessionID)
	}
	version, err := parseUint(vals[1])
	if err != nil {
		return nil, 0, errors.Wrap(err, "redis snapshot store: version")
	}
	return []byte(data), version, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if s == nil || s.client == nil {
		return errors.New("redis snapshot store: client is nil")
	}
	sessionID = strings.TrimSpace(sessionID)
	var deleted *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, s.key(sessionID))
		pipe.ZRem(ctx, s.indexKey(), sessionID)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "redis snapshot store: delete")
	}
	if deleted.Val() == 0 {
		return errors.Wrapf(ErrNotFound, "session %q", sessionID)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("redis snapshot store: client is nil")
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis snapshot store: list")
	}
	ret := make([]Entry, 0, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "redis snapshot store: read %q", id)
		}
		if len(fields) == 0 {
			continue
		}
		e := Entry{SessionID: id, Bytes: len(fields["snapshot"]), CurrentConversation: fields["current_conversation"]}
		if e.Version, err = parseUint(fields["version"]); err != nil {
			return nil, err
		}
		if e.UpdatedAtMs, err = strconv.ParseInt(fields["updated_at_ms"], 10, 64); err != nil {
			return nil, errors.Wrap(err, "redis snapshot store: updated_at_ms")
		}
		if e.Conversations, err = strconv.Atoi(fields["conversations"]); err != nil {
			return nil, errors.Wrap(err, "redis snapshot store: conversations")
		}
		ret = append(ret, e)
	}
	return ret, nil
}

func parseUint(v any) (uint64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, errors.Errorf("unexpected value %v", v)
	}
	return strconv.ParseUint(s, 10, 64)
}

package explored

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IshaanNene/deskrank/internal/types"
)

// RedisStore keeps one Redis set per source, so adding URLs does not rewrite
// the whole record.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, prefix string, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &types.StorageError{Backend: "redis", Err: fmt.Errorf("ping %s: %w", addr, err)}
	}
	return NewRedisStoreWithClient(client, prefix, logger), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisStore {
	if prefix == "" {
		prefix = "deskrank:explored"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "explored_redis"),
	}
}

func (s *RedisStore) key(source types.SourceType) string {
	return s.prefix + ":" + string(source)
}

func (s *RedisStore) updatedKey() string {
	return s.prefix + ":lastUpdated"
}

func checkSource(source types.SourceType) error {
	for _, src := range Sources {
		if src == source {
			return nil
		}
	}
	return fmt.Errorf("%w: %q has no explored set", types.ErrUnknownSource, source)
}

func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	rec := NewRecord()
	for _, src := range Sources {
		members, err := s.client.SMembers(ctx, s.key(src)).Result()
		if err != nil {
			s.logger.Warn("explored set unreadable, starting empty", "source", src, "error", err)
			return NewRecord(), nil
		}
		sort.Strings(members)
		list, _ := rec.urls(src)
		*list = append(*list, members...)
	}

	ts, err := s.client.Get(ctx, s.updatedKey()).Result()
	if err == nil {
		if t, perr := time.Parse(time.RFC3339, ts); perr == nil {
			rec.LastUpdated = t
		}
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("lastUpdated unreadable", "error", err)
	}
	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	rec.normalize()
	rec.LastUpdated = time.Now().UTC()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, src := range Sources {
			list, _ := rec.urls(src)
			pipe.Del(ctx, s.key(src))
			if len(*list) > 0 {
				pipe.SAdd(ctx, s.key(src), members(*list)...)
			}
		}
		pipe.Set(ctx, s.updatedKey(), rec.LastUpdated.Format(time.RFC3339), 0)
		return nil
	})
	if err != nil {
		return &types.StorageError{Backend: "redis", Err: err}
	}
	return nil
}

func (s *RedisStore) ExploredSet(ctx context.Context, source types.SourceType) (map[string]struct{}, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}
	list, err := s.client.SMembers(ctx, s.key(source)).Result()
	if err != nil {
		return nil, &types.StorageError{Backend: "redis", Err: err}
	}
	set := make(map[string]struct{}, len(list))
	for _, u := range list {
		set[u] = struct{}{}
	}
	return set, nil
}

func (s *RedisStore) AddExploredURLs(ctx context.Context, source types.SourceType, urls []string) error {
	if err := checkSource(source); err != nil {
		return err
	}
	var nonEmpty []string
	for _, u := range urls {
		if u != "" {
			nonEmpty = append(nonEmpty, u)
		}
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(nonEmpty) > 0 {
			pipe.SAdd(ctx, s.key(source), members(nonEmpty)...)
		}
		pipe.Set(ctx, s.updatedKey(), time.Now().UTC().Format(time.RFC3339), 0)
		return nil
	})
	if err != nil {
		return &types.StorageError{Backend: "redis", Err: err}
	}
	return nil
}

func (s *RedisStore) Summary(ctx context.Context) (map[types.SourceType]int, error) {
	out := make(map[types.SourceType]int, len(Sources))
	for _, src := range Sources {
		n, err := s.client.SCard(ctx, s.key(src)).Result()
		if err != nil {
			return nil, &types.StorageError{Backend: "redis", Err: err}
		}
		out[src] = int(n)
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context, sources ...types.SourceType) error {
	if len(sources) == 0 {
		sources = Sources
	}
	keys := make([]string, 0, len(sources))
	for _, src := range sources {
		if err := checkSource(src); err != nil {
			return err
		}
		keys = append(keys, s.key(src))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return &types.StorageError{Backend: "redis", Err: err}
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func members(urls []string) []any {
	out := make([]any, len(urls))
	for i, u := range urls {
		out[i] = u
	}
	return out
}

package questions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultCacheTTL    = 6 * time.Hour
	DefaultCachePrefix = "prepwise:questions:"
)

// Cache stores serialized question sets. Get returns ErrCacheMiss when the
// key is absent or expired.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by Redis string keys with expiry
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps an existing client
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// CacheMode selects when the cache is consulted
type CacheMode int

const (
	// StaleOnError asks the next provider first and serves the cached set
	// only when it fails.
	StaleOnError CacheMode = iota
	// CacheFirst serves a cached set whenever one exists.
	CacheFirst
)

// CachedProvider remembers successful question sets per request so that a
// retry after a transient model failure can reuse an earlier set.
type CachedProvider struct {
	next   exam.QuestionProvider
	cache  Cache
	ttl    time.Duration
	prefix string
	mode   CacheMode
	logger *slog.Logger
}

// CacheOption configures a CachedProvider
type CacheOption func(*CachedProvider)

// WithTTL sets how long cached sets live
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedProvider) { c.ttl = ttl }
}

// WithMode sets the cache mode
func WithMode(m CacheMode) CacheOption {
	return func(c *CachedProvider) { c.mode = m }
}

// WithPrefix sets the key prefix
func WithPrefix(prefix string) CacheOption {
	return func(c *CachedProvider) { c.prefix = prefix }
}

// WithCacheLogger sets the logger
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *CachedProvider) { c.logger = l }
}

// NewCachedProvider wraps next with cache
func NewCachedProvider(next exam.QuestionProvider, cache Cache, opts ...CacheOption) *CachedProvider {
	c := &CachedProvider{
		next:   next,
		cache:  cache,
		ttl:    DefaultCacheTTL,
		prefix: DefaultCachePrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchQuestions serves req from next or from the cache depending on mode.
// Cache failures are logged and never fail the call on their own.
func (c *CachedProvider) FetchQuestions(ctx context.Context, req exam.Request) ([]domain.Question, error) {
	key := c.Key(req)

	if c.mode == CacheFirst {
		if qs, ok := c.lookup(ctx, key); ok {
			return qs, nil
		}
	}

	qs, err := c.next.FetchQuestions(ctx, req)
	if err == nil {
		c.store(ctx, key, qs)
		return qs, nil
	}

	if c.mode == StaleOnError {
		if cached, ok := c.lookup(ctx, key); ok {
			c.logger.Info("serving cached question set", "key", key, "error", err)
			return cached, nil
		}
	}
	return nil, err
}

// Key derives the cache key of req. Topic order and case do not matter.
func (c *CachedProvider) Key(req exam.Request) string {
	topics := make([]string, len(req.Topics))
	for i, t := range req.Topics {
		topics[i] = strings.ToLower(strings.TrimSpace(t))
	}
	sort.Strings(topics)

	canonical := fmt.Sprintf("%s|%s|%d|%s", req.ExamMode, req.Difficulty, req.Count, strings.Join(topics, "\x1f"))
	sum := sha256.Sum256([]byte(canonical))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *CachedProvider) lookup(ctx context.Context, key string) ([]domain.Question, bool) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("question cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(data, &qs); err != nil || len(qs) == 0 {
		c.logger.Warn("discarding unreadable cached question set", "key", key, "error", err)
		return nil, false
	}
	return qs, true
}

func (c *CachedProvider) store(ctx context.Context, key string, qs []domain.Question) {
	data, err := json.Marshal(qs)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("question cache write failed", "key", key, "error", err)
	}
}

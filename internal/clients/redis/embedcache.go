package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/docquery/docquery-backend/internal/logger"
)

// EmbedCache caches query embeddings so repeated questions skip the
// embedding round trip. Misses are cheap; the cache never gates
// correctness.
type EmbedCache interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Set(ctx context.Context, text string, vector []float32)
	Close() error
}

type embedCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewEmbedCache connects to REDIS_ADDR. Callers treat a nil cache as
// disabled, so init failure is surfaced rather than papered over.
func NewEmbedCache(log *logger.Logger) (EmbedCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := 24 * time.Hour
	if v := strings.TrimSpace(os.Getenv("REDIS_EMBED_TTL")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	return &embedCache{
		log: log.With("service", "RedisEmbedCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embed:" + hex.EncodeToString(sum[:])
}

func (c *embedCache) Get(ctx context.Context, text string) ([]float32, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(text)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("embed cache read failed", "error", err)
		}
		return nil, false
	}
	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		c.log.Warn("embed cache entry corrupt, dropping", "error", err)
		_ = c.rdb.Del(ctx, cacheKey(text)).Err()
		return nil, false
	}
	return vector, true
}

func (c *embedCache) Set(ctx context.Context, text string, vector []float32) {
	raw, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(text), raw, c.ttl).Err(); err != nil {
		c.log.Warn("embed cache write failed", "error", err)
	}
}

func (c *embedCache) Close() error {
	return c.rdb.Close()
}

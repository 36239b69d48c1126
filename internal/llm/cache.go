package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long identical prompts reuse a prior answer.
const DefaultCacheTTL = time.Hour

// cachingClient serves exact-match repeats from redis instead of paying
// the provider again. Re-running an experiment with an unchanged question
// set is the common case this exists for.
type cachingClient struct {
	base Client
	cfg  Config
	rdb  *redis.Client
	ttl  time.Duration
}

// WithCache wraps base with an exact-match redis response cache.
func WithCache(base Client, cfg Config, rdb *redis.Client, ttl time.Duration) Client {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &cachingClient{base: base, cfg: cfg, rdb: rdb, ttl: ttl}
}

func (c *cachingClient) Complete(ctx context.Context, prompt, system string) (*Response, error) {
	key := cacheKey(c.cfg, prompt, system)

	if val, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var cached Response
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			cached.Cached = true
			return &cached, nil
		}
		log.Printf("[LLM] Dropping undecodable cache entry %s", key)
	}

	resp, err := c.base.Complete(ctx, prompt, system)
	if err != nil {
		return nil, err
	}

	stored := *resp
	stored.Cached = false
	if data, err := json.Marshal(stored); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.Printf("[LLM] Failed to cache response: %v", err)
		}
	}
	return resp, nil
}

// cacheKey is deterministic over everything that changes a completion.
func cacheKey(cfg Config, prompt, system string) string {
	keyData := fmt.Sprintf("%s|%s|%v|%d|%s|%s",
		cfg.Provider, cfg.Model, cfg.Temperature, cfg.MaxTokens, system, prompt)
	hash := sha256.Sum256([]byte(keyData))
	return "dealsignal:llm:" + hex.EncodeToString(hash[:])
}

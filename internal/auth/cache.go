package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CredentialCache keeps api_key lookups out of the hot path by caching the
// resolved user identity in Redis.
type CredentialCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCredentialCache constructs the cache.
func NewCredentialCache(client *redis.Client, ttl time.Duration) *CredentialCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CredentialCache{client: client, ttl: ttl}
}

type cachedIdentity struct {
	Email     string `json:"email"`
	APISecret string `json:"api_secret"`
}

func cacheKey(apiKey string) string {
	return "auth:apikey:" + apiKey
}

// Get returns the cached identity for an api key, or false on miss.
func (c *CredentialCache) Get(ctx context.Context, apiKey string) (email, secret string, ok bool) {
	if c == nil || c.client == nil {
		return "", "", false
	}
	raw, err := c.client.Get(ctx, cacheKey(apiKey)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return "", "", false
		}
		return "", "", false
	}
	var identity cachedIdentity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return "", "", false
	}
	return identity.Email, identity.APISecret, true
}

// Set stores the identity for an api key.
func (c *CredentialCache) Set(ctx context.Context, apiKey, email, secret string) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(cachedIdentity{Email: email, APISecret: secret})
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(apiKey), raw, c.ttl).Err()
}

// Invalidate drops a cached api key, e.g. after credential rotation.
func (c *CredentialCache) Invalidate(ctx context.Context, apiKey string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, cacheKey(apiKey)).Err()
}

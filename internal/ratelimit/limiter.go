// Package ratelimit provides atomic fixed-window rate limiting using Redis
// Lua scripts. The check and increment happen in one script call, avoiding
// the race a GET → check → INCR sequence would have.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit defines a fixed-window limit: at most Max actions per Window.
type Limit struct {
	Max    int
	Window time.Duration
}

// DefaultLimits are the per-actor action limits. Creation is throttled hard
// because the default access level for creating a newsletter is low;
// announcements get a little more headroom.
var DefaultLimits = map[string]Limit{
	"newsletter":          {Max: 3, Window: time.Hour},
	"newsletter-announce": {Max: 10, Window: time.Hour},
}

// Lua script for atomic fixed-window check-and-increment. Denies without
// incrementing when the window is already full.
const windowLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current + 1 > limit then
    return {0, current}
end

local newVal = redis.call("INCR", key)
if newVal == 1 then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}
`

// Limiter applies per-actor fixed-window limits. Safe for concurrent use.
type Limiter struct {
	redis  *redis.Client
	script *redis.Script
	limits map[string]Limit
}

// NewLimiter creates a limiter with pre-compiled Lua script. limits maps
// action keys to their windows; actions without a limit are always allowed.
func NewLimiter(client *redis.Client, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = DefaultLimits
	}
	return &Limiter{
		redis:  client,
		script: redis.NewScript(windowLuaScript),
		limits: limits,
	}
}

// NewLimiterFromURL creates a limiter by connecting to Redis.
func NewLimiterFromURL(redisURL string, limits map[string]Limit) (*Limiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewLimiter(redis.NewClient(opts), limits), nil
}

// Ping counts one action for the actor under the given key and reports true
// if the actor is now over the limit.
func (l *Limiter) Ping(ctx context.Context, key, actorID string) (bool, error) {
	limit, ok := l.limits[key]
	if !ok || limit.Max <= 0 {
		return false, nil
	}

	redisKey := fmt.Sprintf("nl:ratelimit:%s:%s", key, actorID)
	ttl := int(limit.Window / time.Second)
	if ttl < 1 {
		ttl = 1
	}

	res, err := l.script.Run(ctx, l.redis, []string{redisKey}, limit.Max, ttl).Slice()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) < 1 {
		return false, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	allowed, _ := res[0].(int64)
	return allowed == 0, nil
}

// Close releases the underlying Redis connection.
func (l *Limiter) Close() error {
	return l.redis.Close()
}

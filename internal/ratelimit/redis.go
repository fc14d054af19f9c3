package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// checkScript mirrors Apply. Times are unix milliseconds; blocked_until = 0 means not blocked.
var checkScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local max = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local cooldown = tonumber(ARGV[4])
local ttl = window + cooldown

local s = redis.call('HMGET', KEYS[1], 'count', 'start', 'blocked_until')
local count = s[1] and tonumber(s[1]) or nil
local start = s[2] and tonumber(s[2]) or 0
local blockedUntil = s[3] and tonumber(s[3]) or 0

local function reset()
  redis.call('HSET', KEYS[1], 'count', 1, 'start', ARGV[1], 'blocked_until', 0)
  redis.call('PEXPIRE', KEYS[1], ttl)
  return 0
end

if count == nil then
  return reset()
end
if blockedUntil > 0 then
  if now < blockedUntil then
    return 1
  end
  return reset()
end
if now - start > window then
  return reset()
end

count = count + 1
if count > max then
  redis.call('HSET', KEYS[1], 'count', count, 'blocked_until', now + cooldown)
  redis.call('PEXPIRE', KEYS[1], ttl)
  return 1
end
redis.call('HSET', KEYS[1], 'count', count)
redis.call('PEXPIRE', KEYS[1], ttl)
return 0
`)

// RedisStore shares limiter states between processes. The transition runs as one
// Lua script so concurrent requests for the same id have a single winner.
type RedisStore struct {
	rdb redis.Scripter
}

func NewRedisStore(rdb redis.Scripter) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Check(ctx context.Context, id string, now time.Time, p Policy) (bool, error) {
	res, err := checkScript.Run(ctx, s.rdb, []string{keyPrefix + id},
		now.UnixMilli(),
		p.MaxRequests,
		p.Window.Milliseconds(),
		p.Cooldown.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	return res == 1, nil
}

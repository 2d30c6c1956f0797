package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// bucket names one family of token buckets in Redis.
type bucket struct {
	prefix string
	ttl    time.Duration // Idle buckets expire after this long
}

var (
	punchBucket = bucket{prefix: "ratelimit:punch:", ttl: 2 * time.Minute}
	loginBucket = bucket{prefix: "ratelimit:login:", ttl: time.Minute}
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// refillScript updates a token bucket stored as a hash {tokens, at_ms}.
// ARGV: tokens per millisecond, capacity, now in ms, ttl in ms.
// Returns {allowed, retry_after_ms, remaining_tokens}.
var refillScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'at_ms')
local tokens = tonumber(state[1]) or capacity
local at = tonumber(state[2]) or now
if now > at then
	tokens = math.min(capacity, tokens + (now - at) * rate)
end

local allowed, wait = 0, 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'at_ms', now)
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return {allowed, wait, math.floor(tokens)}
`)

// CheckPunchRateLimit spends one punch token of a vendor.
// A non-positive rate disables the limit.
func (c *Cache) CheckPunchRateLimit(ctx context.Context, vendorID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute <= 0 {
		return allowAll(burst), nil
	}
	return c.take(ctx, punchBucket, vendorID, float64(ratePerMinute)/float64(time.Minute/time.Millisecond), burst)
}

// CheckLoginRateLimit spends one login token of a client IP.
// Buckets are keyed by a hash of the IP, never the raw address.
func (c *Cache) CheckLoginRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 {
		return allowAll(burst), nil
	}
	return c.take(ctx, loginBucket, hashIP(ip), float64(ratePerSecond)/float64(time.Second/time.Millisecond), burst)
}

// take fails open: on Redis errors the request is allowed and the error
// returned for logging.
func (c *Cache) take(ctx context.Context, b bucket, id string, perMilli float64, burst int) (*RateLimitResult, error) {
	now := time.Now()
	res, err := refillScript.Run(ctx, c.client, []string{b.prefix + id},
		perMilli, burst, now.UnixMilli(), b.ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return allowAll(burst), err
	}

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		Remaining:  res[2],
		ResetAt:    now.Add(time.Duration(math.Ceil(1/perMilli)) * time.Millisecond),
		RetryAfter: retryAfter(res[1]),
	}, nil
}

// retryAfter rounds a wait in milliseconds up to whole seconds,
// the granularity of the Retry-After header.
func retryAfter(waitMs int64) time.Duration {
	if waitMs <= 0 {
		return 0
	}
	return time.Duration((waitMs+999)/1000) * time.Second
}

func allowAll(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   time.Now().Add(time.Minute),
	}
}

// hashIP returns the first 8 bytes of the SHA-256 of ip, hex encoded.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}

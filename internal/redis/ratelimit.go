package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key patterns:
// - ratelimit:{user_id}:sessions - 60s TTL, per-minute session creations
// - ratelimit:{user_id}:uploads - 60s TTL, per-minute document batches
// - ratelimit:{user_id}:transcriptions - 60s TTL, per-minute transcription requests

// RateLimitConfig contains configuration for rate limiting
type RateLimitConfig struct {
	SessionLimit        int           // Max new intake sessions per window
	SessionWindow       time.Duration // Session rate limit window
	UploadLimit         int           // Max document batches per window
	UploadWindow        time.Duration // Upload rate limit window
	TranscriptionLimit  int           // Max transcription requests per window
	TranscriptionWindow time.Duration // Transcription rate limit window
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		SessionLimit:        10, // 10 new sessions per minute
		SessionWindow:       60 * time.Second,
		UploadLimit:         30, // 30 document batches per minute
		UploadWindow:        60 * time.Second,
		TranscriptionLimit:  6, // 6 transcription requests per minute
		TranscriptionWindow: 60 * time.Second,
	}
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed   bool          // Whether the action is allowed
	Remaining int           // Remaining actions in the window
	ResetIn   time.Duration // Time until the window resets
	Limit     int           // The limit for this action
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
	}
}

// AllowSession checks if a user can open a new intake session
func (r *RateLimiter) AllowSession(ctx context.Context, userID string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:sessions", userID)
	return r.checkLimit(ctx, key, r.config.SessionLimit, r.config.SessionWindow)
}

// AllowUpload checks if a user can add another document batch
func (r *RateLimiter) AllowUpload(ctx context.Context, userID string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:uploads", userID)
	return r.checkLimit(ctx, key, r.config.UploadLimit, r.config.UploadWindow)
}

// AllowTranscription checks if a user can request another transcription
func (r *RateLimiter) AllowTranscription(ctx context.Context, userID string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:transcriptions", userID)
	return r.checkLimit(ctx, key, r.config.TranscriptionLimit, r.config.TranscriptionWindow)
}

// checkLimit performs the actual rate limit check using a sliding window counter
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	// Use Lua script for atomic increment and check
	script := goredis.NewScript(`
		local key = KEYS[1]
		local limit = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])

		local current = redis.call('GET', key)
		if current == false then
			current = 0
		else
			current = tonumber(current)
		end

		local ttl = redis.call('TTL', key)
		if ttl < 0 then
			ttl = window
		end

		if current < limit then
			redis.call('INCR', key)
			if ttl == window then
				redis.call('EXPIRE', key, window)
			end
			return {1, limit - current - 1, ttl}
		else
			return {0, 0, ttl}
		end
	`)

	result, err := script.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	// Parse the result
	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}

	allowed := resultSlice[0].(int64) == 1
	remaining := int(resultSlice[1].(int64))
	resetIn := time.Duration(resultSlice[2].(int64)) * time.Second

	return &RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetIn:   resetIn,
		Limit:     limit,
	}, nil
}

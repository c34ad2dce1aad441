package middleware

import (
	"net/http"
	"strconv"

	"lex-intake/internal/auth"
	"lex-intake/internal/redis"
	"lex-intake/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// SessionRateLimitMiddleware limits how often a user can open new intake
// sessions. Applied to the session-creation endpoint after auth middleware.
func SessionRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return limitBy(limiter, func(limiter *redis.RateLimiter, c *gin.Context, subject string) (*redis.RateLimitResult, error) {
		return limiter.AllowSession(c.Request.Context(), subject)
	})
}

// UploadRateLimitMiddleware limits document and capture uploads per user.
func UploadRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return limitBy(limiter, func(limiter *redis.RateLimiter, c *gin.Context, subject string) (*redis.RateLimitResult, error) {
		return limiter.AllowUpload(c.Request.Context(), subject)
	})
}

// TranscriptionRateLimitMiddleware limits transcription requests per user.
func TranscriptionRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return limitBy(limiter, func(limiter *redis.RateLimiter, c *gin.Context, subject string) (*redis.RateLimitResult, error) {
		return limiter.AllowTranscription(c.Request.Context(), subject)
	})
}

type allowFunc func(*redis.RateLimiter, *gin.Context, string) (*redis.RateLimitResult, error)

func limitBy(limiter *redis.RateLimiter, allow allowFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		subject, ok := auth.SubjectFromContext(c.Request.Context())
		if !ok {
			// No user context, skip rate limiting (auth middleware will handle)
			c.Next()
			return
		}

		result, err := allow(limiter, c, subject)
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", "INTERNAL_ERROR"))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}

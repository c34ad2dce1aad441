package redis

import (
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

var (
	client     *redis.Client
	clientOnce sync.Once
)

// Initialize connects the process-wide client backing the limits cache, the
// rate limiter, and the session event broker. Safe to call more than once;
// only the first call connects.
func Initialize(cfg Config) {
	clientOnce.Do(func() {
		client = NewClient(cfg)
	})
}

// GetClient returns the shared client. Initialize must have run.
func GetClient() *redis.Client {
	if client == nil {
		panic("redis client not initialized. Call Initialize() first")
	}
	return client
}

// IsInitialized reports whether Redis was configured for this process. The
// health endpoint exposes it so operators can see whether caching and rate
// limiting are active.
func IsInitialized() bool {
	return client != nil
}

// NewClient builds a standalone client. Tests and secondary connections use
// this directly; application code goes through Initialize and GetClient.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

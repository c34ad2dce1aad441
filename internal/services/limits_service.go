package services

import (
	"context"

	"lex-intake/internal/domain/intake"
	"lex-intake/pkg/logger"
)

// LimitsService resolves the upload limits for new intake sessions.
// Backend-supplied limits are authoritative whenever they can be retrieved;
// the hard-coded defaults are a development-time fallback only.
type LimitsService struct {
	fetcher  LimitsFetcher
	cache    LimitsStore
	defaults intake.UploadLimits
	logger   *logger.Logger
}

func NewLimitsService(fetcher LimitsFetcher, cache LimitsStore, defaults intake.UploadLimits, l *logger.Logger) *LimitsService {
	if !defaults.Valid() {
		defaults = intake.DefaultLimits()
	}
	return &LimitsService{
		fetcher:  fetcher,
		cache:    cache,
		defaults: defaults.Normalize(),
		logger:   l,
	}
}

// Effective returns the limits to enforce right now. Cache and fetch
// failures degrade to the defaults; they never block intake.
func (s *LimitsService) Effective(ctx context.Context) intake.UploadLimits {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx); err == nil && cached != nil && cached.Valid() {
			return *cached
		}
	}

	if s.fetcher != nil {
		limits, err := s.fetcher.FetchLimits(ctx)
		if err == nil && limits.Valid() {
			if s.cache != nil {
				if cacheErr := s.cache.Set(ctx, limits); cacheErr != nil && s.logger != nil {
					s.logger.Warnf("caching upload limits failed: %s", cacheErr)
				}
			}
			return limits
		}
		if err != nil && s.logger != nil {
			s.logger.Warnf("fetching upload limits failed, using defaults: %s", err)
		}
	}

	return s.defaults
}

// Defaults exposes the fallback limits.
func (s *LimitsService) Defaults() intake.UploadLimits {
	return s.defaults
}

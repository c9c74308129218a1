package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/authenticity-service/internal/domain"
	"github.com/spec-kit/authenticity-service/internal/persistence"
	"github.com/spec-kit/authenticity-service/internal/repository"
)

const statsCacheKey = "stats:overview"

// StatsOverview aggregates read-side reporting numbers. Everything here is
// computed from the token and scan stores; the core keeps no counters of its
// own.
type StatsOverview struct {
	TotalTokens         int64                    `json:"total_tokens"`
	ConsumedTokens      int64                    `json:"consumed_tokens"`
	UnconsumedTokens    int64                    `json:"unconsumed_tokens"`
	UsagePercentage     float64                  `json:"usage_percentage"`
	TotalScans          int64                    `json:"total_scans"`
	AuthenticScans      int64                    `json:"authentic_scans"`
	CounterfeitAttempts int64                    `json:"counterfeit_attempts"`
	RegionalData        []repository.RegionCount `json:"regional_data"`
}

// StatsService serves reporting aggregates with a short-lived Redis cache in
// front of the store.
type StatsService struct {
	tokens   repository.TokenRepository
	attempts repository.ScanAttemptRepository
	cache    *persistence.Redis
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewStatsService constructs the service. cache may be nil, in which case
// every call hits the store.
func NewStatsService(tokens repository.TokenRepository, attempts repository.ScanAttemptRepository, cache *persistence.Redis, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	return &StatsService{
		tokens:   tokens,
		attempts: attempts,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Overview returns the aggregate picture, serving from cache when fresh.
// Cache failures fall through to the store.
func (s *StatsService) Overview(ctx context.Context) (*StatsOverview, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	total, err := s.tokens.CountTotal(ctx)
	if err != nil {
		return nil, err
	}
	consumed, err := s.tokens.CountConsumed(ctx)
	if err != nil {
		return nil, err
	}
	totalScans, err := s.attempts.CountTotal(ctx)
	if err != nil {
		return nil, err
	}
	authenticScans, err := s.attempts.CountAuthentic(ctx)
	if err != nil {
		return nil, err
	}
	regional, err := s.tokens.RegionCounts(ctx)
	if err != nil {
		return nil, err
	}

	overview := &StatsOverview{
		TotalTokens:         total,
		ConsumedTokens:      consumed,
		UnconsumedTokens:    total - consumed,
		TotalScans:          totalScans,
		AuthenticScans:      authenticScans,
		CounterfeitAttempts: totalScans - authenticScans,
		RegionalData:        regional,
	}
	if total > 0 {
		overview.UsagePercentage = float64(consumed) / float64(total) * 100
	}

	s.toCache(ctx, overview)
	return overview, nil
}

// ListTokens returns tokens for admin review, newest first. Listing is a
// pure read and bypasses the cache.
func (s *StatsService) ListTokens(ctx context.Context, filter repository.TokenFilter) ([]domain.Token, error) {
	return s.tokens.List(ctx, filter)
}

// RecentAttempts returns the latest scan attempts for audit review.
func (s *StatsService) RecentAttempts(ctx context.Context, limit int) ([]domain.ScanAttempt, error) {
	return s.attempts.ListRecent(ctx, limit)
}

func (s *StatsService) fromCache(ctx context.Context) *StatsOverview {
	if s.cache == nil || s.cache.Client == nil || s.cacheTTL <= 0 {
		return nil
	}
	raw, err := s.cache.Client.Get(ctx, statsCacheKey).Result()
	if err != nil {
		return nil
	}
	var overview StatsOverview
	if err := json.Unmarshal([]byte(raw), &overview); err != nil {
		return nil
	}
	return &overview
}

func (s *StatsService) toCache(ctx context.Context, overview *StatsOverview) {
	if s.cache == nil || s.cache.Client == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(overview)
	if err != nil {
		return
	}
	if err := s.cache.Client.Set(ctx, statsCacheKey, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("failed to cache stats overview", zap.Error(err))
	}
}

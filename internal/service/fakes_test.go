package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/authenticity-service/internal/domain"
	"github.com/spec-kit/authenticity-service/internal/repository"
)

// fakeTokenRepo is an in-memory TokenRepository whose Consume performs a
// mutex-guarded compare-and-set, mirroring the conditional update the real
// store executes.
type fakeTokenRepo struct {
	mu         sync.Mutex
	tokens     map[string]*domain.Token
	getErr     error
	consumeErr error
	createFunc func(token *domain.Token) error
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]*domain.Token{}}
}

func (f *fakeTokenRepo) Create(ctx context.Context, token *domain.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFunc != nil {
		if err := f.createFunc(token); err != nil {
			return err
		}
	}
	token.CreatedAt = time.Now()
	copied := *token
	f.tokens[token.ID] = &copied
	return nil
}

func (f *fakeTokenRepo) GetByID(ctx context.Context, id string) (*domain.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	token, ok := f.tokens[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (f *fakeTokenRepo) Consume(ctx context.Context, id, region string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return false, f.consumeErr
	}
	token, ok := f.tokens[id]
	if !ok || token.Consumed {
		return false, nil
	}
	token.Consumed = true
	token.ConsumedAt = &at
	token.Region = region
	return true, nil
}

func (f *fakeTokenRepo) List(ctx context.Context, filter repository.TokenFilter) ([]domain.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Token
	for _, token := range f.tokens {
		if filter.Consumed != nil && token.Consumed != *filter.Consumed {
			continue
		}
		result = append(result, *token)
	}
	return result, nil
}

func (f *fakeTokenRepo) CountTotal(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.tokens)), nil
}

func (f *fakeTokenRepo) CountConsumed(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, token := range f.tokens {
		if token.Consumed {
			count++
		}
	}
	return count, nil
}

func (f *fakeTokenRepo) RegionCounts(ctx context.Context) ([]repository.RegionCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byRegion := map[string]int64{}
	for _, token := range f.tokens {
		if token.Consumed {
			byRegion[token.Region]++
		}
	}
	var result []repository.RegionCount
	for region, count := range byRegion {
		result = append(result, repository.RegionCount{Region: region, Count: count})
	}
	return result, nil
}

// fakeAttemptRepo collects appended attempts.
type fakeAttemptRepo struct {
	mu        sync.Mutex
	attempts  []domain.ScanAttempt
	createErr error
}

func (f *fakeAttemptRepo) Create(ctx context.Context, attempt *domain.ScanAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.attempts = append(f.attempts, *attempt)
	return nil
}

func (f *fakeAttemptRepo) CountTotal(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.attempts)), nil
}

func (f *fakeAttemptRepo) CountAuthentic(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, attempt := range f.attempts {
		if attempt.Authentic {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptRepo) ListRecent(ctx context.Context, limit int) ([]domain.ScanAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := append([]domain.ScanAttempt{}, f.attempts...)
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (f *fakeAttemptRepo) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func (f *fakeAttemptRepo) last() domain.ScanAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[len(f.attempts)-1]
}

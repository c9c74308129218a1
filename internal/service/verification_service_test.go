package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/authenticity-service/internal/domain"
	"github.com/spec-kit/authenticity-service/internal/observability"
	apperrors "github.com/spec-kit/authenticity-service/pkg/util/errorutil"
)

func newTestVerifier(tokens *fakeTokenRepo, attempts *fakeAttemptRepo) *VerificationService {
	logger := NewAttemptLogger(attempts, zap.NewNop())
	svc := NewVerificationService(VerificationDependencies{
		TokenRepo: tokens,
		Attempts:  logger,
		Metrics:   observability.NewMetrics(),
	})
	svc.clock = func() time.Time {
		return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	}
	return svc
}

func seedToken(tokens *fakeTokenRepo, id, secret string, info map[string]any) {
	tokens.tokens[id] = &domain.Token{
		ID:          id,
		Secret:      secret,
		ProductInfo: info,
		CreatedAt:   time.Now(),
	}
}

func TestVerifySuccessReturnsProductInfo(t *testing.T) {
	tokens := newFakeTokenRepo()
	attempts := &fakeAttemptRepo{}
	seedToken(tokens, "id-1", "secret-1", map[string]any{"name": "Widget"})
	svc := newTestVerifier(tokens, attempts)

	result, err := svc.Verify(context.Background(), VerifyInput{
		TokenID:  "id-1",
		Secret:   "secret-1",
		Location: domain.ScanLocation{Region: "Lisbon"},
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != domain.VerificationSuccess {
		t.Fatalf("expected SUCCESS, got %s", result.Status)
	}
	if result.ProductInfo["name"] != "Widget" {
		t.Fatalf("expected product name Widget, got %v", result.ProductInfo["name"])
	}

	stored := tokens.tokens["id-1"]
	if !stored.Consumed {
		t.Fatal("expected token consumed")
	}
	if stored.ConsumedAt == nil || !stored.ConsumedAt.Equal(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected consumed_at stamped with injected clock, got %v", stored.ConsumedAt)
	}
	if stored.Region != "Lisbon" {
		t.Fatalf("expected region Lisbon, got %q", stored.Region)
	}

	if attempts.len() != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts.len())
	}
	if !attempts.last().Authentic {
		t.Fatal("expected authentic attempt")
	}
}

func TestVerifySecondScanAlreadyUsed(t *testing.T) {
	tokens := newFakeTokenRepo()
	attempts := &fakeAttemptRepo{}
	seedToken(tokens, "id-1", "secret-1", map[string]any{"name": "Widget"})
	svc := newTestVerifier(tokens, attempts)

	input := VerifyInput{TokenID: "id-1", Secret: "secret-1"}
	if _, err := svc.Verify(context.Background(), input); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	result, err := svc.Verify(context.Background(), input)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if result.Status != domain.VerificationAlreadyUsed {
		t.Fatalf("expected ALREADY_USED, got %s", result.Status)
	}
	if result.ProductInfo != nil {
		t.Fatal("rejections must not leak product info")
	}
	if attempts.len() != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts.len())
	}
	if attempts.last().Authentic {
		t.Fatal("expected second attempt inauthentic")
	}
}

func TestVerifyUnknownIDNotFound(t *testing.T) {
	tokens := newFakeTokenRepo()
	attempts := &fakeAttemptRepo{}
	svc := newTestVerifier(tokens, attempts)

	result, err := svc.Verify(context.Background(), VerifyInput{TokenID: "nope", Secret: "whatever"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != domain.VerificationNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", result.Status)
	}
	if attempts.len() != 1 {
		t.Fatalf("expected attempt logged for unknown id, got %d", attempts.len())
	}
	if attempts.last().TokenID != "nope" {
		t.Fatalf("expected claimed id recorded, got %q", attempts.last().TokenID)
	}
}

func TestVerifyWrongSecretLeavesTokenUnconsumed(t *testing.T) {
	tokens := newFakeTokenRepo()
	attempts := &fakeAttemptRepo{}
	seedToken(tokens, "id-1", "secret-1", nil)
	svc := newTestVerifier(tokens, attempts)

	result, err := svc.Verify(context.Background(), VerifyInput{TokenID: "id-1", Secret: "wrong"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != domain.VerificationInvalidKey {
		t.Fatalf("expected INVALID_KEY, got %s", result.Status)
	}
	if tokens.tokens["id-1"].Consumed {
		t.Fatal("wrong secret must not consume the token")
	}

	// Retrying with the right secret still succeeds.
	result, err = svc.Verify(context.Background(), VerifyInput{TokenID: "id-1", Secret: "secret-1"})
	if err != nil {
		t.Fatalf("retry verify: %v", err)
	}
	if result.Status != domain.VerificationSuccess {
		t.Fatalf("expected SUCCESS on retry, got %s", result.Status)
	}
	if attempts.len() != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts.len())
	}
}

func TestVerifyConcurrentScansExactlyOneSuccess(t *testing.T) {
	tokens := newFakeTokenRepo()
	attempts := &fakeAttemptRepo{}
	seedToken(tokens, "id-1", "secret-1", nil)
	svc := newTestVerifier(tokens, attempts)

	const callers = 50
	var wg sync.WaitGroup
	results := make([]*domain.VerificationResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.Verify(context.Background(), VerifyInput{TokenID: "id-1", Secret: "secret-1"})
			if err != nil {
				t.Errorf("verify %d: %v", i, err)
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	var successes, alreadyUsed int
	for _, result := range results {
		if result == nil {
			continue
		}
		switch result.Status {
		case domain.VerificationSuccess:
			successes++
		case domain.VerificationAlreadyUsed:
			alreadyUsed++
		default:
			t.Fatalf("unexpected status %s", result.Status)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 success, got %d", successes)
	}
	if alreadyUsed != callers-1 {
		t.Fatalf("expected %d ALREADY_USED, got %d", callers-1, alreadyUsed)
	}
	if attempts.len() != callers {
		t.Fatalf("expected one attempt per call, got %d", attempts.len())
	}
}

func TestVerifyStoreFailureIsNotARejection(t *testing.T) {
	tokens := newFakeTokenRepo()
	tokens.getErr = errors.New("connection refused")
	attempts := &fakeAttemptRepo{}
	svc := newTestVerifier(tokens, attempts)

	result, err := svc.Verify(context.Background(), VerifyInput{TokenID: "id-1", Secret: "secret-1"})
	if err == nil {
		t.Fatal("expected error when store is down")
	}
	if result != nil {
		t.Fatal("infra failure must not produce a verdict")
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "UNAVAILABLE" {
		t.Fatalf("expected UNAVAILABLE error, got %v", err)
	}
	if attempts.len() != 0 {
		t.Fatalf("no attempt should be logged on infra failure, got %d", attempts.len())
	}
}

func TestVerifyAttemptLogFailureDoesNotChangeOutcome(t *testing.T) {
	tokens := newFakeTokenRepo()
	attempts := &fakeAttemptRepo{createErr: errors.New("disk full")}
	seedToken(tokens, "id-1", "secret-1", map[string]any{"name": "Widget"})
	svc := newTestVerifier(tokens, attempts)

	result, err := svc.Verify(context.Background(), VerifyInput{TokenID: "id-1", Secret: "secret-1"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != domain.VerificationSuccess {
		t.Fatalf("expected SUCCESS despite logging failure, got %s", result.Status)
	}
}

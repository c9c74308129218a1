package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/authenticity-service/internal/domain"
)

func TestAttemptLoggerAssignsScanIDAndTimestamp(t *testing.T) {
	attempts := &fakeAttemptRepo{}
	logger := NewAttemptLogger(attempts, zap.NewNop())
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	logger.clock = func() time.Time { return fixed }
	logger.newID = func() string { return "scan-1" }

	logger.Record(context.Background(), "token-1", domain.ScanLocation{Region: "Faro"}, "test-agent", false)

	if attempts.len() != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts.len())
	}
	attempt := attempts.last()
	if attempt.ScanID != "scan-1" {
		t.Fatalf("expected scan id scan-1, got %q", attempt.ScanID)
	}
	if !attempt.CreatedAt.Equal(fixed) {
		t.Fatalf("expected injected timestamp, got %v", attempt.CreatedAt)
	}
	if attempt.Authentic {
		t.Fatal("expected inauthentic attempt")
	}
	if attempt.Location.Region != "Faro" {
		t.Fatalf("expected region Faro, got %q", attempt.Location.Region)
	}
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/authenticity-service/internal/domain"
	"github.com/spec-kit/authenticity-service/internal/repository"
)

// AttemptLogger records every verification attempt. Recording is best-effort:
// a failed write is reported to the operational log and never alters the
// verification outcome returned to the caller.
type AttemptLogger struct {
	attempts repository.ScanAttemptRepository
	logger   *zap.Logger
	clock    func() time.Time
	newID    func() string
}

// NewAttemptLogger builds the logger.
func NewAttemptLogger(attempts repository.ScanAttemptRepository, logger *zap.Logger) *AttemptLogger {
	return &AttemptLogger{
		attempts: attempts,
		logger:   logger,
		clock:    time.Now,
		newID:    uuid.NewString,
	}
}

// Record appends one scan attempt. The claimed token id is stored as-is, even
// when no such token exists.
func (l *AttemptLogger) Record(ctx context.Context, tokenID string, location domain.ScanLocation, deviceInfo string, authentic bool) {
	attempt := &domain.ScanAttempt{
		ScanID:     l.newID(),
		TokenID:    tokenID,
		Location:   location,
		DeviceInfo: deviceInfo,
		Authentic:  authentic,
		CreatedAt:  l.clock(),
	}
	if err := l.attempts.Create(ctx, attempt); err != nil {
		l.logger.Warn("failed to record scan attempt",
			zap.String("token_id", tokenID),
			zap.Bool("authentic", authentic),
			zap.Error(err))
	}
}

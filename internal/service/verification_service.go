package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/authenticity-service/internal/domain"
	"github.com/spec-kit/authenticity-service/internal/events"
	"github.com/spec-kit/authenticity-service/internal/observability"
	"github.com/spec-kit/authenticity-service/internal/repository"
	apperrors "github.com/spec-kit/authenticity-service/pkg/util/errorutil"
)

// User-facing outcome messages, kept stable for deployed scanner clients.
const (
	msgGenuine     = "Product is genuine"
	msgNotFound    = "QR code not found"
	msgAlreadyUsed = "This QR code has already been used"
	msgInvalidKey  = "Invalid key"
)

// VerifyInput is one scan as submitted by a client.
type VerifyInput struct {
	TokenID    string
	Secret     string
	Location   domain.ScanLocation
	DeviceInfo string
}

// VerificationService decides whether a scan is the first legitimate
// redemption of a token and drives the one-way CONSUMED transition.
type VerificationService struct {
	tokens     repository.TokenRepository
	attempts   *AttemptLogger
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	clock      func() time.Time
}

// VerificationDependencies bundles collaborators for the service.
type VerificationDependencies struct {
	TokenRepo  repository.TokenRepository
	Attempts   *AttemptLogger
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
}

// NewVerificationService constructs the service.
func NewVerificationService(deps VerificationDependencies) *VerificationService {
	return &VerificationService{
		tokens:     deps.TokenRepo,
		attempts:   deps.Attempts,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		clock:      time.Now,
	}
}

// Verify runs the decision procedure for one scan. Rejections are ordinary
// results; an error return means the store failed and the caller must not
// present it as a counterfeit verdict. Every result, accepted or rejected,
// records exactly one scan attempt.
func (s *VerificationService) Verify(ctx context.Context, input VerifyInput) (*domain.VerificationResult, error) {
	token, err := s.tokens.GetByID(ctx, input.TokenID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.reject(ctx, input, domain.VerificationNotFound, msgNotFound), nil
		}
		return nil, apperrors.NewUnavailable("could not verify right now", err)
	}

	if token.Consumed {
		return s.reject(ctx, input, domain.VerificationAlreadyUsed, msgAlreadyUsed), nil
	}

	if subtle.ConstantTimeCompare([]byte(token.Secret), []byte(input.Secret)) != 1 {
		return s.reject(ctx, input, domain.VerificationInvalidKey, msgInvalidKey), nil
	}

	// Single compare-and-set against the store. Losing the race with another
	// scan of the same label is indistinguishable from arriving late.
	now := s.clock()
	consumed, err := s.tokens.Consume(ctx, token.ID, input.Location.Region, now)
	if err != nil {
		return nil, apperrors.NewUnavailable("could not verify right now", err)
	}
	if !consumed {
		return s.reject(ctx, input, domain.VerificationAlreadyUsed, msgAlreadyUsed), nil
	}

	s.attempts.Record(ctx, input.TokenID, input.Location, input.DeviceInfo, true)
	s.metrics.RecordScanOutcome(string(domain.VerificationSuccess))
	s.publish(ctx, events.Event{
		Type:      events.EventTokenConsumed,
		TokenID:   token.ID,
		Timestamp: now,
		Payload: events.TokenConsumedPayload{
			Region:     input.Location.Region,
			DeviceInfo: input.DeviceInfo,
		},
	})

	return &domain.VerificationResult{
		Status:      domain.VerificationSuccess,
		Message:     msgGenuine,
		ProductInfo: token.ProductInfo,
	}, nil
}

func (s *VerificationService) reject(ctx context.Context, input VerifyInput, status domain.VerificationStatus, message string) *domain.VerificationResult {
	s.attempts.Record(ctx, input.TokenID, input.Location, input.DeviceInfo, false)
	s.metrics.RecordScanOutcome(string(status))
	s.publish(ctx, events.Event{
		Type:      events.EventCounterfeitScan,
		TokenID:   input.TokenID,
		Timestamp: s.clock(),
		Payload: events.CounterfeitScanPayload{
			Status:     status,
			Region:     input.Location.Region,
			DeviceInfo: input.DeviceInfo,
		},
	})
	return &domain.VerificationResult{Status: status, Message: message}
}

func (s *VerificationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

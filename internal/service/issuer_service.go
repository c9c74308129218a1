package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/authenticity-service/internal/barcode"
	"github.com/spec-kit/authenticity-service/internal/domain"
	"github.com/spec-kit/authenticity-service/internal/events"
	"github.com/spec-kit/authenticity-service/internal/repository"
)

// Retries per unit when the store rejects a generated identifier as a
// duplicate. With 128-bit random ids a single retry should never be needed.
const uniqueRetryLimit = 3

const pgUniqueViolation = "23505"

// IssuedUnit is one generated token together with its printable artifacts.
type IssuedUnit struct {
	ID      string
	Secret  string
	Payload string
	QRImage string
}

// BatchResult reports what a batch run actually committed. Issuance is not
// transactional across the batch: on mid-batch failure Units holds the tokens
// already persisted, which remain valid.
type BatchResult struct {
	Requested int
	Issued    int
	Units     []IssuedUnit
}

// IssuerService generates batches of unused tokens bound to product metadata.
type IssuerService struct {
	tokens     repository.TokenRepository
	renderer   *barcode.Renderer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	newID      func() string
}

// IssuerDependencies bundles collaborators for the issuer.
type IssuerDependencies struct {
	TokenRepo  repository.TokenRepository
	Renderer   *barcode.Renderer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewIssuerService constructs the service.
func NewIssuerService(deps IssuerDependencies) *IssuerService {
	return &IssuerService{
		tokens:     deps.TokenRepo,
		renderer:   deps.Renderer,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		newID:      uuid.NewString,
	}
}

// IssueBatch persists count new unused tokens and returns their printable
// units in generation order. The count upper bound is enforced at the HTTP
// boundary, not here.
func (s *IssuerService) IssueBatch(ctx context.Context, count int, productInfo map[string]any) (BatchResult, error) {
	result := BatchResult{Requested: count}

	for i := 0; i < count; i++ {
		unit, err := s.issueOne(ctx, productInfo)
		if err != nil {
			s.logger.Error("batch issuance aborted",
				zap.Int("requested", count),
				zap.Int("issued", result.Issued),
				zap.Error(err))
			s.publishBatch(ctx, result, productInfo)
			return result, err
		}
		result.Units = append(result.Units, unit)
		result.Issued++
	}

	s.logger.Info("batch issued", zap.Int("count", result.Issued))
	s.publishBatch(ctx, result, productInfo)
	return result, nil
}

func (s *IssuerService) issueOne(ctx context.Context, productInfo map[string]any) (IssuedUnit, error) {
	var lastErr error
	for attempt := 0; attempt < uniqueRetryLimit; attempt++ {
		id := s.newID()
		secret := s.newID()

		payload, err := barcode.EncodePayload(id, secret)
		if err != nil {
			return IssuedUnit{}, err
		}
		image, err := s.renderer.DataURL(payload)
		if err != nil {
			return IssuedUnit{}, err
		}

		token := &domain.Token{
			ID:          id,
			Secret:      secret,
			ProductInfo: productInfo,
		}
		if err := s.tokens.Create(ctx, token); err != nil {
			if isUniqueViolation(err) {
				// Collision in the identifier space; regenerate and retry.
				lastErr = err
				continue
			}
			return IssuedUnit{}, err
		}

		return IssuedUnit{ID: id, Secret: secret, Payload: payload, QRImage: image}, nil
	}
	return IssuedUnit{}, lastErr
}

func (s *IssuerService) publishBatch(ctx context.Context, result BatchResult, productInfo map[string]any) {
	if s.dispatcher == nil || result.Issued == 0 {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:      events.EventTokenBatchIssued,
		Timestamp: time.Now(),
		Payload: events.TokenBatchIssuedPayload{
			Requested: result.Requested,
			Issued:    result.Issued,
			Product:   productInfo,
		},
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

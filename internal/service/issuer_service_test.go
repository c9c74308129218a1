package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/authenticity-service/internal/barcode"
	"github.com/spec-kit/authenticity-service/internal/domain"
)

func newTestIssuer(tokens *fakeTokenRepo) *IssuerService {
	return NewIssuerService(IssuerDependencies{
		TokenRepo: tokens,
		Renderer:  barcode.NewRenderer(64),
		Logger:    zap.NewNop(),
	})
}

func TestIssueBatchCreatesDistinctUnits(t *testing.T) {
	tokens := newFakeTokenRepo()
	svc := newTestIssuer(tokens)
	info := map[string]any{"name": "Widget", "batch": "B-7"}

	result, err := svc.IssueBatch(context.Background(), 100, info)
	if err != nil {
		t.Fatalf("issue batch: %v", err)
	}
	if result.Issued != 100 || len(result.Units) != 100 {
		t.Fatalf("expected 100 units, got issued=%d len=%d", result.Issued, len(result.Units))
	}

	ids := map[string]bool{}
	secrets := map[string]bool{}
	for _, unit := range result.Units {
		if ids[unit.ID] {
			t.Fatalf("duplicate id %s", unit.ID)
		}
		if secrets[unit.Secret] {
			t.Fatalf("duplicate secret %s", unit.Secret)
		}
		ids[unit.ID] = true
		secrets[unit.Secret] = true

		stored, ok := tokens.tokens[unit.ID]
		if !ok {
			t.Fatalf("unit %s not persisted", unit.ID)
		}
		if stored.Consumed {
			t.Fatal("new tokens must start unconsumed")
		}
		if stored.ProductInfo["name"] != "Widget" {
			t.Fatalf("product info not copied, got %v", stored.ProductInfo)
		}
	}
}

func TestIssueBatchPayloadRoundTrips(t *testing.T) {
	tokens := newFakeTokenRepo()
	svc := newTestIssuer(tokens)

	result, err := svc.IssueBatch(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("issue batch: %v", err)
	}
	unit := result.Units[0]

	payload, err := barcode.DecodePayload(unit.Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.CodeID != unit.ID || payload.Key != unit.Secret {
		t.Fatalf("payload mismatch: %+v vs unit %s/%s", payload, unit.ID, unit.Secret)
	}
	if !strings.HasPrefix(unit.QRImage, "data:image/png;base64,") {
		t.Fatal("expected PNG data URL")
	}
}

func TestIssueBatchRetriesOnUniqueViolation(t *testing.T) {
	tokens := newFakeTokenRepo()
	failures := 2
	tokens.createFunc = func(token *domain.Token) error {
		if failures > 0 {
			failures--
			return &pgconn.PgError{Code: "23505"}
		}
		return nil
	}
	svc := newTestIssuer(tokens)

	result, err := svc.IssueBatch(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("issue batch: %v", err)
	}
	if result.Issued != 1 {
		t.Fatalf("expected 1 issued after retries, got %d", result.Issued)
	}
}

func TestIssueBatchReportsPartialFailure(t *testing.T) {
	tokens := newFakeTokenRepo()
	created := 0
	tokens.createFunc = func(token *domain.Token) error {
		if created == 3 {
			return errors.New("write failed")
		}
		created++
		return nil
	}
	svc := newTestIssuer(tokens)

	result, err := svc.IssueBatch(context.Background(), 10, nil)
	if err == nil {
		t.Fatal("expected mid-batch failure")
	}
	if result.Requested != 10 {
		t.Fatalf("expected requested 10, got %d", result.Requested)
	}
	if result.Issued != 3 || len(result.Units) != 3 {
		t.Fatalf("expected 3 committed units reported, got issued=%d len=%d", result.Issued, len(result.Units))
	}
	// The committed units stay valid in the store.
	for _, unit := range result.Units {
		if _, ok := tokens.tokens[unit.ID]; !ok {
			t.Fatalf("committed unit %s missing from store", unit.ID)
		}
	}
}

func TestIssueBatchUniqueIDsAcrossLargeRun(t *testing.T) {
	tokens := newFakeTokenRepo()
	svc := newTestIssuer(tokens)
	counter := 0
	svc.newID = func() string {
		counter++
		return fmt.Sprintf("fixed-%d", counter)
	}

	result, err := svc.IssueBatch(context.Background(), 5, nil)
	if err != nil {
		t.Fatalf("issue batch: %v", err)
	}
	for i, unit := range result.Units {
		if unit.ID == unit.Secret {
			t.Fatalf("unit %d reused the same value for id and secret", i)
		}
	}
}

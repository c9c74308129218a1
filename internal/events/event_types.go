package events

import (
	"time"

	"github.com/spec-kit/authenticity-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenBatchIssued EventType = "token_batch_issued"
	EventTokenConsumed    EventType = "token_consumed"
	EventCounterfeitScan  EventType = "counterfeit_scan"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TokenID   string      `json:"token_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TokenBatchIssuedPayload payload.
type TokenBatchIssuedPayload struct {
	Requested int            `json:"requested"`
	Issued    int            `json:"issued"`
	Product   map[string]any `json:"product,omitempty"`
}

// TokenConsumedPayload payload.
type TokenConsumedPayload struct {
	Region     string `json:"region,omitempty"`
	DeviceInfo string `json:"device_info,omitempty"`
}

// CounterfeitScanPayload carries the rejection kind so ops can split
// scratched-label tampering from plain counterfeits downstream.
type CounterfeitScanPayload struct {
	Status     domain.VerificationStatus `json:"status"`
	Region     string                    `json:"region,omitempty"`
	DeviceInfo string                    `json:"device_info,omitempty"`
}

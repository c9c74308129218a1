package domain

import "time"

// Token is the persisted record for one printed QR unit tied to a physical
// product instance. It is created by batch issuance and mutated exactly once,
// when a scan consumes it.
type Token struct {
	ID          string
	Secret      string
	Consumed    bool
	ConsumedAt  *time.Time
	ProductInfo map[string]any
	Region      string
	CreatedAt   time.Time
}

// VerificationStatus enumerates the outcome of a verification attempt.
type VerificationStatus string

const (
	VerificationSuccess     VerificationStatus = "SUCCESS"
	VerificationNotFound    VerificationStatus = "NOT_FOUND"
	VerificationAlreadyUsed VerificationStatus = "ALREADY_USED"
	VerificationInvalidKey  VerificationStatus = "INVALID_KEY"
)

// VerificationResult is the outcome returned for a single scan. Rejections are
// ordinary results, not errors; only infrastructure failures surface as errors.
type VerificationResult struct {
	Status      VerificationStatus
	Message     string
	ProductInfo map[string]any
}

// Authentic reports whether this result consumed the token.
func (r *VerificationResult) Authentic() bool {
	return r != nil && r.Status == VerificationSuccess
}

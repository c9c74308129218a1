package domain

import "time"

// ScanLocation is the optional client-supplied position for a scan.
type ScanLocation struct {
	Latitude  *float64
	Longitude *float64
	Region    string
}

// ScanAttempt is an immutable audit record of one verification call. It is
// written on every branch of the verification procedure, including attempts
// against token ids that were never issued.
type ScanAttempt struct {
	ScanID     string
	TokenID    string
	Location   ScanLocation
	DeviceInfo string
	Authentic  bool
	CreatedAt  time.Time
}

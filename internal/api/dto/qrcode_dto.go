package dto

import "time"

// GenerateRequest payload for batch issuance.
type GenerateRequest struct {
	Count       int            `json:"count"`
	ProductInfo map[string]any `json:"product_info"`
}

// GeneratedUnit is one issued token as returned to the printing pipeline.
type GeneratedUnit struct {
	CodeID  string `json:"code_id"`
	Key     string `json:"key"`
	QRImage string `json:"qr_image"`
}

// GenerateResponse reports what the batch actually committed.
type GenerateResponse struct {
	Requested int             `json:"requested"`
	Issued    int             `json:"issued"`
	Data      []GeneratedUnit `json:"data"`
}

// LocationPayload is the optional scan position.
type LocationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Region    string   `json:"region"`
}

// VerifyRequest payload for a scan.
type VerifyRequest struct {
	CodeID     string          `json:"code_id"`
	Key        string          `json:"key"`
	Location   LocationPayload `json:"location"`
	DeviceInfo string          `json:"device_info"`
}

// VerifyResponse is the client-visible verdict.
type VerifyResponse struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	ProductInfo map[string]any `json:"product_info,omitempty"`
}

// TokenSummary is one token row in admin listings. The secret is never
// exposed through the read surface.
type TokenSummary struct {
	CodeID      string         `json:"code_id"`
	Consumed    bool           `json:"consumed"`
	ConsumedAt  *time.Time     `json:"consumed_at"`
	Region      string         `json:"region"`
	ProductInfo map[string]any `json:"product_info"`
	CreatedAt   time.Time      `json:"created_at"`
}

// RegionStat is one regional breakdown row.
type RegionStat struct {
	Region string `json:"region"`
	Count  int64  `json:"count"`
}

// StatsResponse aggregates reporting numbers for the dashboard.
type StatsResponse struct {
	TotalQRCodes            int64        `json:"total_qr_codes"`
	UsedQRCodes             int64        `json:"used_qr_codes"`
	UnusedQRCodes           int64        `json:"unused_qr_codes"`
	UsagePercentage         float64      `json:"usage_percentage"`
	TotalScans              int64        `json:"total_scans"`
	AuthenticScans          int64        `json:"authentic_scans"`
	CounterfeitScanAttempts int64        `json:"counterfeit_scan_attempts"`
	RegionalData            []RegionStat `json:"regional_data"`
}

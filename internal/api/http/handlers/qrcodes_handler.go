package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/authenticity-service/internal/api/dto"
	"github.com/spec-kit/authenticity-service/internal/domain"
	"github.com/spec-kit/authenticity-service/internal/repository"
	"github.com/spec-kit/authenticity-service/internal/service"
	apperrors "github.com/spec-kit/authenticity-service/pkg/util/errorutil"
)

// QRCodesHandler manages issuance, verification and reporting endpoints.
type QRCodesHandler struct {
	issuer       *service.IssuerService
	verifier     *service.VerificationService
	stats        *service.StatsService
	maxBatchSize int
}

// NewQRCodesHandler constructs handler.
func NewQRCodesHandler(issuer *service.IssuerService, verifier *service.VerificationService, stats *service.StatsService, maxBatchSize int) *QRCodesHandler {
	if maxBatchSize <= 0 {
		maxBatchSize = 1000
	}
	return &QRCodesHandler{
		issuer:       issuer,
		verifier:     verifier,
		stats:        stats,
		maxBatchSize: maxBatchSize,
	}
}

// Generate POST /api/qrcodes/generate.
func (h *QRCodesHandler) Generate(c *fiber.Ctx) error {
	var req dto.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Count <= 0 {
		return apperrors.NewValidationError("count must be a positive integer", nil)
	}
	if req.Count > h.maxBatchSize {
		return apperrors.NewValidationError("count exceeds batch limit", map[string]any{
			"max_batch_size": h.maxBatchSize,
		})
	}
	if req.ProductInfo == nil {
		req.ProductInfo = map[string]any{}
	}

	result, err := h.issuer.IssueBatch(c.UserContext(), req.Count, req.ProductInfo)
	if err != nil {
		// Units persisted before the failure remain valid; report what was
		// actually committed instead of discarding it.
		return apperrors.NewDomainError("PARTIAL_BATCH_FAILURE", "batch issuance failed partway",
			http.StatusInternalServerError, map[string]any{
				"requested": result.Requested,
				"issued":    result.Issued,
			})
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": generateResponse(result)})
}

// Verify POST /api/qrcodes/verify. Public: scanners carry no credentials.
func (h *QRCodesHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	// Input errors reject before touching the store; no attempt is logged.
	if req.CodeID == "" || req.Key == "" {
		return apperrors.NewValidationError("code_id and key required", nil)
	}

	deviceInfo := req.DeviceInfo
	if deviceInfo == "" {
		deviceInfo = c.Get("User-Agent")
	}

	result, err := h.verifier.Verify(c.UserContext(), service.VerifyInput{
		TokenID: req.CodeID,
		Secret:  req.Key,
		Location: domain.ScanLocation{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
			Region:    req.Location.Region,
		},
		DeviceInfo: deviceInfo,
	})
	if err != nil {
		return err
	}

	resp := dto.VerifyResponse{
		Success:     result.Authentic(),
		Message:     result.Message,
		ProductInfo: result.ProductInfo,
	}
	return c.Status(verifyStatusCode(result.Status)).JSON(resp)
}

// List GET /api/qrcodes.
func (h *QRCodesHandler) List(c *fiber.Ctx) error {
	filter := parseTokenQuery(c)
	tokens, err := h.stats.ListTokens(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TokenSummary, 0, len(tokens))
	for i := range tokens {
		items = append(items, tokenSummary(&tokens[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /api/qrcodes/stats.
func (h *QRCodesHandler) Stats(c *fiber.Ctx) error {
	overview, err := h.stats.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": statsResponse(overview)})
}

// Attempts GET /api/qrcodes/attempts.
func (h *QRCodesHandler) Attempts(c *fiber.Ctx) error {
	limit := parseInt(c.Query("limit"), 50)
	attempts, err := h.stats.RecentAttempts(c.UserContext(), limit)
	if err != nil {
		return err
	}
	items := make([]fiber.Map, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, fiber.Map{
			"scan_id":   attempt.ScanID,
			"token_id":  attempt.TokenID,
			"authentic": attempt.Authentic,
			"region":    attempt.Location.Region,
			"timestamp": attempt.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func verifyStatusCode(status domain.VerificationStatus) int {
	switch status {
	case domain.VerificationSuccess:
		return http.StatusOK
	case domain.VerificationNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func parseTokenQuery(c *fiber.Ctx) repository.TokenFilter {
	filter := repository.TokenFilter{}
	if consumedStr := c.Query("consumed"); consumedStr != "" {
		consumed := strings.EqualFold(consumedStr, "true")
		filter.Consumed = &consumed
	}
	if region := c.Query("region"); region != "" {
		filter.Region = &region
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func generateResponse(result service.BatchResult) dto.GenerateResponse {
	units := make([]dto.GeneratedUnit, 0, len(result.Units))
	for _, unit := range result.Units {
		units = append(units, dto.GeneratedUnit{
			CodeID:  unit.ID,
			Key:     unit.Secret,
			QRImage: unit.QRImage,
		})
	}
	return dto.GenerateResponse{
		Requested: result.Requested,
		Issued:    result.Issued,
		Data:      units,
	}
}

func tokenSummary(token *domain.Token) dto.TokenSummary {
	return dto.TokenSummary{
		CodeID:      token.ID,
		Consumed:    token.Consumed,
		ConsumedAt:  token.ConsumedAt,
		Region:      token.Region,
		ProductInfo: token.ProductInfo,
		CreatedAt:   token.CreatedAt,
	}
}

func statsResponse(overview *service.StatsOverview) dto.StatsResponse {
	regional := make([]dto.RegionStat, 0, len(overview.RegionalData))
	for _, rc := range overview.RegionalData {
		regional = append(regional, dto.RegionStat{Region: rc.Region, Count: rc.Count})
	}
	return dto.StatsResponse{
		TotalQRCodes:            overview.TotalTokens,
		UsedQRCodes:             overview.ConsumedTokens,
		UnusedQRCodes:           overview.UnconsumedTokens,
		UsagePercentage:         overview.UsagePercentage,
		TotalScans:              overview.TotalScans,
		AuthenticScans:          overview.AuthenticScans,
		CounterfeitScanAttempts: overview.CounterfeitAttempts,
		RegionalData:            regional,
	}
}

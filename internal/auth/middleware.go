package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/authenticity-service/internal/domain"
	"github.com/spec-kit/authenticity-service/internal/repository"
	apperrors "github.com/spec-kit/authenticity-service/pkg/util/errorutil"
)

const adminKey = "auth_admin"

// AuthMiddleware validates bearer tokens and loads the admin account.
type AuthMiddleware struct {
	tokens *TokenManager
	admins repository.AdminRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, admins repository.AdminRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, admins: admins}
}

// Handle enforces authentication for admin routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	admin, err := m.admins.GetByID(c.Context(), claims.AdminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("admin not found")
		}
		return apperrors.MapError(err)
	}
	if !admin.Active {
		return apperrors.NewForbidden("account inactive")
	}

	c.Locals(adminKey, admin)
	return c.Next()
}

// AdminFromContext retrieves the authenticated admin account.
func AdminFromContext(c *fiber.Ctx) (*domain.AdminUser, bool) {
	val := c.Locals(adminKey)
	if val == nil {
		return nil, false
	}
	admin, ok := val.(*domain.AdminUser)
	return admin, ok
}

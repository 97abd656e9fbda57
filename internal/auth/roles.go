package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/caosaude/solicitacoes/internal/domain"
	apperrors "github.com/caosaude/solicitacoes/pkg/util/errorutil"
)

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Profile.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireManager is RequireRole(domain.RoleManager).
func RequireManager() fiber.Handler {
	return RequireRole(domain.RoleManager)
}

// RequireAuthenticated ensures any principal is loaded.
func RequireAuthenticated() fiber.Handler {
	return RequireRole()
}

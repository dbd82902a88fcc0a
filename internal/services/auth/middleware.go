package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"restaurant-system/internal/models"
	"restaurant-system/internal/web"
)

const principalKey = "principal"

// RequireRoles authenticates the bearer token and rejects callers whose role
// is not listed
func (s *Service) RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			web.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		principal, err := s.ParseToken(token)
		if err != nil {
			web.WriteError(c, s.logger, "authenticate", err)
			return
		}

		if !hasRole(roles, principal.Role) {
			web.WriteError(c, s.logger, "authorize",
				fmt.Errorf("%w: role %s may not access this resource", models.ErrForbidden, principal.Role))
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the caller set by RequireRoles
func PrincipalFrom(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}

func hasRole(allowed []models.Role, role models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

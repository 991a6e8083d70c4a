package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
	"github.com/noah-isme/stemkit-identity/pkg/response"
)

// SelfRole lets a caller through when the :id route parameter is their own id.
const SelfRole = "SELF"

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	roles := make([]string, 0, len(allowed))
	for _, a := range allowed {
		if a == SelfRole {
			allowSelf = true
			continue
		}
		roles = append(roles, a)
	}

	return func(c *gin.Context) {
		identity, ok := Identity(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}

		for _, role := range roles {
			if identity.HasRole(role) {
				c.Next()
				return
			}
		}

		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == identity.UserID {
				c.Next()
				return
			}
		}

		response.Abort(c, appErrors.ErrForbidden)
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return RBAC(roles...)
}

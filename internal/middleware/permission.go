package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
	"github.com/noah-isme/stemkit-identity/pkg/response"
)

// PermissionChecker answers fine-grained capability checks.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID, name string) (bool, error)
}

// RequirePermission admits callers holding the named permission.
func RequirePermission(checker PermissionChecker, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := Identity(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		allowed, err := checker.HasPermission(c.Request.Context(), identity.UserID, name)
		if err != nil {
			response.Abort(c, err)
			return
		}
		if !allowed {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "missing permission "+name))
			return
		}
		c.Next()
	}
}

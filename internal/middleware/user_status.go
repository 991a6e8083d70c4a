package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
	"github.com/noah-isme/stemkit-identity/pkg/response"
)

// StatusChecker reports whether an account may still act.
type StatusChecker interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// ActiveUser re-reads the caller's account status on every request so a ban
// takes effect before the access token expires. Must run after JWT.
func ActiveUser(checker StatusChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := Identity(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}

		active, err := checker.IsActive(c.Request.Context(), identity.UserID)
		if err != nil {
			response.Abort(c, err)
			return
		}
		if !active {
			response.Abort(c, appErrors.ErrInactiveAccount)
			return
		}
		c.Next()
	}
}

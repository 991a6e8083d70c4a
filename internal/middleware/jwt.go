package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
	"github.com/noah-isme/stemkit-identity/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated identity.
const ContextUserKey = "currentUser"

// TokenVerifier validates bearer access tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*models.AccessClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			return
		}

		claims, err := verifier.VerifyAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextUserKey, &models.AuthenticatedIdentity{
			UserID: claims.Subject,
			Roles:  claims.Roles,
			IP:     c.ClientIP(),
		})
		c.Next()
	}
}

// Identity returns the authenticated caller stored by JWT.
func Identity(c *gin.Context) (*models.AuthenticatedIdentity, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*models.AuthenticatedIdentity)
	return identity, ok && identity != nil
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
	"github.com/noah-isme/stemkit-identity/pkg/response"
)

type accountModerator interface {
	BanUser(ctx context.Context, userID string, actor models.AuthenticatedIdentity) (*models.ActionResult, error)
	UnbanUser(ctx context.Context, userID string, actor models.AuthenticatedIdentity) (*models.ActionResult, error)
}

// UserAdminHandler exposes account moderation endpoints.
type UserAdminHandler struct {
	service accountModerator
}

// NewUserAdminHandler constructs the handler.
func NewUserAdminHandler(svc accountModerator) *UserAdminHandler {
	return &UserAdminHandler{service: svc}
}

// Ban godoc
// @Summary Ban user
// @Description Deactivate an account and revoke all of its refresh tokens
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.ActionResult
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users/{id}/ban [post]
func (h *UserAdminHandler) Ban(c *gin.Context) {
	h.moderate(c, h.service.BanUser)
}

// Unban godoc
// @Summary Unban user
// @Description Reactivate a banned account
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.ActionResult
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users/{id}/unban [post]
func (h *UserAdminHandler) Unban(c *gin.Context) {
	h.moderate(c, h.service.UnbanUser)
}

func (h *UserAdminHandler) moderate(c *gin.Context, action func(context.Context, string, models.AuthenticatedIdentity) (*models.ActionResult, error)) {
	identity, ok := currentIdentity(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidInput, "user id is required"))
		return
	}

	res, err := action(c.Request.Context(), userID, *identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
	"github.com/noah-isme/stemkit-identity/pkg/response"
)

type registrar interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error)
}

type authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
}

type externalAuthenticator interface {
	Login(ctx context.Context, req models.ExternalLoginRequest) (*models.AuthResult, error)
}

type sessionRefresher interface {
	Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.AuthResult, error)
}

type sessionTerminator interface {
	Logout(ctx context.Context, req models.LogoutRequest) (*models.ActionResult, error)
}

type permissionLister interface {
	ListForUser(ctx context.Context, userID string) ([]models.UserPermissionDetail, error)
}

// AuthServices groups the flows served by AuthHandler.
type AuthServices struct {
	Registration registrar
	Login        authenticator
	External     externalAuthenticator
	Sessions     sessionRefresher
	Termination  sessionTerminator
	Permissions  permissionLister
}

// AuthHandler wires HTTP endpoints to the identity flows.
type AuthHandler struct {
	services AuthServices
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(services AuthServices) *AuthHandler {
	return &AuthHandler{services: services}
}

func invalidPayload(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, http.StatusBadRequest, message)
}

// Register godoc
// @Summary Register account
// @Description Create a local account with a self-registrable role and open a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} models.AuthResult
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid registration payload"))
		return
	}
	req.IP = c.ClientIP()

	res, err := h.services.Registration.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email or username and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.AuthResult
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()

	res, err := h.services.Login.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// LoginExternal godoc
// @Summary Authenticate with an external identity provider
// @Description Exchange a verified OpenID Connect ID token for a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ExternalLoginRequest true "External login payload"
// @Success 200 {object} models.AuthResult
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login-external [post]
func (h *AuthHandler) LoginExternal(c *gin.Context) {
	if h.services.External == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "external login is not enabled"))
		return
	}

	var req models.ExternalLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid external login payload"))
		return
	}
	req.IP = c.ClientIP()

	res, err := h.services.External.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Refresh godoc
// @Summary Refresh session
// @Description Rotate a refresh token and issue a new token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh payload"
// @Success 200 {object} models.AuthResult
// @Failure 400 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid refresh payload"))
		return
	}
	req.IP = c.ClientIP()

	res, err := h.services.Sessions.Refresh(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Logout godoc
// @Summary Logout session
// @Description End the session identified by a refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LogoutRequest true "Logout payload"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "refresh token required"))
		return
	}
	req.IP = c.ClientIP()

	res, err := h.services.Termination.Logout(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated caller's id and roles
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.Data(c, http.StatusOK, models.UserInfo{ID: identity.UserID, Roles: identity.Roles})
}

// MyPermissions godoc
// @Summary List my permissions
// @Description Returns the capabilities granted to the authenticated caller
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me/permissions [get]
func (h *AuthHandler) MyPermissions(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	permissions, err := h.services.Permissions.ListForUser(c.Request.Context(), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Data(c, http.StatusOK, permissions)
}

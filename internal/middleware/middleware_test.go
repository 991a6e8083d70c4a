package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
	"github.com/noah-isme/stemkit-identity/pkg/response"
)

type verifierStub struct {
	claims *models.AccessClaims
	err    error
	got    string
}

func (v *verifierStub) VerifyAccessToken(token string) (*models.AccessClaims, error) {
	v.got = token
	return v.claims, v.err
}

type statusStub struct {
	active bool
	err    error
}

func (s statusStub) IsActive(ctx context.Context, userID string) (bool, error) {
	return s.active, s.err
}

type permissionStub map[string]bool

func (p permissionStub) HasPermission(ctx context.Context, userID, name string) (bool, error) {
	return p[name], nil
}

func customerClaims() *models.AccessClaims {
	claims := &models.AccessClaims{Roles: []string{models.RoleCustomer}}
	claims.Subject = "user-1"
	return claims
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		identity, _ := Identity(c)
		c.JSON(http.StatusOK, gin.H{"user": identity.UserID})
	})
	r.GET("/users/:id", handlers...)
	return r
}

func do(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestJWTRequiresBearerToken(t *testing.T) {
	verifier := &verifierStub{claims: customerClaims()}
	r := newRouter(JWT(verifier))

	w := do(r, "/users/user-1", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/users/user-1", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, decode(t, w).Success)

	w = do(r, "/users/user-1", "Bearer good-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "good-token", verifier.got)
}

func TestJWTRejectsInvalidToken(t *testing.T) {
	r := newRouter(JWT(&verifierStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")}))

	w := do(r, "/users/user-1", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, decode(t, w).Code)
}

func TestActiveUserBlocksBannedAccount(t *testing.T) {
	verifier := &verifierStub{claims: customerClaims()}

	w := do(newRouter(JWT(verifier), ActiveUser(statusStub{active: false})), "/users/user-1", "Bearer t")
	assert.Equal(t, http.StatusForbidden, w.Code)
	env := decode(t, w)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, env.Code)
	assert.Equal(t, "your account has been banned", env.Message)

	w = do(newRouter(JWT(verifier), ActiveUser(statusStub{active: true})), "/users/user-1", "Bearer t")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(newRouter(JWT(verifier), ActiveUser(statusStub{err: errors.New("db down")})), "/users/user-1", "Bearer t")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRBAC(t *testing.T) {
	verifier := &verifierStub{claims: customerClaims()}

	w := do(newRouter(JWT(verifier), RequireRoles(models.RoleManager)), "/users/other", "Bearer t")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(newRouter(JWT(verifier), RequireRoles("customer")), "/users/other", "Bearer t")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(newRouter(JWT(verifier), RBAC(models.RoleManager, SelfRole)), "/users/user-1", "Bearer t")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission(t *testing.T) {
	verifier := &verifierStub{claims: customerClaims()}
	checker := permissionStub{"profile.read": true}

	w := do(newRouter(JWT(verifier), RequirePermission(checker, "profile.read")), "/users/user-1", "Bearer t")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(newRouter(JWT(verifier), RequirePermission(checker, "users.ban")), "/users/user-1", "Bearer t")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type observerStub struct {
	path   string
	status int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.path = path
	o.status = status
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &observerStub{}
	r := newRouter(Metrics(observer), JWT(&verifierStub{claims: customerClaims()}))

	do(r, "/users/user-1", "Bearer t")
	assert.Equal(t, "/users/:id", observer.path)
	assert.Equal(t, http.StatusOK, observer.status)
}

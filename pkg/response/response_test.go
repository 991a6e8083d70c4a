package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestErrorRendersTypedError(t *testing.T) {
	c, w := newContext()

	Error(c, appErrors.ErrAlreadyBanned)

	require.Equal(t, http.StatusConflict, w.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, appErrors.ErrAlreadyBanned.Code, env.Code)
	assert.Empty(t, c.Errors)
}

func TestErrorNeverRendersCause(t *testing.T) {
	c, w := newContext()

	Error(c, appErrors.Opaque(errors.New("dial tcp 10.0.0.5:5432: secret host"), appErrors.ErrLoginFailed))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")

	c, w = newContext()
	Error(c, errors.New("panic-ish internal detail"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "internal detail")
	assert.Len(t, c.Errors, 1)
}

func TestDataDisablesCaching(t *testing.T) {
	c, w := newContext()

	Data(c, http.StatusOK, gin.H{"id": "u1"})

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"success":true,"data":{"id":"u1"}}`, w.Body.String())
}

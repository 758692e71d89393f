package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thekandidedit/core/internal/pkg/jwt"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	whoami := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"authenticated": IsAuthenticated(c),
			"user_id":       CurrentUserID(c),
		})
	}
	r.GET("/open", OptionalAuth(), whoami)
	r.GET("/admin", Auth(), whoami)
	return r
}

func getWithToken(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOptionalAuth(t *testing.T) {
	jwt.SetSecret("middleware-test-secret")
	r := newAuthRouter()

	token, err := jwt.Sign("user-1", time.Hour)
	require.NoError(t, err)

	// Anonymous callers pass through unauthenticated.
	w := getWithToken(r, "/open", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	// A garbage token is treated as anonymous, not rejected.
	w = getWithToken(r, "/open", "garbage")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	// A valid token resolves the identity.
	w = getWithToken(r, "/open", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
	assert.Contains(t, w.Body.String(), `"user_id":"user-1"`)
}

func TestAuthRejectsMissingOrBadToken(t *testing.T) {
	jwt.SetSecret("middleware-test-secret")
	r := newAuthRouter()

	assert.Equal(t, http.StatusUnauthorized, getWithToken(r, "/admin", "").Code)
	assert.Equal(t, http.StatusUnauthorized, getWithToken(r, "/admin", "garbage").Code)

	token, err := jwt.Sign("user-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, getWithToken(r, "/admin", token).Code)
}

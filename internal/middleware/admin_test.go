package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminTestSecret = "test-secret"

func adminRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.DELETE("/purge", Admin(secret), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func signedToken(t *testing.T, secret string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"exp": expires.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAdminAllowsValidToken(t *testing.T) {
	r := adminRouter(adminTestSecret)
	req := httptest.NewRequest(http.MethodDelete, "/purge", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, adminTestSecret, time.Now().Add(time.Hour)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAdminRejectsMissingHeader(t *testing.T) {
	r := adminRouter(adminTestSecret)
	req := httptest.NewRequest(http.MethodDelete, "/purge", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRejectsWrongSecret(t *testing.T) {
	r := adminRouter(adminTestSecret)
	req := httptest.NewRequest(http.MethodDelete, "/purge", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "other-secret", time.Now().Add(time.Hour)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRejectsExpiredToken(t *testing.T) {
	r := adminRouter(adminTestSecret)
	req := httptest.NewRequest(http.MethodDelete, "/purge", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, adminTestSecret, time.Now().Add(-time.Hour)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminDisabledWithoutSecret(t *testing.T) {
	r := adminRouter("")
	req := httptest.NewRequest(http.MethodDelete, "/purge", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, adminTestSecret, time.Now().Add(time.Hour)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticKeyProvider struct {
	secret []byte
}

func (p staticKeyProvider) Keyfunc(*jwt.Token) (interface{}, error) {
	return p.secret, nil
}

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func newAuthRouter(t *testing.T, secret []byte) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth := NewAuthWithProvider(zap.NewNop().Sugar(), staticKeyProvider{secret: secret})
	router := gin.New()
	router.GET("/whoami", auth.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userRef": c.GetString("userRef"), "username": c.GetString("username")})
	})
	return router
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	router := newAuthRouter(t, []byte("secret"))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareBadSignature(t *testing.T) {
	router := newAuthRouter(t, []byte("secret"))
	token := signToken(t, []byte("other-secret"), jwt.MapClaims{"preferred_username": "alice"})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(AuthHeaderKey, "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	router := newAuthRouter(t, []byte("secret"))
	token := signToken(t, []byte("secret"), jwt.MapClaims{
		"preferred_username": "alice",
		"exp":                time.Now().Add(-time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(AuthHeaderKey, "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareCanonicalizesUserRef(t *testing.T) {
	router := newAuthRouter(t, []byte("secret"))
	token := signToken(t, []byte("secret"), jwt.MapClaims{
		"preferred_username": "Alice",
		"email":              "alice@example.com",
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(AuthHeaderKey, "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userRef":"user:default/alice"`)
	assert.Contains(t, rec.Body.String(), `"username":"Alice"`)
}

func TestAuthMiddlewareSubjectFallback(t *testing.T) {
	router := newAuthRouter(t, []byte("secret"))
	token := signToken(t, []byte("secret"), jwt.MapClaims{"sub": "Service-Account-1"})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(AuthHeaderKey, "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userRef":"user:default/service-account-1"`)
}

func TestAuthMiddlewareNoIdentityClaim(t *testing.T) {
	router := newAuthRouter(t, []byte("secret"))
	token := signToken(t, []byte("secret"), jwt.MapClaims{"scope": "openid"})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(AuthHeaderKey, "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

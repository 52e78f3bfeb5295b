package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowEnforcesBurst(t *testing.T) {
	l := New(Config{Rate: 1, Burst: 2})
	defer l.Stop()

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "burst exhausted")
	assert.True(t, l.Allow("b"), "separate key has its own bucket")
}

func TestMiddlewareUsesIdentityKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := New(Config{Rate: 1, Burst: 1, IdentityKey: "userRef"})
	defer l.Stop()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if ref := c.GetHeader("X-Test-User"); ref != "" {
			c.Set("userRef", ref)
		}
	}, l.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do("user:default/alice"))
	require.Equal(t, http.StatusTooManyRequests, do("user:default/alice"))
	require.Equal(t, http.StatusOK, do("user:default/bob"), "different identity is not throttled")
}

func TestCleanupEvictsStaleEntries(t *testing.T) {
	l := New(Config{Rate: 1, Burst: 1, CleanupInterval: 10 * time.Millisecond, MaxAge: 10 * time.Millisecond})
	defer l.Stop()

	l.Allow("stale")
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		_, ok := l.entries["stale"]
		return !ok
	}, time.Second, 10*time.Millisecond)
}

package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(3)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.GET("/validate", rl.RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/validate", nil)
		req.RemoteAddr = ip + ":4321"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit("10.0.0.1"), "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))

	// Other clients have their own bucket.
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"))

	// One token comes back every 20s at 3/min.
	now = now.Add(20 * time.Second)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
}

func TestRateLimiter_DropsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"))

	now = now.Add(idleAfter + time.Second)
	assert.True(t, rl.allow("10.0.0.2"))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.ips, 1)
	assert.Contains(t, rl.ips, "10.0.0.2")
}

func TestRateLimiter_SweepsAtMostOncePerInterval(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	rl := NewRateLimiter(1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.Equal(t, start, rl.lastSweep)

	// No sweep is due yet.
	now = start.Add(idleAfter - time.Second)
	assert.True(t, rl.allow("10.0.0.2"))
	assert.Equal(t, start, rl.lastSweep)
	assert.Len(t, rl.ips, 2)

	now = start.Add(idleAfter + time.Second)
	assert.True(t, rl.allow("10.0.0.3"))
	assert.Equal(t, now, rl.lastSweep)
	assert.Len(t, rl.ips, 2)
	assert.NotContains(t, rl.ips, "10.0.0.1")
	assert.Contains(t, rl.ips, "10.0.0.2")
}

func TestStaffTokenMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(token string) *gin.Engine {
		r := gin.New()
		r.GET("/ws/tables", StaffTokenMiddleware(token), func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	do := func(r *gin.Engine, target string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusNotFound, do(newRouter(""), "/ws/tables"))
	assert.Equal(t, http.StatusNotFound, do(newRouter(""), "/ws/tables?token="))

	r := newRouter("s3cret")
	assert.Equal(t, http.StatusUnauthorized, do(r, "/ws/tables"))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/ws/tables?token=wrong"))
	assert.Equal(t, http.StatusOK, do(r, "/ws/tables?token=s3cret"))
}

func TestCORSMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(allowed []string) *gin.Engine {
		r := gin.New()
		r.Use(CORSMiddlewares(allowed))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	do := func(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/x", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	r := newRouter([]string{"https://menu.example.com"})

	w := do(r, http.MethodGet, "https://menu.example.com/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://menu.example.com/", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = do(r, http.MethodGet, "https://evil.example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, http.MethodOptions, "https://menu.example.com")
	assert.Equal(t, http.StatusNoContent, w.Code)

	open := newRouter(nil)
	w = do(open, http.MethodGet, "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, production := range []bool{false, true} {
		r := gin.New()
		r.Use(SecurityHeaders(production))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		if production {
			assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
		} else {
			assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
		}
	}
}

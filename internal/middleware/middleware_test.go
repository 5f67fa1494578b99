package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sudo-init-do/masterhub/internal/utils"
)

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get("user_id"), "role": c.Get("role")})
}

func TestJWTMiddleware(t *testing.T) {
	tokens := utils.NewTokenManager("mw-secret", time.Hour)
	tok, _ := tokens.Issue("u-1", "customer")

	e := echo.New()
	e.GET("/me", whoami, JWTMiddleware(tokens))

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"bearer", "/me", "Bearer " + tok, http.StatusOK},
		{"lowercase scheme", "/me", "bearer " + tok, http.StatusOK},
		{"query token", "/me?token=" + tok, "", http.StatusOK},
		{"missing", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func withRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if role != "" {
				c.Set("role", role)
			}
			return next(c)
		}
	}
}

func TestRoleGuards(t *testing.T) {
	cases := []struct {
		role      string
		wantAdmin int
		wantShop  int
	}{
		{"admin", http.StatusOK, http.StatusOK},
		{"master", http.StatusForbidden, http.StatusOK},
		{"customer", http.StatusForbidden, http.StatusForbidden},
		{"", http.StatusForbidden, http.StatusForbidden},
	}
	for _, tc := range cases {
		e := echo.New()
		e.GET("/admin", whoami, withRole(tc.role), AdminGuard)
		e.GET("/shop", whoami, withRole(tc.role), RequireRoles("master", "admin"))

		for path, want := range map[string]int{"/admin": tc.wantAdmin, "/shop": tc.wantShop} {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != want {
				t.Errorf("role %q %s: status %d, want %d", tc.role, path, rec.Code, want)
			}
		}
	}
}

func TestRateLimiterInMemory(t *testing.T) {
	e := echo.New()
	e.POST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimiter(nil, 3, nil))

	var codes []int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[2] != http.StatusOK || codes[4] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// Limits are per client IP.
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "198.51.100.1:5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("second client: %d", rec.Code)
	}
}

func TestRedisRateLimiterStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" || testing.Short() {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	store := NewRedisRateLimiterStore(client, 2, time.Minute, nil)
	store.prefix = "ratelimit-test:" + time.Now().Format("150405.000000") + ":"
	id := "10.0.0.1"
	for i, want := range []bool{true, true, false} {
		ok, err := store.Allow(id)
		if err != nil {
			t.Fatal(err)
		}
		if ok != want {
			t.Fatalf("call %d: allowed=%v", i, ok)
		}
	}
}

func TestRateLimiterRedisDownLetsRequestsThrough(t *testing.T) {
	// Nothing listens on port 1; every Redis call fails fast.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	e := echo.New()
	e.POST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		RateLimiter(client, 1, zap.New(core)))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	if n := logs.FilterMessage("rate limiter store unavailable, allowing request").Len(); n != 3 {
		t.Fatalf("warnings logged = %d", n)
	}
}

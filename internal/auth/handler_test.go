package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	mware "github.com/sudo-init-do/masterhub/internal/middleware"
	"github.com/sudo-init-do/masterhub/internal/user"
	"github.com/sudo-init-do/masterhub/internal/utils"
)

type harness struct {
	e      *echo.Echo
	users  *user.MemoryStore
	tokens *utils.TokenManager
}

func newHarness(secret string) *harness {
	users := user.NewMemoryStore()
	tokens := utils.NewTokenManager("auth-test", time.Hour)
	e := echo.New()
	e.Validator = utils.NewRequestValidator()
	pub := e.Group("/auth")
	api := e.Group("", mware.JWTMiddleware(tokens))
	NewHandler(users, tokens, secret, nil).Register(pub, api)
	return &harness{e: e, users: users, tokens: tokens}
}

func (h *harness) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func decodeToken(t *testing.T, rec *httptest.ResponseRecorder) TokenResponse {
	t.Helper()
	var out TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return out
}

func TestSignupAndLogin(t *testing.T) {
	h := newHarness("")

	rec := h.do(t, http.MethodPost, "/auth/signup",
		`{"name":"Ada","email":"Ada@Example.com","password":"secret1"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatal("password hash leaked in response")
	}
	signed := decodeToken(t, rec)
	if signed.User.Role != "customer" || signed.User.Email != "ada@example.com" {
		t.Fatalf("user = %+v", signed.User)
	}
	claims, err := h.tokens.Parse(signed.Token)
	if err != nil || claims.UserID != signed.User.ID {
		t.Fatalf("token claims %+v, err %v", claims, err)
	}

	if rec := h.do(t, http.MethodPost, "/auth/signup",
		`{"name":"Ada Two","email":"ada@example.com","password":"secret1"}`, ""); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: %d", rec.Code)
	}

	rec = h.do(t, http.MethodPost, "/auth/login", `{"email":"ADA@example.com","password":"secret1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}
	tok := decodeToken(t, rec).Token

	if rec := h.do(t, http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"wrong-pass"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}
	if rec := h.do(t, http.MethodPost, "/auth/login", `{"email":"nobody@example.com","password":"secret1"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email: %d", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/auth/me", "", tok)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"Ada"`) {
		t.Fatalf("me: %d %s", rec.Code, rec.Body)
	}
	if rec := h.do(t, http.MethodGet, "/auth/me", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: %d", rec.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	h := newHarness("")
	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"name":`, http.StatusBadRequest},
		{"short password", `{"name":"Bo","email":"bo@example.com","password":"123"}`, http.StatusUnprocessableEntity},
		{"bad email", `{"name":"Bo","email":"bo","password":"secret1"}`, http.StatusUnprocessableEntity},
		{"admin role", `{"name":"Bo","email":"bo@example.com","password":"secret1","role":"admin"}`, http.StatusUnprocessableEntity},
		{"master role", `{"name":"Bo","email":"bo@example.com","password":"secret1","role":"master"}`, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := h.do(t, http.MethodPost, "/auth/signup", tc.body, ""); rec.Code != tc.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestLoginSuspended(t *testing.T) {
	h := newHarness("")
	rec := h.do(t, http.MethodPost, "/auth/signup", `{"name":"Cy","email":"cy@example.com","password":"secret1"}`, "")
	id := decodeToken(t, rec).User.ID
	if err := h.users.SetActive(context.Background(), id, false); err != nil {
		t.Fatal(err)
	}
	if rec := h.do(t, http.MethodPost, "/auth/login", `{"email":"cy@example.com","password":"secret1"}`, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("suspended login: %d", rec.Code)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	disabled := newHarness("")
	if rec := disabled.do(t, http.MethodPost, "/auth/bootstrap-admin", `{"email":"a@example.com","secret":"x"}`, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("disabled bootstrap: %d", rec.Code)
	}

	h := newHarness("let-me-in")
	h.do(t, http.MethodPost, "/auth/signup", `{"name":"Dee","email":"dee@example.com","password":"secret1"}`, "")

	if rec := h.do(t, http.MethodPost, "/auth/bootstrap-admin", `{"email":"dee@example.com","secret":"nope"}`, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("wrong secret: %d", rec.Code)
	}
	if rec := h.do(t, http.MethodPost, "/auth/bootstrap-admin", `{"email":"ghost@example.com","secret":"let-me-in"}`, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: %d", rec.Code)
	}
	if rec := h.do(t, http.MethodPost, "/auth/bootstrap-admin", `{"email":"dee@example.com","secret":"let-me-in"}`, ""); rec.Code != http.StatusOK {
		t.Fatalf("bootstrap: %d %s", rec.Code, rec.Body)
	}
	u, err := h.users.GetByEmail(context.Background(), "dee@example.com")
	if err != nil || u.Role != "admin" {
		t.Fatalf("role = %v, err %v", u, err)
	}
}

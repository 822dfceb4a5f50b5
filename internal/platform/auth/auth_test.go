package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func signToken(t *testing.T, secret []byte, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	secret := []byte("test-secret")
	tokenStr := signToken(t, secret, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name:  "Dr. Reed",
		Roles: []string{"physician"},
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Principal
	h := JWTMiddleware(JWTConfig{SigningKey: secret})(func(c echo.Context) error {
		got = PrincipalFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", got.UserID)
	}
	if got.Name != "Dr. Reed" {
		t.Errorf("expected display name, got %q", got.Name)
	}
	if !got.HasRole("physician") {
		t.Error("expected physician role")
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	h := JWTMiddleware(JWTConfig{SigningKey: []byte("x")})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	err := h(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_BadToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	c := e.NewContext(req, httptest.NewRecorder())

	h := JWTMiddleware(JWTConfig{SigningKey: []byte("x")})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	err := h(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(p Principal, roles ...string) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithPrincipal(context.Background(), p))
		c := e.NewContext(req, httptest.NewRecorder())
		h := RequireRole(roles...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		return h(c)
	}

	if err := run(Principal{Roles: []string{"physician"}}, "physician"); err != nil {
		t.Errorf("physician should pass: %v", err)
	}
	if err := run(Principal{Roles: []string{"admin"}}, "physician"); err != nil {
		t.Errorf("admin should pass any role check: %v", err)
	}
	err := run(Principal{Roles: []string{"medical_assistant"}}, "physician")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestPrincipalFromContext_Empty(t *testing.T) {
	p := PrincipalFromContext(context.Background())
	if p.UserID != "" || len(p.Roles) != 0 {
		t.Errorf("expected zero principal, got %+v", p)
	}
}

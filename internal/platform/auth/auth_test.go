package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, key []byte, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return token
}

func protectedServer(skipper func(echo.Context) bool) *echo.Echo {
	e := echo.New()
	e.Use(JWTMiddleware(testKey, skipper))
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func request(e *echo.Echo, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token := signToken(t, testKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"scheduler"},
	})

	rec := request(protectedServer(nil), "/ping", "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestJWTMiddleware_PopulatesContext(t *testing.T) {
	token := signToken(t, testKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"admin"},
	})

	e := echo.New()
	e.Use(JWTMiddleware(testKey, nil))
	e.GET("/whoami", func(c echo.Context) error {
		if got := c.Get(UserIDKey); got != "user-1" {
			t.Errorf("user id = %v, want user-1", got)
		}
		roles, _ := c.Get(UserRolesKey).([]string)
		if len(roles) != 1 || roles[0] != "admin" {
			t.Errorf("roles = %v, want [admin]", roles)
		}
		return c.NoContent(http.StatusOK)
	})

	if rec := request(e, "/whoami", "Bearer "+token); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	expired := signToken(t, testKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongKey := signToken(t, []byte("other-key"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	cases := []struct {
		name  string
		authz string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
	}
	e := protectedServer(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := request(e, "/ping", tc.authz); rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestJWTMiddleware_SkipperBypassesAuth(t *testing.T) {
	rec := request(protectedServer(HealthSkipper), "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for skipped path", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	newServer := func(roles []string) *echo.Echo {
		e := echo.New()
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				c.Set(UserRolesKey, roles)
				return next(c)
			}
		})
		e.GET("/admin", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		}, RequireRole("admin", "scheduler"))
		return e
	}

	if rec := request(newServer([]string{"scheduler"}), "/admin", ""); rec.Code != http.StatusOK {
		t.Errorf("scheduler role: status = %d, want 200", rec.Code)
	}
	if rec := request(newServer([]string{"viewer"}), "/admin", ""); rec.Code != http.StatusForbidden {
		t.Errorf("viewer role: status = %d, want 403", rec.Code)
	}
	if rec := request(newServer(nil), "/admin", ""); rec.Code != http.StatusForbidden {
		t.Errorf("no roles: status = %d, want 403", rec.Code)
	}
}

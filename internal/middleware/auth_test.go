package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type fakePermissions struct {
	byRole map[string][]string
	calls  int
	err    error
}

func (f *fakePermissions) GetPermissionsByRoleName(_ context.Context, role string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byRole[role], nil
}

func signToken(t *testing.T, secret, sub, role string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  exp.Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func newRouter(perms ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequirePermission(perms...), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return r
}

func TestRequirePermission(t *testing.T) {
	source := &fakePermissions{byRole: map[string][]string{
		"accounts":   {"cargo.read", "invoices.write"},
		"dispatcher": {"cargo.read"},
	}}
	Init("secret", source)
	r := newRouter("invoices.write")
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bad scheme", "Token abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + signToken(t, "other", "u1", "accounts", future), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, "secret", "u1", "accounts", time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"missing permission", "Bearer " + signToken(t, "secret", "u2", "dispatcher", future), http.StatusForbidden},
		{"granted", "Bearer " + signToken(t, "secret", "u1", "accounts", future), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK && w.Body.String() != "u1" {
				t.Errorf("user id not exposed to handler: %q", w.Body.String())
			}
		})
	}
}

func TestRequirePermission_CachesPerRoleAndReadsCookie(t *testing.T) {
	source := &fakePermissions{byRole: map[string][]string{"accounts": {"cargo.read"}}}
	Init("secret", source)
	r := newRouter("cargo.read")
	token := signToken(t, "secret", "u1", "accounts", time.Now().Add(time.Hour))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookie, Value: token})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
	if source.calls != 1 {
		t.Errorf("permission source hit %d times, want 1", source.calls)
	}
}

func TestRequirePermission_SourceFailure(t *testing.T) {
	Init("secret", &fakePermissions{err: errors.New("db down")})
	r := newRouter("cargo.read")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", "u1", "accounts", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

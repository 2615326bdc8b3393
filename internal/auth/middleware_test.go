package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAuthMiddleware_NoToken(t *testing.T) {
	secret := []byte("test-secret")
	policy := NewDefaultPolicy(nil, nil)
	mw := NewMiddleware(secret, policy)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/c1/statement", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthMiddleware_ExemptPath(t *testing.T) {
	mw := NewMiddleware([]byte("test-secret"), NewDefaultPolicy([]string{"/healthz"}, nil))
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAuthMiddleware_Roles(t *testing.T) {
	secret := []byte("test-secret")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))

	cases := []struct {
		name   string
		role   string
		method string
		path   string
		want   int
	}{
		{"viewer reads statement", "viewer", http.MethodGet, "/api/v1/clients/c1/statement", http.StatusOK},
		{"viewer cannot export", "viewer", http.MethodGet, "/api/v1/clients/c1/statement/export.pdf", http.StatusForbidden},
		{"accountant exports", "accountant", http.MethodGet, "/api/v1/clients/c1/statement/export.xlsx", http.StatusOK},
		{"viewer cannot record payment", "viewer", http.MethodPost, "/api/v1/payments", http.StatusForbidden},
		{"accountant records payment", "accountant", http.MethodPost, "/api/v1/payments", http.StatusOK},
		{"accountant cannot delete receivable", "accountant", http.MethodDelete, "/api/v1/receivables/r1", http.StatusForbidden},
		{"admin deletes receivable", "admin", http.MethodDelete, "/api/v1/receivables/r1", http.StatusOK},
		{"unknown role rejected", "owner", http.MethodGet, "/api/v1/clients/c1/statement", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotSubject string
			var gotRole Role
			handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSubject = SubjectFromContext(r.Context())
				gotRole = RoleFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("Authorization", "Bearer "+mustToken(t, secret, tc.role))
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.Code)
			}
			if tc.want == http.StatusOK {
				if gotSubject != "user-1" {
					t.Fatalf("expected subject user-1, got %q", gotSubject)
				}
				if string(gotRole) != tc.role {
					t.Fatalf("expected role %s, got %s", tc.role, gotRole)
				}
			}
		})
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	mw := NewMiddleware([]byte("test-secret"), NewDefaultPolicy(nil, nil))
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/c1/statement", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, []byte("other"), "admin"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthMiddleware_DeniedBody(t *testing.T) {
	secret := []byte("test-secret")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name  string
		token string
		want  string
	}{
		{"no token", "", "auth: bearer token required"},
		{"tampered token", mustToken(t, []byte("other"), "admin"), "auth: invalid bearer token"},
		{"role too low", mustToken(t, secret, "viewer"), "auth: role may not perform this billing action: accountant role required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			var body struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Success || body.Message != tc.want {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestParseJWT_RejectsTokenWithoutSubject(t *testing.T) {
	secret := []byte("test-secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "admin"})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	_, err = ParseJWT(signed, secret)
	if !errors.Is(err, ErrInvalidToken) || !strings.Contains(err.Error(), "no subject") {
		t.Fatalf("expected missing subject error, got %v", err)
	}
}

func mustToken(t *testing.T, secret []byte, role string) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

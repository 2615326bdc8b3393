package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Middleware admits desk requests whose token role meets the route's requirement.
type Middleware struct {
	Secret []byte
	Policy Policy
}

// NewMiddleware constructs the desk auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{Secret: secret, Policy: policy}
}

// Wrap rejects with 401 when the token is missing or bad and with 403 when the
// role is too low. Admitted requests carry the role and subject in their context.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}

		required, ok := m.Policy.RequiredRole(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearer(r)
		claims, err := ParseJWT(token, m.Secret)
		if err != nil {
			writeDenied(w, http.StatusUnauthorized, err)
			return
		}
		role, _ := NormalizeRole(claims.Role)
		if !RoleAtLeast(role, required) {
			writeDenied(w, http.StatusForbidden, fmt.Errorf("%w: %s role required", ErrForbidden, required))
			return
		}
		ctx := WithIdentity(r.Context(), role, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeDenied answers in the desk envelope. Token parse details stay out of the body.
func writeDenied(w http.ResponseWriter, status int, err error) {
	message := ErrInvalidToken.Error()
	switch {
	case errors.Is(err, ErrUnauthorized):
		message = ErrUnauthorized.Error()
	case errors.Is(err, ErrForbidden):
		message = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}

func extractBearer(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if r.Method == http.MethodOptions {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves required role for the request.
//
// Reading a statement needs viewer. Exports, printing and ledger edits need
// accountant. Deleting a receivable needs admin.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case strings.HasPrefix(path, "/api/v1/clients/") && strings.Contains(path, "/statement/"):
		return RoleAccountant, true
	case strings.HasPrefix(path, "/api/v1/clients/"):
		return RoleViewer, true
	case strings.HasPrefix(path, "/api/v1/receivables"):
		if method == http.MethodDelete {
			return RoleAdmin, true
		}
		if method == http.MethodGet {
			return RoleViewer, true
		}
		return RoleAccountant, true
	case strings.HasPrefix(path, "/api/v1/payments"),
		strings.HasPrefix(path, "/api/v1/credits/"),
		strings.HasPrefix(path, "/api/v1/tasks/"):
		if method == http.MethodGet {
			return RoleViewer, true
		}
		return RoleAccountant, true
	}

	if strings.HasPrefix(path, "/api/") {
		if method == http.MethodGet || method == http.MethodHead {
			return RoleViewer, true
		}
		return RoleAccountant, true
	}
	return "", false
}

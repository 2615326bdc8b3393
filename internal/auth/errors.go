// Package auth checks the bearer tokens the billing desk front end sends. Viewers
// read statements. Exports and recording payments need an accountant, and
// deleting a receivable needs an admin.
package auth

import "errors"

var (
	// ErrUnauthorized is a request with no bearer token.
	ErrUnauthorized = errors.New("auth: bearer token required")

	// ErrForbidden is a valid token whose role is too low for the ledger action.
	ErrForbidden = errors.New("auth: role may not perform this billing action")

	// ErrInvalidToken covers bad signatures, expired tokens and unknown roles.
	ErrInvalidToken = errors.New("auth: invalid bearer token")
)

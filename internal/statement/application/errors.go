package application

import (
	"errors"
	"sort"
	"strings"
)

// ErrEmptyClientID is returned when a statement is requested without a client.
var ErrEmptyClientID = errors.New("statement service: empty client id")

// ValidationError reports request fields that failed validation.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+" "+e.Fields[key])
	}
	return "mutation service: invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

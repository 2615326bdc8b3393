package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-desk/internal/backend"
	"billing-desk/internal/config"
	"billing-desk/internal/statement/application"
	"billing-desk/internal/statement/export"
	statementhttp "billing-desk/internal/statement/interfaces/http"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	client, err := backend.NewClient("http://127.0.0.1:1", "")
	require.NoError(t, err)
	statements, err := application.NewStatementService(client, nil, export.NewRegistry(export.DefaultProfile()), nil, zerolog.Nop())
	require.NoError(t, err)
	mutations, err := application.NewMutationService(client, statements, zerolog.Nop())
	require.NoError(t, err)
	handler, err := statementhttp.NewHandler(statements, mutations, nil, 10, zerolog.Nop())
	require.NoError(t, err)

	cfg := &config.Config{
		AppEnv:             "development",
		AuthJWTSecret:      "secret",
		CORSAllowedOrigins: []string{"https://desk.example"},
	}
	return newRouter(cfg, handler, zerolog.Nop())
}

func TestHealthzIsPublic(t *testing.T) {
	router := testRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestStatementRequiresToken(t *testing.T) {
	router := testRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/clients/c1/statement", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"auth: bearer token required"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	router := testRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/payments", nil)
	req.Header.Set("Origin", "https://desk.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://desk.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

package audit

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestJSON(t *testing.T) {
	assert.Empty(t, DigestJSON(nil))
	assert.Equal(t, DigestJSON([]byte(`{"a":1}`)), DigestJSON([]byte(`{"a":1}`)))
	assert.Len(t, DigestJSON([]byte(`{"a":1}`)), 64)
}

func TestLogWriterFillsEntry(t *testing.T) {
	var buf bytes.Buffer
	writer := NewLogWriter(zerolog.New(&buf))

	err := writer.Log(context.Background(), Entry{
		Actor:        "user-1",
		Role:         "accountant",
		Action:       "statement.export",
		ResourceType: "statement",
		ResourceID:   "c1",
		ClientID:     "c1",
		Metadata:     json.RawMessage(`{"format":"pdf"}`),
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "audit", line["component"])
	assert.Equal(t, "statement.export", line["action"])
	assert.Equal(t, "c1", line["client_id"])
	assert.NotEmpty(t, line["audit_id"])
	assert.Equal(t, DigestJSON([]byte(`{"format":"pdf"}`)), line["payload_digest"])
}

func TestNilRepository(t *testing.T) {
	assert.Nil(t, NewRepository(nil))
	var repo *Repository
	assert.Error(t, repo.Log(context.Background(), Entry{}))
}

func TestRepositoryPostgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))

	entry := Entry{
		ID:           NewID(),
		Actor:        "user-1",
		Role:         "admin",
		Action:       "receivable.delete",
		ResourceType: "receivable",
		ResourceID:   "r1",
		ClientID:     "c1",
		Metadata:     json.RawMessage(`{"reason":"test"}`),
	}
	require.NoError(t, repo.Log(ctx, entry))

	var action string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT action FROM audit_logs WHERE id = $1`, entry.ID).Scan(&action))
	assert.Equal(t, "receivable.delete", action)
	_, _ = db.ExecContext(ctx, `DELETE FROM audit_logs WHERE id = $1`, entry.ID)
}

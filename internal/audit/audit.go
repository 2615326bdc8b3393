package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Entry represents an audit log entry.
type Entry struct {
	ID            string
	Actor         string
	Role          string
	Action        string
	ResourceType  string
	ResourceID    string
	ClientID      string
	Metadata      json.RawMessage
	PayloadDigest string
	IP            string
	UserAgent     string
	CreatedAt     time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewID generates a random audit id.
func NewID() string {
	return uuid.NewString()
}

// DigestJSON computes a SHA256 hex digest for metadata payloads.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (e *Entry) fill() {
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.PayloadDigest == "" {
		e.PayloadDigest = DigestJSON(e.Metadata)
	}
}

// LogWriter writes audit entries to a zerolog logger. It is used when no
// database is configured.
type LogWriter struct {
	logger zerolog.Logger
}

// NewLogWriter constructs a log-backed audit writer.
func NewLogWriter(logger zerolog.Logger) *LogWriter {
	return &LogWriter{logger: logger.With().Str("component", "audit").Logger()}
}

// Log writes an audit entry.
func (w *LogWriter) Log(_ context.Context, entry Entry) error {
	if w == nil {
		return nil
	}
	entry.fill()
	w.logger.Info().
		Str("audit_id", entry.ID).
		Str("actor", entry.Actor).
		Str("role", entry.Role).
		Str("action", entry.Action).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Str("client_id", entry.ClientID).
		Str("payload_digest", entry.PayloadDigest).
		Str("ip", entry.IP).
		Str("user_agent", entry.UserAgent).
		Time("created_at", entry.CreatedAt).
		Msg("audit")
	return nil
}

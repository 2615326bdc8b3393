package application

import (
	"context"
	"encoding/json"
	"time"

	"billing-desk/internal/backend"
	statement "billing-desk/internal/statement/domain"
	"billing-desk/internal/statement/export"
)

// SnapshotSource loads a client's statement from the billing backend.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, clientID string) (statement.Snapshot, error)
}

// SnapshotCache stores fetched snapshots between reads.
type SnapshotCache interface {
	Get(ctx context.Context, clientID string) (statement.Snapshot, bool, error)
	Set(ctx context.Context, snapshot statement.Snapshot) error
	Invalidate(ctx context.Context, clientID string) error
}

// Exporter renders a computed view into a document.
type Exporter interface {
	Render(view statement.View, format export.Format) (export.Document, error)
}

// LedgerWriter forwards ledger edits to the billing backend.
type LedgerWriter interface {
	CreateReceivable(ctx context.Context, in backend.ReceivableInput) (json.RawMessage, error)
	UpdateReceivable(ctx context.Context, in backend.ReceivableInput) (json.RawMessage, error)
	DeleteReceivable(ctx context.Context, id string, guard backend.Guard) (json.RawMessage, error)
	RecordPayment(ctx context.Context, in backend.PaymentInput) (json.RawMessage, error)
	ApplyCredit(ctx context.Context, in backend.CreditApplyInput) (json.RawMessage, error)
	UpdateCredit(ctx context.Context, in backend.CreditUpdateInput) (json.RawMessage, error)
	UpdateTaskAmount(ctx context.Context, in backend.TaskAmountInput) (json.RawMessage, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type noCache struct{}

func (noCache) Get(context.Context, string) (statement.Snapshot, bool, error) {
	return statement.Snapshot{}, false, nil
}

func (noCache) Set(context.Context, statement.Snapshot) error { return nil }

func (noCache) Invalidate(context.Context, string) error { return nil }

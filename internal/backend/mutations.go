package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	statement "billing-desk/internal/statement/domain"
)

// Guard is sent with every edit so the backend can detect stale writes and apply the
// user's answers to an earlier conflict. Conflict is the conflict being answered; it
// stays local and is only used to check the resolutions before they are forwarded.
type Guard struct {
	ExpectedUpdatedAt string                 `json:"expected_updated_at,omitempty"`
	Resolutions       []statement.Resolution `json:"resolutions,omitempty" validate:"omitempty,dive"`
	Conflict          statement.Conflict     `json:"-" validate:"-"`
}

// ReceivableInput creates or edits a receivable.
type ReceivableInput struct {
	ID          string          `json:"-"`
	ClientID    string          `json:"client_id" validate:"required,max=64"`
	TaskID      string          `json:"task_id,omitempty" validate:"max=64"`
	Description string          `json:"description" validate:"required,max=500"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     string          `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Guard
}

// PaymentInput records a payment against a receivable.
type PaymentInput struct {
	ClientID     string          `json:"client_id" validate:"required,max=64"`
	ReceivableID string          `json:"receivable_id" validate:"required,max=64"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"payment_method" validate:"required,oneof=cash bank_transfer cheque card other"`
	PaymentDate  string          `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes        string          `json:"notes,omitempty" validate:"max=500"`
}

// CreditApplyInput allocates client credit to a receivable.
type CreditApplyInput struct {
	CreditID     string          `json:"-"`
	ClientID     string          `json:"client_id" validate:"required,max=64"`
	ReceivableID string          `json:"receivable_id" validate:"required,max=64"`
	Amount       decimal.Decimal `json:"amount"`
	Guard
}

// CreditUpdateInput edits the amount or description of a credit.
type CreditUpdateInput struct {
	CreditID    string          `json:"-"`
	ClientID    string          `json:"client_id" validate:"required,max=64"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty" validate:"max=500"`
	Guard
}

// TaskAmountInput changes the amount of a task and with it its receivable.
type TaskAmountInput struct {
	TaskID   string          `json:"-"`
	ClientID string          `json:"client_id" validate:"required,max=64"`
	Amount   decimal.Decimal `json:"amount"`
	Guard
}

// CreateReceivable posts a new receivable. The backend's answer is returned as is.
func (c *Client) CreateReceivable(ctx context.Context, in ReceivableInput) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodPost, "/receivables", in, &out)
	return out, err
}

// UpdateReceivable edits a receivable.
func (c *Client) UpdateReceivable(ctx context.Context, in ReceivableInput) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodPut, "/receivables/"+url.PathEscape(in.ID), in, &out)
	return out, err
}

// DeleteReceivable removes a receivable.
func (c *Client) DeleteReceivable(ctx context.Context, id string, guard Guard) (json.RawMessage, error) {
	var body any
	if guard.ExpectedUpdatedAt != "" || len(guard.Resolutions) > 0 {
		body = guard
	}
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodDelete, "/receivables/"+url.PathEscape(id), body, &out)
	return out, err
}

// RecordPayment posts a payment.
func (c *Client) RecordPayment(ctx context.Context, in PaymentInput) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodPost, "/payments", in, &out)
	return out, err
}

// ApplyCredit allocates credit to a receivable.
func (c *Client) ApplyCredit(ctx context.Context, in CreditApplyInput) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodPost, "/credits/"+url.PathEscape(in.CreditID)+"/apply", in, &out)
	return out, err
}

// UpdateCredit edits a credit.
func (c *Client) UpdateCredit(ctx context.Context, in CreditUpdateInput) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodPut, "/credits/"+url.PathEscape(in.CreditID), in, &out)
	return out, err
}

// UpdateTaskAmount changes a task amount.
func (c *Client) UpdateTaskAmount(ctx context.Context, in TaskAmountInput) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(in.TaskID)+"/amount", in, &out)
	return out, err
}

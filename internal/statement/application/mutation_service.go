package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing-desk/internal/backend"
	"billing-desk/internal/observability/metrics"
	statement "billing-desk/internal/statement/domain"
)

// Mutation actions, used as metric labels and audit actions.
const (
	ActionCreateReceivable = "create_receivable"
	ActionUpdateReceivable = "update_receivable"
	ActionDeleteReceivable = "delete_receivable"
	ActionRecordPayment    = "record_payment"
	ActionApplyCredit      = "apply_credit"
	ActionUpdateCredit     = "update_credit"
	ActionUpdateTaskAmount = "update_task_amount"
)

// Invalidator drops cached statements after a ledger edit.
type Invalidator interface {
	Invalidate(ctx context.Context, clientID string) error
}

// MutationService validates ledger edits, forwards them to the backend and
// invalidates the affected client's statement on success.
type MutationService struct {
	writer      LedgerWriter
	invalidator Invalidator
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewMutationService constructs the service.
func NewMutationService(writer LedgerWriter, invalidator Invalidator, logger zerolog.Logger) (*MutationService, error) {
	if writer == nil {
		return nil, errors.New("mutation service: nil ledger writer")
	}
	if invalidator == nil {
		invalidator = noCache{}
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &MutationService{
		writer:      writer,
		invalidator: invalidator,
		validate:    validate,
		logger:      logger,
	}, nil
}

// CreateReceivable adds a receivable for a client.
func (s *MutationService) CreateReceivable(ctx context.Context, in backend.ReceivableInput) (json.RawMessage, error) {
	return s.run(ctx, ActionCreateReceivable, in.ClientID, in, &in.Amount, &in.Guard, func() (json.RawMessage, error) {
		return s.writer.CreateReceivable(ctx, in)
	})
}

// UpdateReceivable edits a receivable.
func (s *MutationService) UpdateReceivable(ctx context.Context, in backend.ReceivableInput) (json.RawMessage, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, &ValidationError{Fields: map[string]string{"id": "is required"}}
	}
	return s.run(ctx, ActionUpdateReceivable, in.ClientID, in, &in.Amount, &in.Guard, func() (json.RawMessage, error) {
		return s.writer.UpdateReceivable(ctx, in)
	})
}

// DeleteReceivable removes a receivable of a client.
func (s *MutationService) DeleteReceivable(ctx context.Context, clientID, receivableID string, guard backend.Guard) (json.RawMessage, error) {
	fields := map[string]string{}
	if strings.TrimSpace(clientID) == "" {
		fields["client_id"] = "is required"
	}
	if strings.TrimSpace(receivableID) == "" {
		fields["id"] = "is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return s.run(ctx, ActionDeleteReceivable, clientID, guard, nil, &guard, func() (json.RawMessage, error) {
		return s.writer.DeleteReceivable(ctx, receivableID, guard)
	})
}

// RecordPayment records a payment against a receivable.
func (s *MutationService) RecordPayment(ctx context.Context, in backend.PaymentInput) (json.RawMessage, error) {
	return s.run(ctx, ActionRecordPayment, in.ClientID, in, &in.Amount, nil, func() (json.RawMessage, error) {
		return s.writer.RecordPayment(ctx, in)
	})
}

// ApplyCredit allocates client credit to a receivable.
func (s *MutationService) ApplyCredit(ctx context.Context, in backend.CreditApplyInput) (json.RawMessage, error) {
	if strings.TrimSpace(in.CreditID) == "" {
		return nil, &ValidationError{Fields: map[string]string{"credit_id": "is required"}}
	}
	return s.run(ctx, ActionApplyCredit, in.ClientID, in, &in.Amount, &in.Guard, func() (json.RawMessage, error) {
		return s.writer.ApplyCredit(ctx, in)
	})
}

// UpdateCredit edits a credit.
func (s *MutationService) UpdateCredit(ctx context.Context, in backend.CreditUpdateInput) (json.RawMessage, error) {
	if strings.TrimSpace(in.CreditID) == "" {
		return nil, &ValidationError{Fields: map[string]string{"credit_id": "is required"}}
	}
	return s.run(ctx, ActionUpdateCredit, in.ClientID, in, &in.Amount, &in.Guard, func() (json.RawMessage, error) {
		return s.writer.UpdateCredit(ctx, in)
	})
}

// UpdateTaskAmount changes a task amount.
func (s *MutationService) UpdateTaskAmount(ctx context.Context, in backend.TaskAmountInput) (json.RawMessage, error) {
	if strings.TrimSpace(in.TaskID) == "" {
		return nil, &ValidationError{Fields: map[string]string{"task_id": "is required"}}
	}
	return s.run(ctx, ActionUpdateTaskAmount, in.ClientID, in, &in.Amount, &in.Guard, func() (json.RawMessage, error) {
		return s.writer.UpdateTaskAmount(ctx, in)
	})
}

// run validates the input, forwards the call and invalidates the client's snapshot on
// success. A nil amount is not checked.
func (s *MutationService) run(
	ctx context.Context,
	action string,
	clientID string,
	input any,
	amount *decimal.Decimal,
	guard *backend.Guard,
	call func() (json.RawMessage, error),
) (json.RawMessage, error) {
	if err := s.check(ctx, input, amount, guard); err != nil {
		metrics.IncMutation(action, metrics.ResultError)
		return nil, err
	}

	out, err := call()
	if err != nil {
		var conflictErr *backend.ConflictError
		if errors.As(err, &conflictErr) {
			metrics.IncMutation(action, metrics.ResultConflict)
			metrics.IncConflict(string(conflictErr.Conflict.Kind()))
			s.logger.Info().
				Str("action", action).
				Str("client_id", clientID).
				Str("conflict_type", string(conflictErr.Conflict.Kind())).
				Msg("mutation conflict")
			return nil, err
		}
		metrics.IncMutation(action, metrics.ResultError)
		s.logger.Warn().Err(err).Str("action", action).Str("client_id", clientID).Msg("mutation failed")
		return nil, err
	}

	metrics.IncMutation(action, metrics.ResultSuccess)
	if err := s.invalidator.Invalidate(ctx, clientID); err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("snapshot invalidate failed")
	}
	return out, nil
}

func (s *MutationService) check(ctx context.Context, input any, amount *decimal.Decimal, guard *backend.Guard) error {
	fields := map[string]string{}
	if err := s.validate.StructCtx(ctx, input); err != nil {
		var invalid validator.ValidationErrors
		if !errors.As(err, &invalid) {
			return fmt.Errorf("mutation service: validate: %w", err)
		}
		for _, fe := range invalid {
			fields[fieldKey(fe)] = fieldMessage(fe)
		}
	}
	if amount != nil && !amount.IsPositive() {
		fields["amount"] = "must be greater than zero"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if guard != nil && guard.Conflict != nil {
		if err := statement.ValidateResolutions(guard.Conflict, guard.Resolutions); err != nil {
			return &ValidationError{Fields: map[string]string{"resolutions": err.Error()}, Err: err}
		}
	}
	return nil
}

// fieldKey turns "PaymentInput.Guard.resolutions[0].action" into "resolutions[0].action".
func fieldKey(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	kept := parts[:0]
	for _, part := range parts {
		if part == "Guard" {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, ".")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	default:
		return "is invalid"
	}
}

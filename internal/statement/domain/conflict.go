package statement

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ConflictKind is the discriminator the backend sends as conflict_type.
type ConflictKind string

const (
	ConflictPrepaid                ConflictKind = "prepaid"
	ConflictAmount                 ConflictKind = "amount"
	ConflictConcurrentModification ConflictKind = "concurrent_modification"
)

// Conflict is a business conflict returned by the backend with HTTP 409.
// Implementations: PrepaidConflict, AmountConflict, ConcurrentModification.
type Conflict interface {
	Kind() ConflictKind
	Message() string
	isConflict()
}

// AffectedAllocation is a payment or credit allocation the user has to resolve.
type AffectedAllocation struct {
	AllocationID string          `json:"allocation_id"`
	Source       string          `json:"source"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
}

// PrepaidConflict: payments or allocations exceed the edited receivable.
type PrepaidConflict struct {
	ReceivableID string               `json:"receivable_id"`
	NewAmount    decimal.Decimal      `json:"new_amount"`
	PaidAmount   decimal.Decimal      `json:"paid_amount"`
	Allocations  []AffectedAllocation `json:"allocations"`
	Detail       string               `json:"message,omitempty"`
}

func (PrepaidConflict) Kind() ConflictKind { return ConflictPrepaid }
func (c PrepaidConflict) Message() string { return c.Detail }
func (PrepaidConflict) isConflict() {}

// AmountConflict: a task or credit amount change would overdraw what is allocated.
type AmountConflict struct {
	ResourceType    string               `json:"resource_type"`
	ResourceID      string               `json:"resource_id"`
	NewAmount       decimal.Decimal      `json:"new_amount"`
	AllocatedAmount decimal.Decimal      `json:"allocated_amount"`
	Allocations     []AffectedAllocation `json:"allocations"`
	Detail          string               `json:"message,omitempty"`
}

func (AmountConflict) Kind() ConflictKind { return ConflictAmount }
func (c AmountConflict) Message() string { return c.Detail }
func (AmountConflict) isConflict() {}

// Shortfall is how far the new amount falls below what is already allocated.
func (c AmountConflict) Shortfall() decimal.Decimal {
	return c.AllocatedAmount.Sub(c.NewAmount)
}

// ConcurrentModification: the record changed since the caller loaded it.
type ConcurrentModification struct {
	ResourceType      string `json:"resource_type"`
	ResourceID        string `json:"resource_id"`
	ExpectedUpdatedAt string `json:"expected_updated_at"`
	ActualUpdatedAt   string `json:"actual_updated_at"`
	Detail            string `json:"message,omitempty"`
}

func (ConcurrentModification) Kind() ConflictKind { return ConflictConcurrentModification }
func (c ConcurrentModification) Message() string { return c.Detail }
func (ConcurrentModification) isConflict() {}

// DecodeConflict reads a 409 payload and dispatches on conflict_type.
func DecodeConflict(raw []byte) (Conflict, error) {
	var head struct {
		ConflictType ConflictKind `json:"conflict_type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownConflict, err)
	}
	switch head.ConflictType {
	case ConflictPrepaid:
		var c PrepaidConflict
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case ConflictAmount:
		var c AmountConflict
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case ConflictConcurrentModification:
		var c ConcurrentModification
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConflict, head.ConflictType)
	}
}

// EncodeConflict renders a conflict with its conflict_type discriminator.
func EncodeConflict(c Conflict) ([]byte, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(c.Kind())
	fields["conflict_type"] = kind
	return json.Marshal(fields)
}

// ResolutionAction is what the user chose to do with one affected allocation.
type ResolutionAction string

const (
	ResolutionDeleteAllocation ResolutionAction = "delete_allocation"
	ResolutionConvertToPayment ResolutionAction = "convert_to_payment"
	ResolutionReduceAllocation ResolutionAction = "reduce_allocation"
)

// Resolution answers one affected allocation of a conflict.
type Resolution struct {
	AllocationID string           `json:"allocation_id" validate:"required"`
	Action       ResolutionAction `json:"action" validate:"required,oneof=delete_allocation convert_to_payment reduce_allocation"`
}

// ValidateResolutions checks that resolutions answer the conflict they are sent for.
// Allocation conflicts need exactly one resolution per affected allocation. A concurrent
// modification accepts none: the caller reloads and resends.
func ValidateResolutions(conflict Conflict, resolutions []Resolution) error {
	switch c := conflict.(type) {
	case PrepaidConflict:
		return matchAllocations(c.Allocations, resolutions)
	case AmountConflict:
		return matchAllocations(c.Allocations, resolutions)
	case ConcurrentModification:
		if len(resolutions) > 0 {
			return fmt.Errorf("%w: reload %s %s before retrying", ErrInvalidResolution, c.ResourceType, c.ResourceID)
		}
		return nil
	default:
		return ErrUnknownConflict
	}
}

func matchAllocations(allocations []AffectedAllocation, resolutions []Resolution) error {
	pending := make(map[string]struct{}, len(allocations))
	for _, allocation := range allocations {
		pending[allocation.AllocationID] = struct{}{}
	}
	for _, resolution := range resolutions {
		if !resolution.Action.valid() {
			return fmt.Errorf("%w: unknown action %q", ErrInvalidResolution, resolution.Action)
		}
		if _, ok := pending[resolution.AllocationID]; !ok {
			return fmt.Errorf("%w: allocation %q not in conflict or answered twice", ErrInvalidResolution, resolution.AllocationID)
		}
		delete(pending, resolution.AllocationID)
	}
	if len(pending) > 0 {
		return fmt.Errorf("%w: %d allocation(s) unresolved", ErrInvalidResolution, len(pending))
	}
	return nil
}

func (a ResolutionAction) valid() bool {
	switch a {
	case ResolutionDeleteAllocation, ResolutionConvertToPayment, ResolutionReduceAllocation:
		return true
	default:
		return false
	}
}

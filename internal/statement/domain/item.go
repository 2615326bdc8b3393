package statement

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType tags a statement item for display. It never affects computation.
type ItemType string

const (
	ItemTypeReceivable       ItemType = "receivable"
	ItemTypePayment          ItemType = "payment"
	ItemTypeCredit           ItemType = "credit"
	ItemTypeCreditAllocation ItemType = "credit_allocation"
	ItemTypeAdjustment       ItemType = "adjustment"
)

// Known reports whether the type is one of the fixed badge categories.
func (t ItemType) Known() bool {
	switch t {
	case ItemTypeReceivable, ItemTypePayment, ItemTypeCredit, ItemTypeCreditAllocation, ItemTypeAdjustment:
		return true
	default:
		return false
	}
}

// AmountDetail is a payment or allocation attached to a statement item.
type AmountDetail struct {
	ID          string          `json:"id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
	Method      string          `json:"method,omitempty"`
}

// Label returns the method when present, otherwise the description.
func (d AmountDetail) Label() string {
	if d.Method != "" {
		return d.Method
	}
	return d.Description
}

// Details groups the sub-records of an item.
type Details struct {
	Payments    []AmountDetail `json:"payments,omitempty"`
	Allocations []AmountDetail `json:"allocations,omitempty"`
}

// Empty reports whether there is nothing to list under the item.
func (d Details) Empty() bool {
	return len(d.Payments) == 0 && len(d.Allocations) == 0
}

// Item is one debit or credit event in a client's statement.
type Item struct {
	ID              string           `json:"id"`
	Date            time.Time        `json:"date"`
	Description     string           `json:"description"`
	Debit           decimal.Decimal  `json:"debit"`
	Credit          decimal.Decimal  `json:"credit"`
	Type            ItemType         `json:"type"`
	TaskID          string           `json:"task_id,omitempty"`
	ReceivableID    string           `json:"receivable_id,omitempty"`
	RemainingAmount *decimal.Decimal `json:"remaining_amount,omitempty"`
	Details         Details          `json:"details"`
}

// Net is debit minus credit.
func (i Item) Net() decimal.Decimal {
	return i.Debit.Sub(i.Credit)
}

// Remaining returns the precomputed remaining amount, or debit minus credit when absent.
func (i Item) Remaining() decimal.Decimal {
	if i.RemainingAmount != nil {
		return *i.RemainingAmount
	}
	return i.Net()
}

// Outstanding reports remaining > 0.
func (i Item) Outstanding() bool {
	return i.Remaining().IsPositive()
}

// Settled reports remaining <= 0.
func (i Item) Settled() bool {
	return !i.Outstanding()
}

// Payable reports whether the item carries a debit that can be paid off.
func (i Item) Payable() bool {
	return i.Debit.IsPositive()
}

// Totals is the footer block of a statement.
type Totals struct {
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// Equal compares totals numerically.
func (t Totals) Equal(other Totals) bool {
	return t.TotalDebit.Equal(other.TotalDebit) &&
		t.TotalCredit.Equal(other.TotalCredit) &&
		t.Balance.Equal(other.Balance)
}

// Snapshot is the raw statement of one client as fetched from the billing backend.
type Snapshot struct {
	ClientID       string    `json:"client_id"`
	ClientName     string    `json:"client_name"`
	Items          []Item    `json:"items"`
	ReportedTotals *Totals   `json:"reported_totals,omitempty"`
	FetchedAt      time.Time `json:"fetched_at"`
}

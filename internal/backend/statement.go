package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	statement "billing-desk/internal/statement/domain"
)

type clientInfo struct {
	ID   json.RawMessage `json:"id"`
	Name string          `json:"name"`
}

type statementPayload struct {
	StatementItems []wireItem  `json:"statementItems"`
	Totals         *wireTotals `json:"totals"`
}

type wireItem struct {
	ID              json.RawMessage `json:"id"`
	Date            json.RawMessage `json:"date"`
	Description     json.RawMessage `json:"description"`
	Debit           json.RawMessage `json:"debit"`
	Credit          json.RawMessage `json:"credit"`
	Type            string          `json:"type"`
	TaskID          json.RawMessage `json:"task_id"`
	ReceivableID    json.RawMessage `json:"receivable_id"`
	RemainingAmount json.RawMessage `json:"remaining_amount"`
	Details         json.RawMessage `json:"details"`
	AmountDetails   json.RawMessage `json:"amount_details"`
}

type wireTotals struct {
	TotalDebit  json.RawMessage `json:"totalDebit"`
	TotalCredit json.RawMessage `json:"totalCredit"`
	Balance     json.RawMessage `json:"balance"`
}

// ClientName returns the display name of a client.
func (c *Client) ClientName(ctx context.Context, clientID string) (string, error) {
	var info clientInfo
	if err := c.doJSON(ctx, http.MethodGet, "/clients/"+url.PathEscape(clientID), nil, &info); err != nil {
		return "", err
	}
	return info.Name, nil
}

// FetchSnapshot loads the raw statement of a client. A failing name lookup falls back
// to the client id; a failing statement lookup is returned.
func (c *Client) FetchSnapshot(ctx context.Context, clientID string) (statement.Snapshot, error) {
	var payload statementPayload
	if err := c.doJSON(ctx, http.MethodGet, "/receivables/client/"+url.PathEscape(clientID), nil, &payload); err != nil {
		return statement.Snapshot{}, fmt.Errorf("backend: fetch statement %s: %w", clientID, err)
	}

	name, err := c.ClientName(ctx, clientID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return statement.Snapshot{}, err
		}
		c.logger.Warn().Err(err).Str("client_id", clientID).Msg("client name lookup failed")
	}
	if name == "" {
		name = clientID
	}

	items := make([]statement.Item, 0, len(payload.StatementItems))
	for _, wire := range payload.StatementItems {
		items = append(items, normalizeItem(wire))
	}
	snapshot := statement.Snapshot{
		ClientID:   clientID,
		ClientName: name,
		Items:      items,
		FetchedAt:  time.Now().UTC(),
	}
	if payload.Totals != nil {
		snapshot.ReportedTotals = &statement.Totals{
			TotalDebit:  statement.ParseAmount(payload.Totals.TotalDebit),
			TotalCredit: statement.ParseAmount(payload.Totals.TotalCredit),
			Balance:     statement.ParseAmount(payload.Totals.Balance),
		}
	}
	return snapshot, nil
}

// normalizeItem turns a loosely typed backend item into a statement item. Debit and
// credit are stored as non-negative amounts.
func normalizeItem(wire wireItem) statement.Item {
	debit, credit := sides(statement.ParseAmount(wire.Debit), statement.ParseAmount(wire.Credit))
	item := statement.Item{
		ID:           statement.ParseString(wire.ID),
		Date:         statement.ParseDate(statement.ParseString(wire.Date)),
		Description:  statement.ParseString(wire.Description),
		Debit:        debit,
		Credit:       credit,
		Type:         statement.ItemType(wire.Type),
		TaskID:       statement.ParseString(wire.TaskID),
		ReceivableID: statement.ParseString(wire.ReceivableID),
		Details:      normalizeDetails(wire.Details, wire.AmountDetails),
	}
	if statement.ParseString(wire.RemainingAmount) != "" {
		remaining := statement.ParseAmount(wire.RemainingAmount)
		item.RemainingAmount = &remaining
	}
	return item
}

// sides moves a negative debit to credit and a negative credit to debit, so the
// balance effect of a reversal is kept.
func sides(debit, credit decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	outDebit, outCredit := decimal.Max(debit, decimal.Zero), decimal.Max(credit, decimal.Zero)
	if debit.IsNegative() {
		outCredit = outCredit.Add(debit.Neg())
	}
	if credit.IsNegative() {
		outDebit = outDebit.Add(credit.Neg())
	}
	return outDebit, outCredit
}

func normalizeDetails(raw, amountDetails json.RawMessage) statement.Details {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil {
			raw = json.RawMessage(inner)
		}
	}
	var parts struct {
		Payments    json.RawMessage `json:"payments"`
		Allocations json.RawMessage `json:"allocations"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parts)
	}
	details := statement.Details{
		Payments:    statement.ParseAmountDetails(parts.Payments),
		Allocations: statement.ParseAmountDetails(parts.Allocations),
	}
	if len(details.Payments) == 0 {
		details.Payments = statement.ParseAmountDetails(amountDetails)
	}
	return details
}

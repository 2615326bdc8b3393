package statement

import (
	"time"

	"github.com/shopspring/decimal"
)

// RowKind distinguishes statement rows from their detail sub-rows.
type RowKind string

const (
	RowItem       RowKind = "item"
	RowPayment    RowKind = "payment"
	RowAllocation RowKind = "allocation"
)

// ExportRow is one flat row of an exported statement.
//
// Item rows carry Debit, Credit and Balance. Detail rows carry Amount and Label and
// belong to the closest preceding item row.
type ExportRow struct {
	Kind        RowKind         `json:"kind"`
	Seq         int             `json:"seq,omitempty"`
	Indent      int             `json:"indent"`
	ItemID      string          `json:"item_id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
	Type        ItemType        `json:"type,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
	Amount      decimal.Decimal `json:"amount"`
	Label       string          `json:"label,omitempty"`
}

// BuildExportRows flattens lines into export rows, keeping the line order.
// Each item is followed by its payments and then its allocations, indented one level.
func BuildExportRows(lines []Line) []ExportRow {
	rows := make([]ExportRow, 0, len(lines))
	for i, line := range lines {
		rows = append(rows, ExportRow{
			Kind:        RowItem,
			Seq:         i + 1,
			ItemID:      line.ID,
			Date:        line.Date,
			Description: line.Description,
			Type:        line.Type,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Balance:     line.Balance,
		})
		rows = appendDetailRows(rows, line.ID, RowPayment, line.Details.Payments)
		rows = appendDetailRows(rows, line.ID, RowAllocation, line.Details.Allocations)
	}
	return rows
}

func appendDetailRows(rows []ExportRow, itemID string, kind RowKind, details []AmountDetail) []ExportRow {
	for _, detail := range details {
		rows = append(rows, ExportRow{
			Kind:   kind,
			Indent: 1,
			ItemID: itemID,
			Date:   detail.Date,
			Amount: detail.Amount,
			Label:  detail.Label(),
		})
	}
	return rows
}

// ItemRowCount counts the item rows, skipping detail rows.
func ItemRowCount(rows []ExportRow) int {
	n := 0
	for _, row := range rows {
		if row.Kind == RowItem {
			n++
		}
	}
	return n
}

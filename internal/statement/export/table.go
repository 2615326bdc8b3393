package export

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	statement "billing-desk/internal/statement/domain"
)

const dateLayout = "2006-01-02"

// formatter renders amounts with the grouping rules of a locale.
type formatter struct {
	printer *message.Printer
}

func newFormatter(locale string) formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return formatter{printer: message.NewPrinter(tag)}
}

func (f formatter) amount(d decimal.Decimal) string {
	return f.printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

type column int

const (
	colSeq column = iota
	colDate
	colDescription
	colType
	colDebit
	colCredit
	colBalance
	colAmount
	columnCount
)

type cell struct {
	Text    string
	Value   decimal.Decimal
	Numeric bool
}

type tableRow struct {
	Kind   statement.RowKind
	Seq    int
	Indent int
	Cells  [columnCount]cell
}

type totalKey string

const (
	totalDebit   totalKey = "debit"
	totalCredit  totalKey = "credit"
	totalBalance totalKey = "balance"
)

type totalLine struct {
	Key   totalKey
	Label string
	Value decimal.Decimal
	Text  string
}

type metaLine struct {
	Label string
	Value string
}

// table is the rendering-neutral layout every renderer draws. All numbers are copied
// from the view.
type table struct {
	Title   string
	Company string
	Meta    []metaLine
	Header  [columnCount]string
	Rows    []tableRow
	Totals  []totalLine
}

func buildTable(view statement.View, labels Labels, companyName string, f formatter) table {
	t := table{
		Title:   labels.Title,
		Company: companyName,
		Meta: []metaLine{
			{Label: labels.Client, Value: view.ClientName},
			{Label: labels.Filter, Value: labels.FilterLabel(view.Filter)},
			{Label: labels.Generated, Value: formatDate(view.GeneratedAt)},
		},
		Header: [columnCount]string{
			colSeq:         labels.Seq,
			colDate:        labels.Date,
			colDescription: labels.Description,
			colType:        labels.Type,
			colDebit:       labels.Debit,
			colCredit:      labels.Credit,
			colBalance:     labels.Balance,
			colAmount:      labels.Amount,
		},
		Rows: make([]tableRow, 0, len(view.Rows)),
		Totals: []totalLine{
			{Key: totalDebit, Label: labels.TotalDebit, Value: view.Totals.TotalDebit},
			{Key: totalCredit, Label: labels.TotalCredit, Value: view.Totals.TotalCredit},
			{Key: totalBalance, Label: labels.FinalBalance, Value: view.Totals.Balance},
		},
	}
	for i := range t.Totals {
		t.Totals[i].Text = f.amount(t.Totals[i].Value)
	}

	numeric := func(d decimal.Decimal) cell {
		return cell{Text: f.amount(d), Value: d, Numeric: true}
	}
	for _, row := range view.Rows {
		tr := tableRow{Kind: row.Kind, Seq: row.Seq, Indent: row.Indent}
		tr.Cells[colDate] = cell{Text: formatDate(row.Date)}
		if row.Kind == statement.RowItem {
			tr.Cells[colSeq] = cell{Text: strconv.Itoa(row.Seq)}
			tr.Cells[colDescription] = cell{Text: row.Description}
			tr.Cells[colType] = cell{Text: labels.TypeLabel(row.Type)}
			tr.Cells[colDebit] = numeric(row.Debit)
			tr.Cells[colCredit] = numeric(row.Credit)
			tr.Cells[colBalance] = numeric(row.Balance)
		} else {
			tr.Cells[colDescription] = cell{Text: row.Label}
			tr.Cells[colType] = cell{Text: labels.DetailLabel(row.Kind)}
			tr.Cells[colAmount] = numeric(row.Amount)
		}
		t.Rows = append(t.Rows, tr)
	}
	return t
}

func (t table) itemRows() int {
	n := 0
	for _, row := range t.Rows {
		if row.Kind == statement.RowItem {
			n++
		}
	}
	return n
}

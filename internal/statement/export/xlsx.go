package export

import (
	"github.com/xuri/excelize/v2"

	statement "billing-desk/internal/statement/domain"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	amountNumFmt    = "#,##0.00"
)

var xlsxColumnWidths = [columnCount]float64{
	colSeq:         6,
	colDate:        12,
	colDescription: 40,
	colType:        16,
	colDebit:       14,
	colCredit:      14,
	colBalance:     16,
	colAmount:      14,
}

// XLSXRenderer renders statements as a single-sheet workbook.
type XLSXRenderer struct {
	profile Profile
	format  formatter
}

// NewXLSXRenderer constructs the spreadsheet renderer.
func NewXLSXRenderer(profile Profile) *XLSXRenderer {
	return &XLSXRenderer{profile: profile, format: newFormatter(profile.Locale)}
}

func (r *XLSXRenderer) Format() Format { return FormatXLSX }
func (r *XLSXRenderer) ContentType() string { return xlsxContentType }

type xlsxStyles struct {
	title        int
	metaLabel    int
	header       int
	text         int
	detail       int
	debit        int
	credit       int
	balance      int
	detailAmount int
	totalLabel   int
	totalDebit   int
	totalCredit  int
	final        int
}

// sheetWriter keeps the first excelize error so the render can be written straight through.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) keep(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *sheetWriter) cellName(col column, row int) string {
	name, err := excelize.CoordinatesToCellName(int(col)+1, row)
	w.keep(err)
	return name
}

func (w *sheetWriter) set(col column, row int, value any, style int) {
	name := w.cellName(col, row)
	if w.err != nil {
		return
	}
	w.keep(w.f.SetCellValue(w.sheet, name, value))
	if style != 0 {
		w.keep(w.f.SetCellStyle(w.sheet, name, name, style))
	}
}

func (w *sheetWriter) style(s *excelize.Style) int {
	id, err := w.f.NewStyle(s)
	w.keep(err)
	return id
}

// Render builds the workbook. Amounts are stored as numbers and formatted through a
// cell style.
func (r *XLSXRenderer) Render(view statement.View) ([]byte, error) {
	labels := r.profile.Labels
	t := buildTable(view, labels, r.profile.CompanyName, r.format)

	f := excelize.NewFile()
	defer f.Close()

	w := &sheetWriter{f: f, sheet: labels.Sheet}
	if w.sheet == "" {
		w.sheet = "Statement"
	}
	w.keep(f.SetSheetName("Sheet1", w.sheet))
	rtl := r.profile.RTL()
	w.keep(f.SetSheetView(w.sheet, -1, &excelize.ViewOptions{RightToLeft: &rtl}))

	styles := r.styles(w)
	for col := colSeq; col < columnCount; col++ {
		name, err := excelize.ColumnNumberToName(int(col) + 1)
		w.keep(err)
		w.keep(f.SetColWidth(w.sheet, name, name, xlsxColumnWidths[col]))
	}

	row := 1
	w.set(colSeq, row, t.Title, styles.title)
	w.keep(f.MergeCell(w.sheet, w.cellName(colSeq, row), w.cellName(colAmount, row)))
	if t.Company != "" {
		row++
		w.set(colSeq, row, t.Company, styles.metaLabel)
		w.keep(f.MergeCell(w.sheet, w.cellName(colSeq, row), w.cellName(colAmount, row)))
	}
	for _, meta := range t.Meta {
		row++
		w.set(colDate, row, meta.Label, styles.metaLabel)
		w.set(colDescription, row, meta.Value, 0)
	}

	row += 2
	for col := colSeq; col < columnCount; col++ {
		w.set(col, row, t.Header[col], styles.header)
	}

	for _, tr := range t.Rows {
		row++
		if tr.Kind == statement.RowItem {
			w.set(colSeq, row, tr.Seq, styles.text)
			w.set(colDate, row, tr.Cells[colDate].Text, styles.text)
			w.set(colDescription, row, tr.Cells[colDescription].Text, styles.text)
			w.set(colType, row, tr.Cells[colType].Text, styles.text)
			w.set(colDebit, row, tr.Cells[colDebit].Value.InexactFloat64(), styles.debit)
			w.set(colCredit, row, tr.Cells[colCredit].Value.InexactFloat64(), styles.credit)
			w.set(colBalance, row, tr.Cells[colBalance].Value.InexactFloat64(), styles.balance)
			w.set(colAmount, row, "", styles.text)
			continue
		}
		w.set(colDate, row, tr.Cells[colDate].Text, styles.detail)
		w.set(colDescription, row, tr.Cells[colDescription].Text, styles.detail)
		w.set(colType, row, tr.Cells[colType].Text, styles.detail)
		w.set(colAmount, row, tr.Cells[colAmount].Value.InexactFloat64(), styles.detailAmount)
	}

	row++
	totalStyles := map[totalKey]int{
		totalDebit:   styles.totalDebit,
		totalCredit:  styles.totalCredit,
		totalBalance: styles.final,
	}
	for _, total := range t.Totals {
		row++
		w.set(colCredit, row, total.Label, styles.totalLabel)
		w.set(colBalance, row, total.Value.InexactFloat64(), totalStyles[total.Key])
	}

	if w.err != nil {
		return nil, w.err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *XLSXRenderer) styles(w *sheetWriter) xlsxStyles {
	c := r.profile.Colors
	numFmt := amountNumFmt
	border := []excelize.Border{
		{Type: "left", Color: "#B0BEC5", Style: 1},
		{Type: "right", Color: "#B0BEC5", Style: 1},
		{Type: "top", Color: "#B0BEC5", Style: 1},
		{Type: "bottom", Color: "#B0BEC5", Style: 1},
	}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}
	amount := func(color, fillColor string, bold bool, size float64) *excelize.Style {
		return &excelize.Style{
			Border:       border,
			Fill:         fill(fillColor),
			Font:         &excelize.Font{Bold: bold, Color: color, Size: size},
			CustomNumFmt: &numFmt,
		}
	}

	return xlsxStyles{
		title:     w.style(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}, Alignment: &excelize.Alignment{Horizontal: "center"}}),
		metaLabel: w.style(&excelize.Style{Font: &excelize.Font{Bold: true}}),
		header: w.style(&excelize.Style{
			Border:    border,
			Fill:      fill(c.HeaderFill),
			Font:      &excelize.Font{Bold: true, Color: c.Header},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}),
		text: w.style(&excelize.Style{Border: border}),
		detail: w.style(&excelize.Style{
			Font:      &excelize.Font{Italic: true, Color: "#546E7A", Size: 9},
			Alignment: &excelize.Alignment{Indent: 1},
		}),
		debit:   w.style(amount(c.Debit, c.DebitFill, false, 0)),
		credit:  w.style(amount(c.Credit, c.CreditFill, false, 0)),
		balance: w.style(&excelize.Style{Border: border, CustomNumFmt: &numFmt}),
		detailAmount: w.style(&excelize.Style{
			Font:         &excelize.Font{Italic: true, Color: "#546E7A", Size: 9},
			CustomNumFmt: &numFmt,
		}),
		totalLabel:  w.style(&excelize.Style{Font: &excelize.Font{Bold: true}, Border: border}),
		totalDebit:  w.style(amount(c.Debit, c.DebitFill, true, 0)),
		totalCredit: w.style(amount(c.Credit, c.CreditFill, true, 0)),
		final:       w.style(amount(c.Balance, c.BalanceFill, true, 12)),
	}
}

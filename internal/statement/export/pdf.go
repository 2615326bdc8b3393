package export

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	statement "billing-desk/internal/statement/domain"
)

const (
	pdfContentType = "application/pdf"
	pdfFontFamily  = "DejaVuSansCondensed"

	pdfPageWidth   = 297.0
	pdfPageHeight  = 210.0
	pdfMargin      = 10.0
	pdfBottomLimit = pdfPageHeight - 12.0
	pdfTitleHeight = 10.0
	pdfMetaHeight  = 6.0
	pdfRowHeight   = 7.0
	pdfTotalHeight = 8.0
)

// DejaVu Sans Condensed covers Latin and Arabic, including the presentation forms.
//
//go:embed fonts/DejaVuSansCondensed.ttf
var defaultFont []byte

//go:embed fonts/DejaVuSansCondensed-Bold.ttf
var defaultBoldFont []byte

var pdfColumnWidths = [columnCount]float64{
	colSeq:         10,
	colDate:        24,
	colDescription: 85,
	colType:        32,
	colDebit:       30,
	colCredit:      30,
	colBalance:     34,
	colAmount:      32,
}

type pdfColumn struct {
	col   column
	x     float64
	width float64
}

type pdfPlacedRow struct {
	page int
	y    float64
	row  tableRow
}

type pdfPlacedTotal struct {
	page  int
	y     float64
	total totalLine
}

// pdfLayout is the positioned statement, computed before anything is drawn.
type pdfLayout struct {
	table   table
	columns []pdfColumn
	headers map[int]float64
	rows    []pdfPlacedRow
	totals  []pdfPlacedTotal
	pages   int
	rtl     bool
}

// PDFRenderer renders statements as a landscape A4 document.
type PDFRenderer struct {
	profile      Profile
	format       formatter
	uncompressed bool
}

// NewPDFRenderer constructs the PDF renderer. Without a font path the embedded
// DejaVu Sans Condensed faces are used.
func NewPDFRenderer(profile Profile) *PDFRenderer {
	return &PDFRenderer{profile: profile, format: newFormatter(profile.Locale)}
}

func (r *PDFRenderer) Format() Format { return FormatPDF }
func (r *PDFRenderer) ContentType() string { return pdfContentType }

// pdfColumns lays columns out from the right edge when rtl is set.
func pdfColumns(rtl bool) []pdfColumn {
	columns := make([]pdfColumn, 0, columnCount)
	offset := 0.0
	for col := colSeq; col < columnCount; col++ {
		width := pdfColumnWidths[col]
		x := pdfMargin + offset
		if rtl {
			x = pdfPageWidth - pdfMargin - offset - width
		}
		columns = append(columns, pdfColumn{col: col, x: x, width: width})
		offset += width
	}
	return columns
}

func (r *PDFRenderer) layout(view statement.View) pdfLayout {
	t := buildTable(view, r.profile.Labels, r.profile.CompanyName, r.format)
	l := pdfLayout{
		table:   t,
		columns: pdfColumns(r.profile.RTL()),
		headers: map[int]float64{},
		pages:   1,
		rtl:     r.profile.RTL(),
	}

	y := pdfMargin + pdfTitleHeight
	if t.Company != "" {
		y += pdfMetaHeight
	}
	y += float64(len(t.Meta))*pdfMetaHeight + 4
	l.headers[1] = y
	y += pdfRowHeight

	for _, row := range t.Rows {
		if y+pdfRowHeight > pdfBottomLimit {
			l.pages++
			y = pdfMargin
			l.headers[l.pages] = y
			y += pdfRowHeight
		}
		l.rows = append(l.rows, pdfPlacedRow{page: l.pages, y: y, row: row})
		y += pdfRowHeight
	}

	y += 4
	if y+float64(len(t.Totals))*pdfTotalHeight > pdfBottomLimit {
		l.pages++
		y = pdfMargin
	}
	for _, total := range t.Totals {
		l.totals = append(l.totals, pdfPlacedTotal{page: l.pages, y: y, total: total})
		y += pdfTotalHeight
	}
	return l
}

// Render draws the statement into memory and returns the finished document.
func (r *PDFRenderer) Render(view statement.View) ([]byte, error) {
	l := r.layout(view)
	pdf, err := r.newDocument(l)
	if err != nil {
		return nil, err
	}
	r.draw(pdf, l)
	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// newDocument registers the profile font. Text direction is resolved per
// string by pdfVisual, so gofpdf's own RTL mode stays off: it would reverse
// amounts and dates along with the Arabic.
func (r *PDFRenderer) newDocument(l pdfLayout) (*gofpdf.Fpdf, error) {
	regular, bold, err := r.fonts()
	if err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(!r.uncompressed)
	pdf.SetTitle(l.table.Title, true)
	family := r.fontFamily()
	pdf.AddUTF8FontFromBytes(family, "", regular)
	pdf.AddUTF8FontFromBytes(family, "B", bold)
	return pdf, pdf.Error()
}

// fonts returns the regular and bold faces. A configured font file serves both.
func (r *PDFRenderer) fonts() ([]byte, []byte, error) {
	if r.profile.FontPath == "" {
		return defaultFont, defaultBoldFont, nil
	}
	data, err := os.ReadFile(r.profile.FontPath)
	if err != nil {
		return nil, nil, fmt.Errorf("pdf font: %w", err)
	}
	return data, data, nil
}

func (r *PDFRenderer) fontFamily() string {
	if r.profile.FontPath == "" {
		return pdfFontFamily
	}
	if r.profile.FontFamily != "" {
		return r.profile.FontFamily
	}
	return "Statement"
}

func (r *PDFRenderer) draw(pdf *gofpdf.Fpdf, l pdfLayout) {
	text := func(s string) string { return pdfVisual(s, l.rtl) }
	family := r.fontFamily()
	align := "L"
	if l.rtl {
		align = "R"
	}
	colors := r.profile.Colors

	page := 1
	pdf.AddPage()
	pdf.SetFont(family, "B", 14)
	pdf.SetXY(pdfMargin, pdfMargin)
	pdf.CellFormat(pdfPageWidth-2*pdfMargin, pdfTitleHeight, text(l.table.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(family, "", 10)
	if l.table.Company != "" {
		pdf.CellFormat(pdfPageWidth-2*pdfMargin, pdfMetaHeight, text(l.table.Company), "", 1, align, false, 0, "")
	}
	for _, meta := range l.table.Meta {
		pdf.CellFormat(pdfPageWidth-2*pdfMargin, pdfMetaHeight, text(meta.Label+": "+meta.Value), "", 1, align, false, 0, "")
	}

	drawHeader := func(y float64) {
		pdf.SetFont(family, "B", 9)
		setFill(pdf, colors.HeaderFill)
		setText(pdf, colors.Header)
		for _, c := range l.columns {
			pdf.SetXY(c.x, y)
			pdf.CellFormat(c.width, pdfRowHeight, text(l.table.Header[c.col]), "1", 0, "C", true, 0, "")
		}
		setText(pdf, "#000000")
	}
	drawHeader(l.headers[1])

	for _, placed := range l.rows {
		if placed.page != page {
			pdf.AddPage()
			page = placed.page
			drawHeader(l.headers[page])
		}
		detail := placed.row.Kind != statement.RowItem
		if detail {
			pdf.SetFont(family, "", 8)
		} else {
			pdf.SetFont(family, "", 9)
		}
		for _, c := range l.columns {
			cell := placed.row.Cells[c.col]
			cellAlign := align
			if cell.Numeric {
				cellAlign = "R"
			}
			label := cell.Text
			if detail && c.col == colDescription {
				label = strings.Repeat("  ", placed.row.Indent) + label
			}
			switch c.col {
			case colDebit:
				setText(pdf, colors.Debit)
			case colCredit:
				setText(pdf, colors.Credit)
			default:
				setText(pdf, "#000000")
			}
			pdf.SetXY(c.x, placed.y)
			pdf.CellFormat(c.width, pdfRowHeight, text(label), "1", 0, cellAlign, false, 0, "")
		}
	}
	setText(pdf, "#000000")

	labelCol, valueCol := l.columns[colCredit], l.columns[colBalance]
	for _, placed := range l.totals {
		if placed.page != page {
			pdf.AddPage()
			page = placed.page
		}
		color, fill := colors.Balance, colors.BalanceFill
		switch placed.total.Key {
		case totalDebit:
			color, fill = colors.Debit, colors.DebitFill
		case totalCredit:
			color, fill = colors.Credit, colors.CreditFill
		}
		pdf.SetFont(family, "B", 10)
		setText(pdf, "#000000")
		pdf.SetXY(labelCol.x, placed.y)
		pdf.CellFormat(labelCol.width, pdfTotalHeight, text(placed.total.Label), "1", 0, align, false, 0, "")
		setFill(pdf, fill)
		setText(pdf, color)
		pdf.SetXY(valueCol.x, placed.y)
		pdf.CellFormat(valueCol.width, pdfTotalHeight, text(placed.total.Text), "1", 0, "R", true, 0, "")
	}
	setText(pdf, "#000000")
}

func setText(pdf *gofpdf.Fpdf, hex string) {
	r, g, b := rgb(hex)
	pdf.SetTextColor(r, g, b)
}

func setFill(pdf *gofpdf.Fpdf, hex string) {
	r, g, b := rgb(hex)
	pdf.SetFillColor(r, g, b)
}

// rgb parses #RRGGBB. Anything else is black.
func rgb(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}

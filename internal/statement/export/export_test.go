package export

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	statement "billing-desk/internal/statement/domain"
)

var generatedAt = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func fixtureSnapshot() statement.Snapshot {
	zero := decimal.Zero
	remaining := dec("1234.5")
	return statement.Snapshot{
		ClientID:   "c1",
		ClientName: "شركة النور",
		Items: []statement.Item{
			{
				ID: "r1", Date: statement.ParseDate("2024-01-01"), Description: "Website design",
				Debit: dec("1000"), Type: statement.ItemTypeReceivable,
				Details: statement.Details{
					Payments: []statement.AmountDetail{
						{Amount: dec("300"), Date: statement.ParseDate("2024-01-05"), Method: "cash"},
						{Amount: dec("100"), Date: statement.ParseDate("2024-01-15"), Description: "transfer"},
					},
					Allocations: []statement.AmountDetail{{Amount: dec("50"), Description: "credit #4"}},
				},
			},
			{ID: "p1", Date: statement.ParseDate("2024-01-15"), Description: "Payment", Credit: dec("400"), Type: statement.ItemTypePayment},
			{ID: "r2", Date: statement.ParseDate("2024-02-01"), Description: "Hosting", Debit: dec("250"), Type: statement.ItemTypeReceivable, RemainingAmount: &zero},
			{ID: "c1", Date: statement.ParseDate("2024-02-10"), Description: "Credit applied", Credit: dec("50"), Type: statement.ItemTypeCreditAllocation},
			{ID: "r3", Date: statement.ParseDate("2024-03-01"), Description: "Maintenance", Debit: dec("1234.5"), Type: "retainer", RemainingAmount: &remaining},
		},
	}
}

func views() map[statement.Filter]statement.View {
	out := make(map[statement.Filter]statement.View, len(statement.Filters))
	for _, f := range statement.Filters {
		out[f] = statement.BuildView(fixtureSnapshot(), f, generatedAt)
	}
	out["empty"] = statement.BuildView(statement.Snapshot{ClientID: "c0"}, statement.FilterAll, generatedAt)
	return out
}

func lineDescriptions(view statement.View) []string {
	out := make([]string, 0, len(view.Lines))
	for _, line := range view.Lines {
		out = append(out, line.Description)
	}
	return out
}

func requireTotal(t *testing.T, want decimal.Decimal, raw string) {
	t.Helper()
	got, err := decimal.NewFromString(raw)
	require.NoError(t, err, raw)
	require.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}

func cellAt(row []string, col column) string {
	if int(col) < len(row) {
		return row[col]
	}
	return ""
}

func TestXLSXParity(t *testing.T) {
	profile := DefaultProfile()
	renderer := NewXLSXRenderer(profile)

	for name, view := range views() {
		t.Run(string(name), func(t *testing.T) {
			data, err := renderer.Render(view)
			require.NoError(t, err)

			f, err := excelize.OpenReader(bytes.NewReader(data))
			require.NoError(t, err)
			defer f.Close()

			rtl, err := f.GetSheetView(profile.Labels.Sheet, -1)
			require.NoError(t, err)
			require.NotNil(t, rtl.RightToLeft)
			assert.True(t, *rtl.RightToLeft)

			rows, err := f.GetRows(profile.Labels.Sheet, excelize.Options{RawCellValue: true})
			require.NoError(t, err)

			header := -1
			var descriptions []string
			totals := map[string]string{}
			for i, row := range rows {
				if header < 0 {
					if cellAt(row, colSeq) == profile.Labels.Seq {
						header = i
					}
					continue
				}
				if _, err := strconv.Atoi(cellAt(row, colSeq)); err == nil {
					descriptions = append(descriptions, cellAt(row, colDescription))
				}
				if label := cellAt(row, colCredit); label != "" {
					totals[label] = cellAt(row, colBalance)
				}
			}
			require.GreaterOrEqual(t, header, 0)
			assert.Equal(t, lineDescriptions(view), nonNil(descriptions))

			requireTotal(t, view.Totals.TotalDebit, totals[profile.Labels.TotalDebit])
			requireTotal(t, view.Totals.TotalCredit, totals[profile.Labels.TotalCredit])
			requireTotal(t, view.Totals.Balance, totals[profile.Labels.FinalBalance])
		})
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func TestXLSXAmountsUseNumberFormat(t *testing.T) {
	view := views()[statement.FilterAll]
	data, err := NewXLSXRenderer(DefaultProfile()).Render(view)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheet := DefaultProfile().Labels.Sheet
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	formatted := strings.Join(flatten(rows), "|")
	assert.Contains(t, formatted, "2,034.50")
	assert.Contains(t, formatted, "1,234.50")
}

func flatten(rows [][]string) []string {
	var out []string
	for _, row := range rows {
		out = append(out, row...)
	}
	return out
}

func TestPDFParity(t *testing.T) {
	renderer := NewPDFRenderer(DefaultProfile())
	renderer.uncompressed = true
	fmtr := newFormatter("en")

	for name, view := range views() {
		t.Run(string(name), func(t *testing.T) {
			layout := renderer.layout(view)
			require.Len(t, layout.rows, len(view.Rows))
			assert.Equal(t, len(view.Lines), layout.table.itemRows())

			var descriptions []string
			for _, placed := range layout.rows {
				if placed.row.Kind == statement.RowItem {
					descriptions = append(descriptions, placed.row.Cells[colDescription].Text)
				}
			}
			assert.Equal(t, lineDescriptions(view), nonNil(descriptions))

			require.Len(t, layout.totals, 3)
			assert.Equal(t, fmtr.amount(view.Totals.TotalDebit), layout.totals[0].total.Text)
			assert.Equal(t, fmtr.amount(view.Totals.TotalCredit), layout.totals[1].total.Text)
			assert.Equal(t, fmtr.amount(view.Totals.Balance), layout.totals[2].total.Text)

			data, err := renderer.Render(view)
			require.NoError(t, err)
			require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
			for _, placed := range layout.totals {
				assert.Contains(t, string(data), pdfText(placed.total.Text))
			}
		})
	}
}

func TestPDFColumnsStartAtRightEdge(t *testing.T) {
	columns := pdfColumns(true)
	require.Len(t, columns, int(columnCount))
	first := columns[0]
	assert.InDelta(t, pdfPageWidth-pdfMargin, first.x+first.width, 0.001)
	for i := 1; i < len(columns); i++ {
		assert.InDelta(t, columns[i-1].x, columns[i].x+columns[i].width, 0.001)
	}
	last := columns[len(columns)-1]
	assert.InDelta(t, pdfMargin, last.x, 0.001)

	ltr := pdfColumns(false)
	assert.InDelta(t, pdfMargin, ltr[0].x, 0.001)
}

func TestPDFPaginatesLongStatements(t *testing.T) {
	snapshot := statement.Snapshot{ClientID: "big"}
	for i := 0; i < 120; i++ {
		snapshot.Items = append(snapshot.Items, statement.Item{
			ID:    strconv.Itoa(i),
			Date:  generatedAt.AddDate(0, 0, -i),
			Debit: decimal.NewFromInt(int64(i + 1)),
		})
	}
	view := statement.BuildView(snapshot, statement.FilterAll, generatedAt)
	layout := NewPDFRenderer(DefaultProfile()).layout(view)

	assert.Greater(t, layout.pages, 1)
	for _, placed := range layout.rows {
		assert.LessOrEqual(t, placed.y+pdfRowHeight, pdfBottomLimit)
	}
	_, err := NewPDFRenderer(DefaultProfile()).Render(view)
	require.NoError(t, err)
}

func TestPDFMissingFontFails(t *testing.T) {
	profile := DefaultProfile()
	profile.FontPath = filepath.Join(t.TempDir(), "missing.ttf")
	_, err := NewPDFRenderer(profile).Render(views()[statement.FilterAll])
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

// pdfText is s as gofpdf writes it for a UTF-8 font: UTF-16BE in a string literal.
func pdfText(s string) string {
	var buf []byte
	for _, u := range utf16.Encode([]rune(s)) {
		buf = append(buf, byte(u>>8), byte(u))
	}
	escape := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "\r", `\r`)
	return "(" + escape.Replace(string(buf)) + ")"
}

func renderUncompressed(t *testing.T, profile Profile, view statement.View) string {
	t.Helper()
	renderer := NewPDFRenderer(profile)
	renderer.uncompressed = true
	data, err := renderer.Render(view)
	require.NoError(t, err)
	return string(data)
}

func TestPDFKeepsAmountsAndDatesInReadingOrder(t *testing.T) {
	doc := renderUncompressed(t, DefaultProfile(), views()[statement.FilterUnpaid])

	assert.Contains(t, doc, pdfText("2,234.50"))
	assert.NotContains(t, doc, pdfText("05.432,2"))
	assert.Contains(t, doc, pdfText("1,234.50"))
	assert.Contains(t, doc, pdfText("2024-03-01"))
	assert.NotContains(t, doc, pdfText("10-30-4202"))
}

func TestPDFDefaultProfileRendersArabic(t *testing.T) {
	profile := DefaultProfile()
	require.Empty(t, profile.FontPath)
	doc := renderUncompressed(t, profile, views()[statement.FilterAll])

	client := profile.Labels.Client + ": شركة النور"
	assert.Contains(t, doc, pdfText(pdfVisual(client, true)))
	assert.Contains(t, doc, pdfText(pdfVisual(profile.Labels.FinalBalance, true)))
	assert.Contains(t, doc, "/Encoding /Identity-H")
}

func TestPDFLoadsFontFromAbsolutePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.ttf")
	require.True(t, filepath.IsAbs(path))
	require.NoError(t, os.WriteFile(path, defaultFont, 0o600))

	profile := DefaultProfile()
	profile.FontPath = path
	profile.FontFamily = "Custom"
	doc := renderUncompressed(t, profile, views()[statement.FilterUnpaid])
	assert.Contains(t, doc, pdfText("2,234.50"))
}

var (
	totalPattern = regexp.MustCompile(`data-total="(\w+)" data-value="([^"]+)"`)
	itemPattern  = regexp.MustCompile(`<tr class="item">\n<td>\d+</td>\n<td>[^<]*</td>\n<td>([^<]*)</td>`)
)

func TestPrintParity(t *testing.T) {
	renderer := NewPrintRenderer(DefaultProfile())

	for name, view := range views() {
		t.Run(string(name), func(t *testing.T) {
			data, err := renderer.Render(view)
			require.NoError(t, err)
			page := string(data)

			assert.Contains(t, page, `<html dir="rtl" lang="ar">`)
			assert.Contains(t, page, "window.print()")
			assert.Contains(t, page, "window.close()")
			assert.Contains(t, page, "@media print")

			var descriptions []string
			for _, m := range itemPattern.FindAllStringSubmatch(page, -1) {
				descriptions = append(descriptions, m[1])
			}
			assert.Equal(t, lineDescriptions(view), nonNil(descriptions))
			assert.Equal(t, len(view.Rows)-len(view.Lines), strings.Count(page, `<tr class="detail `))

			totals := map[string]string{}
			for _, m := range totalPattern.FindAllStringSubmatch(page, -1) {
				totals[m[1]] = m[2]
			}
			requireTotal(t, view.Totals.TotalDebit, totals["debit"])
			requireTotal(t, view.Totals.TotalCredit, totals["credit"])
			requireTotal(t, view.Totals.Balance, totals["balance"])
		})
	}
}

func TestPrintEscapesContent(t *testing.T) {
	snapshot := statement.Snapshot{
		ClientID:   "c9",
		ClientName: `<script>alert(1)</script>`,
		Items:      []statement.Item{{ID: "x", Description: `<b>bold</b>`, Debit: dec("1")}},
	}
	data, err := NewPrintRenderer(DefaultProfile()).Render(statement.BuildView(snapshot, statement.FilterAll, generatedAt))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<b>bold</b>")
	assert.NotContains(t, string(data), "<script>alert(1)</script>")
}

func TestAllFormatsAgreeOnTotals(t *testing.T) {
	fmtr := newFormatter("en")
	view := views()[statement.FilterUnpaid]
	want := []string{
		fmtr.amount(view.Totals.TotalDebit),
		fmtr.amount(view.Totals.TotalCredit),
		fmtr.amount(view.Totals.Balance),
	}
	assert.Equal(t, []string{"2,234.50", "0.00", "2,234.50"}, want)

	for _, labels := range []Labels{DefaultProfile().Labels, LatinLabels()} {
		tbl := buildTable(view, labels, "", fmtr)
		got := []string{tbl.Totals[0].Text, tbl.Totals[1].Text, tbl.Totals[2].Text}
		assert.Equal(t, want, got)
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(DefaultProfile())
	view := views()[statement.FilterAll]

	for _, format := range []Format{FormatXLSX, FormatPDF, FormatHTML} {
		doc, err := registry.Render(view, format)
		require.NoError(t, err, format)
		assert.NotEmpty(t, doc.Data)
		assert.Equal(t, "statement_شركة_النور_2024-03-05."+string(format), doc.Filename)
		assert.NotEmpty(t, doc.ContentType)
	}

	_, err := registry.Render(view, "docx")
	assert.ErrorIs(t, err, statement.ErrInvalidFormat)
}

type failingRenderer struct{}

func (failingRenderer) Format() Format { return FormatPDF }
func (failingRenderer) ContentType() string { return pdfContentType }
func (failingRenderer) Render(statement.View) ([]byte, error) {
	return []byte("%PDF-partial"), errors.New("boom")
}

func TestRegistryDropsPartialOutput(t *testing.T) {
	doc, err := NewRegistryWith(failingRenderer{}).Render(views()[statement.FilterAll], FormatPDF)
	require.Error(t, err)
	assert.Nil(t, doc.Data)
	assert.Empty(t, doc.Filename)
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{"xlsx": FormatXLSX, " PDF": FormatPDF, "html": FormatHTML, "print": FormatHTML} {
		got, err := ParseFormat(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	assert.ErrorIs(t, err, statement.ErrInvalidFormat)
}

func TestFilename(t *testing.T) {
	day := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "statement_Acme_Co_2024-03-01.pdf", Filename("Acme / Co", day, "pdf"))
	assert.Equal(t, "statement_client_2024-03-01.xlsx", Filename(" ../ ", day, "xlsx"))
	assert.Equal(t, "statement_ab_2024-03-01.html", Filename("a\x00b", day, "html"))
}

func TestContentDisposition(t *testing.T) {
	header := ContentDisposition("statement_شركة_2024-03-01.pdf")
	assert.True(t, strings.HasPrefix(header, `attachment; filename="statement_`))
	assert.Contains(t, header, `filename*=UTF-8''statement_%D8%B4%D8%B1%D9%83%D8%A9_2024-03-01.pdf`)

	fallback := header[:strings.Index(header, "; filename*")]
	for _, r := range fallback {
		assert.Less(t, r, rune(128))
	}

	assert.Equal(t, `attachment; filename="statement_a_2024-03-01.xlsx"; filename*=UTF-8''statement_a_2024-03-01.xlsx`,
		ContentDisposition("statement_a_2024-03-01.xlsx"))
}

func TestLoadProfile(t *testing.T) {
	p, err := LoadProfile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile().Labels.Title, p.Labels.Title)

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
company_name: Al Noor Trading
locale: ar-EG
labels:
  title: Account statement
  filters:
    unpaid: Outstanding
colors:
  debit: "#FF0000"
`), 0o600))

	p, err = LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "Al Noor Trading", p.CompanyName)
	assert.Equal(t, "ar-EG", p.Locale)
	assert.Equal(t, "Account statement", p.Labels.Title)
	assert.Equal(t, "Outstanding", p.Labels.FilterLabel(statement.FilterUnpaid))
	assert.Equal(t, DefaultProfile().Labels.FilterLabel(statement.FilterPaid), p.Labels.FilterLabel(statement.FilterPaid))
	assert.Equal(t, "#FF0000", p.Colors.Debit)
	assert.Equal(t, DefaultProfile().Colors.Credit, p.Colors.Credit)
	assert.Equal(t, DefaultProfile().Labels.Debit, p.Labels.Debit)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("direction: sideways\n"), 0o600))
	_, err = LoadProfile(bad)
	assert.Error(t, err)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestTypeLabelPassesUnknownThrough(t *testing.T) {
	labels := LatinLabels()
	assert.Equal(t, "Receivable", labels.TypeLabel(statement.ItemTypeReceivable))
	assert.Equal(t, "retainer", labels.TypeLabel("retainer"))
}

func TestLoadProfileStartsEnglishProfilesFromLatinLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lang: en\nlabels:\n  title: Account statement\n"), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.False(t, p.RTL())
	assert.Equal(t, "Debit", p.Labels.Debit)
	assert.Equal(t, "Account statement", p.Labels.Title)
}

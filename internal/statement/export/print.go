package export

import (
	"bytes"
	"html/template"

	statement "billing-desk/internal/statement/domain"
)

const printContentType = "text/html; charset=utf-8"

var printTemplate = template.Must(template.New("statement").Parse(`<!DOCTYPE html>
<html dir="{{.Dir}}" lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Table.Title}} - {{.ClientName}}</title>
<style>
body { font-family: "Amiri", "Tahoma", sans-serif; margin: 24px; color: #212121; }
h1 { text-align: center; font-size: 20px; margin: 0 0 12px; }
.meta { margin-bottom: 12px; }
.meta span { display: inline-block; margin-inline-end: 24px; }
table { width: 100%; border-collapse: collapse; font-size: 12px; }
th { background: {{.Colors.HeaderFill}}; color: {{.Colors.Header}}; }
th, td { border: 1px solid #B0BEC5; padding: 4px 6px; }
td.num { text-align: end; white-space: nowrap; }
td.debit { color: {{.Colors.Debit}}; background: {{.Colors.DebitFill}}; }
td.credit { color: {{.Colors.Credit}}; background: {{.Colors.CreditFill}}; }
tr.detail td { font-size: 10px; font-style: italic; color: #546E7A; border-top: none; }
tr.detail td.label { padding-inline-start: 24px; }
.totals { margin-top: 16px; width: auto; margin-inline-start: auto; }
.totals td.final { color: {{.Colors.Balance}}; background: {{.Colors.BalanceFill}}; font-weight: bold; font-size: 14px; }
@media print {
  body { margin: 0; }
  thead { display: table-header-group; }
  tr { page-break-inside: avoid; }
  .totals { page-break-inside: avoid; }
}
</style>
</head>
<body>
<h1>{{.Table.Title}}</h1>
{{- if .Table.Company}}
<p class="company">{{.Table.Company}}</p>
{{- end}}
<div class="meta">
{{- range .Table.Meta}}
<span><strong>{{.Label}}:</strong> {{.Value}}</span>
{{- end}}
</div>
<table class="lines">
<thead>
<tr>{{range .Table.Header}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{- range .Table.Rows}}
{{- if eq .Kind "item"}}
<tr class="item">
<td>{{(index .Cells 0).Text}}</td>
<td>{{(index .Cells 1).Text}}</td>
<td>{{(index .Cells 2).Text}}</td>
<td>{{(index .Cells 3).Text}}</td>
<td class="num debit" data-value="{{(index .Cells 4).Value.String}}">{{(index .Cells 4).Text}}</td>
<td class="num credit" data-value="{{(index .Cells 5).Value.String}}">{{(index .Cells 5).Text}}</td>
<td class="num balance" data-value="{{(index .Cells 6).Value.String}}">{{(index .Cells 6).Text}}</td>
<td></td>
</tr>
{{- else}}
<tr class="detail {{.Kind}}">
<td></td>
<td>{{(index .Cells 1).Text}}</td>
<td class="label">{{(index .Cells 2).Text}}</td>
<td>{{(index .Cells 3).Text}}</td>
<td></td>
<td></td>
<td></td>
<td class="num" data-value="{{(index .Cells 7).Value.String}}">{{(index .Cells 7).Text}}</td>
</tr>
{{- end}}
{{- end}}
</tbody>
</table>
<table class="totals">
{{- range .Table.Totals}}
<tr><th>{{.Label}}</th><td class="num {{if eq .Key "balance"}}final{{else}}{{.Key}}{{end}}" data-total="{{.Key}}" data-value="{{.Value.String}}">{{.Text}}</td></tr>
{{- end}}
</table>
<script>
window.addEventListener("load", function () { window.print(); });
window.addEventListener("afterprint", function () { window.close(); });
</script>
</body>
</html>
`))

// PrintRenderer renders a standalone HTML page that prints itself and closes.
type PrintRenderer struct {
	profile Profile
	format  formatter
}

// NewPrintRenderer constructs the print renderer.
func NewPrintRenderer(profile Profile) *PrintRenderer {
	return &PrintRenderer{profile: profile, format: newFormatter(profile.Locale)}
}

func (r *PrintRenderer) Format() Format { return FormatHTML }
func (r *PrintRenderer) ContentType() string { return printContentType }

// Render executes the print template into memory.
func (r *PrintRenderer) Render(view statement.View) ([]byte, error) {
	dir := "ltr"
	if r.profile.RTL() {
		dir = "rtl"
	}
	data := struct {
		Dir        string
		Lang       string
		ClientName string
		Colors     Colors
		Table      table
	}{
		Dir:        dir,
		Lang:       r.profile.Lang,
		ClientName: view.ClientName,
		Colors:     r.profile.Colors,
		Table:      buildTable(view, r.profile.Labels, r.profile.CompanyName, r.format),
	}
	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

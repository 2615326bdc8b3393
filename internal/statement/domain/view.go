package statement

import "time"

// View is the computed statement shown on screen and handed to every exporter.
type View struct {
	ClientID    string      `json:"client_id"`
	ClientName  string      `json:"client_name"`
	Filter      Filter      `json:"filter"`
	Lines       []Line      `json:"lines"`
	Totals      Totals      `json:"totals"`
	Rows        []ExportRow `json:"-"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// BuildView filters the snapshot, computes running balances and totals on the filtered
// set, and flattens the export rows.
func BuildView(snapshot Snapshot, filter Filter, now time.Time) View {
	filtered := FilterItems(snapshot.Items, filter)
	lines := ComputeRunningBalance(filtered)
	name := snapshot.ClientName
	if name == "" {
		name = snapshot.ClientID
	}
	return View{
		ClientID:    snapshot.ClientID,
		ClientName:  name,
		Filter:      filter,
		Lines:       lines,
		Totals:      ComputeTotals(filtered),
		Rows:        BuildExportRows(lines),
		GeneratedAt: now,
	}
}

package statement

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Line is an item annotated with the running balance after it, in chronological order.
type Line struct {
	Item
	Balance decimal.Decimal `json:"balance"`
}

// ComputeRunningBalance sorts items by date (stable, ties keep input order), accumulates
// debit minus credit, and returns the lines newest-first for display.
func ComputeRunningBalance(items []Item) []Line {
	lines := chronological(items)
	reverseLines(lines)
	return lines
}

// ComputeTotals sums debit and credit and takes the balance from the chronologically
// last item.
func ComputeTotals(items []Item) Totals {
	totals := Totals{
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		Balance:     decimal.Zero,
	}
	for _, item := range items {
		totals.TotalDebit = totals.TotalDebit.Add(item.Debit)
		totals.TotalCredit = totals.TotalCredit.Add(item.Credit)
	}
	if lines := chronological(items); len(lines) > 0 {
		totals.Balance = lines[len(lines)-1].Balance
	}
	return totals
}

// Reconcile compares computed totals against the totals the backend reported.
// The returned diff is computed minus reported.
func Reconcile(computed, reported Totals) (Totals, bool) {
	diff := Totals{
		TotalDebit:  computed.TotalDebit.Sub(reported.TotalDebit),
		TotalCredit: computed.TotalCredit.Sub(reported.TotalCredit),
		Balance:     computed.Balance.Sub(reported.Balance),
	}
	ok := diff.TotalDebit.IsZero() && diff.TotalCredit.IsZero() && diff.Balance.IsZero()
	return diff, ok
}

func chronological(items []Item) []Line {
	lines := make([]Line, len(items))
	for i, item := range items {
		lines[i] = Line{Item: item}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Date.Before(lines[j].Date)
	})
	balance := decimal.Zero
	for i := range lines {
		balance = balance.Add(lines[i].Net())
		lines[i].Balance = balance
	}
	return lines
}

func reverseLines(lines []Line) {
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
}

package statement

import "strings"

// Filter selects which items a statement shows.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterUnpaid Filter = "unpaid"
	FilterPaid   Filter = "paid"
)

// Filters lists every supported filter in display order.
var Filters = []Filter{FilterAll, FilterUnpaid, FilterPaid}

// ParseFilter validates a filter from user input. An empty value means all.
func ParseFilter(value string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(value))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterUnpaid:
		return FilterUnpaid, nil
	case FilterPaid:
		return FilterPaid, nil
	default:
		return "", ErrInvalidFilter
	}
}

// FilterItems returns the items matching the filter, preserving input order.
//
// Paid requires a debit: a standalone credit is settled but has nothing to pay off,
// so it appears in neither paid nor unpaid.
func FilterItems(items []Item, filter Filter) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		switch filter {
		case FilterUnpaid:
			if !item.Outstanding() {
				continue
			}
		case FilterPaid:
			if !item.Settled() || !item.Payable() {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

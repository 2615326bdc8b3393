package statement

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the timestamp formats the backend emits. Unparseable input yields the
// zero time.
func ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ParseAmount reads a JSON number or numeric string. Anything else yields zero.
func ParseAmount(raw json.RawMessage) decimal.Decimal {
	str := ParseString(raw)
	if str == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(str, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseString reads a JSON string or number as text. Other values yield "".
func ParseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}

// ParseAmountDetails normalises a payments or allocations collection.
//
// The backend sends either a JSON array or the same array encoded as a JSON string.
// Null, malformed input, or a string that is not an encoded array yields an empty
// collection; elements that are not objects are skipped.
func ParseAmountDetails(raw json.RawMessage) []AmountDetail {
	return parseAmountDetails(raw, true)
}

func parseAmountDetails(raw json.RawMessage, allowString bool) []AmountDetail {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []AmountDetail{}
	}
	switch raw[0] {
	case '"':
		if !allowString {
			return []AmountDetail{}
		}
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return []AmountDetail{}
		}
		return parseAmountDetails(json.RawMessage(inner), false)
	case '[':
	default:
		return []AmountDetail{}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return []AmountDetail{}
	}
	details := make([]AmountDetail, 0, len(elements))
	for _, element := range elements {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(element, &fields); err != nil || fields == nil {
			continue
		}
		details = append(details, AmountDetail{
			ID:          ParseString(fields["id"]),
			Amount:      ParseAmount(fields["amount"]),
			Date:        ParseDate(firstString(fields, "date", "payment_date", "allocated_at", "created_at")),
			Description: firstString(fields, "description", "notes", "note"),
			Method:      firstString(fields, "method", "payment_method"),
		})
	}
	return details
}

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		if value := ParseString(fields[key]); value != "" {
			return value
		}
	}
	return ""
}

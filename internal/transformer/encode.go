package transformer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EncodePolicy selects how raw field values become CSV-safe cell strings.
// The zero value is the plain policy: scalars in natural string form with a
// mandatory newline scrub, lists comma-joined.
//
// Encoding is applied per field, not per row, so mixed policies across
// columns in the same row are valid: All covers every category, Text covers
// string cells only, Lists covers list-valued cells only.
type EncodePolicy struct {
	// All JSON-encodes every value. Implies Text and Lists.
	All bool

	// Text JSON-encodes string values so user-entered text (newlines,
	// quotes) survives a spreadsheet round trip losslessly.
	Text bool

	// Lists JSON-encodes list values so the cell is machine-recoverable
	// into the original list. When off, lists are comma-joined, which is
	// readable but not guaranteed reversible.
	Lists bool
}

// Encode converts one raw value into its cell string. It never fails:
// values that cannot be JSON-marshaled (which decoded JSON never produces)
// fall back to fmt formatting.
func (p EncodePolicy) Encode(v any) string {
	if v == nil {
		return ""
	}
	if p.All {
		return jsonCell(v)
	}
	switch t := v.(type) {
	case string:
		if p.Text {
			return jsonCell(t)
		}
		return scrubNewlines(t)
	case []any:
		if p.Lists {
			return jsonCell(t)
		}
		return joinPlain(t)
	case map[string]any:
		// Maps have no useful plain form; keep them recoverable.
		return jsonCell(t)
	default:
		return naturalString(v)
	}
}

// jsonCell serializes a value losslessly for cell embedding.
func jsonCell(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// scrubNewlines applies the mandatory plain-text escape: carriage returns
// are removed and newlines become a literal backslash-n, so a cell can
// never break the physical CSV line structure on tools that mishandle
// quoted newlines.
func scrubNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", `\n`)
}

// joinPlain renders a list as a comma-joined string of its elements'
// natural forms.
func joinPlain(items []any) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		switch t := it.(type) {
		case nil:
			parts = append(parts, "")
		case string:
			parts = append(parts, scrubNewlines(t))
		case []any, map[string]any:
			parts = append(parts, jsonCell(t))
		default:
			parts = append(parts, naturalString(t))
		}
	}
	return strings.Join(parts, ",")
}

// naturalString renders a scalar in its natural form. JSON numbers arrive
// as float64; integral values print without a fractional part.
func naturalString(v any) string {
	switch t := v.(type) {
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

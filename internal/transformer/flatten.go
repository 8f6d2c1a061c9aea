package transformer

import (
	"fmt"

	"tweetcsv/internal/catalog"
	"tweetcsv/internal/record"
)

// Candidate is one flat, fully-encoded candidate row, ready for the
// coordinator to dedup-check, schema-merge, and emit.
type Candidate struct {
	// Line is the 1-based input line the row originated from.
	Line int

	// ID is the row's primary identifier, or "" for identity-less records.
	// Rows produced as reference expansions carry the referenced record's
	// own identifier.
	ID string

	// Role is the reference role that produced the row ("" for primary).
	Role string

	// Values maps dotted column names to encoded cell values.
	Values map[string]string

	// Keys holds the Values keys in sorted order, so column discovery is
	// deterministic regardless of map iteration.
	Keys []string
}

// Flattener walks an expanded record and produces the column-to-value
// mapping for its row. It is stateless and safe for concurrent use.
type Flattener struct {
	Policy EncodePolicy
}

// Flatten converts one expanded record into a candidate row. It is total
// for structurally valid records: missing fields simply yield no key, and
// unknown fields are carried through for the coordinator to keep or drop
// according to the schema mode.
func (f Flattener) Flatten(line int, x Expanded) Candidate {
	flat := x.Rec.Flatten()

	values := make(map[string]string, len(flat))
	for k, v := range flat {
		values[k] = f.Policy.Encode(v)
	}

	id, _ := x.Rec.ID()
	return Candidate{
		Line:   line,
		ID:     id,
		Role:   x.Role,
		Values: values,
		Keys:   record.SortedKeys(flat),
	}
}

// CheckShape verifies the minimal required shape for a record of the given
// kind before it enters the transform stages. Records of identity-carrying
// kinds must have an id; aggregate counts only need to be objects, which
// they already are by construction.
func CheckShape(kind catalog.Kind, rec record.Record) error {
	idField := catalog.IdentityField(kind)
	if idField == "" {
		return nil
	}
	if _, ok := rec.ID(); !ok {
		return fmt.Errorf("record of kind %q has no %s field", kind, idField)
	}
	return nil
}

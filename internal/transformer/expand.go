// Package transformer provides the streaming, per-record stages that turn
// parsed records into flat candidate rows: reference expansion, record
// formatting, flattening, field encoding, and de-duplication.
//
// Design goals:
//
//   - Stages are pure functions over a single record (plus its embedded
//     references); all cross-record state (seen-identifier set, column
//     schema) lives with the coordinator.
//   - Extraction is total: a structurally valid record never makes a stage
//     panic or error; malformed records are rejected up front by CheckShape.
//   - Deterministic output: candidate rows carry their discovered columns in
//     sorted order so schema evolution does not depend on map iteration.
package transformer

import (
	"fmt"

	"tweetcsv/internal/catalog"
	"tweetcsv/internal/record"
)

// RefMode selects how embedded referenced records are projected into rows.
type RefMode uint8

const (
	// RefMerge keeps one row per record and copies text, entities,
	// attachments, context annotations, and public metrics from the
	// dominant reference (a retweeted original) into the parent row.
	RefMerge RefMode = iota

	// RefIgnore drops references entirely; only the parent's own fields
	// appear in the row.
	RefIgnore

	// RefSeparate additionally emits each hydrated referenced record as its
	// own independent row (one level deep), before the parent's row.
	RefSeparate
)

// ParseRefMode maps the configuration string onto a RefMode. The empty
// string selects the default, RefMerge.
func ParseRefMode(s string) (RefMode, error) {
	switch s {
	case "", "merge":
		return RefMerge, nil
	case "ignore":
		return RefIgnore, nil
	case "separate":
		return RefSeparate, nil
	default:
		return RefMerge, fmt.Errorf("transformer: unknown reference-expansion mode %q", s)
	}
}

// Expanded is one record ready to flatten, tagged with the reference role
// that produced it ("" for the primary record).
type Expanded struct {
	Rec  record.Record
	Role string
}

// Expander resolves embedded references and normalizes record structure
// ahead of flattening. It is stateless apart from the shared Stats sink and
// safe for concurrent use.
type Expander struct {
	Kind            catalog.Kind
	Mode            RefMode
	ProcessEntities bool
	Stats           *Stats
}

// Expand returns the ordered sequence of records to flatten for one input
// record: length 1 in ignore/merge modes, length >= 1 in separate mode.
// The input record is never mutated; every returned record is a private
// clone, so the same record may appear again later in the stream.
func (e *Expander) Expand(rec record.Record) []Expanded {
	var out []Expanded

	if e.Mode == RefSeparate {
		if refs, ok := rec["referenced_tweets"].([]any); ok {
			for _, rv := range refs {
				ref, ok := record.FromAny(rv)
				if !ok {
					continue
				}
				e.stats().Referenced.Add(1)
				child := ref.Clone()
				// Referenced rows inherit the capture metadata of the
				// parent so provenance columns stay populated.
				if tw, ok := rec["__twarc"]; ok {
					child["__twarc"] = tw
				}
				if !hydrated(child) {
					e.stats().Unavailable.Add(1)
					continue
				}
				role, _ := child["type"].(string)
				out = append(out, Expanded{Rec: e.format(child), Role: role})
			}
		}
	}

	out = append(out, Expanded{Rec: e.format(rec.Clone()), Role: ""})
	return out
}

// hydrated reports whether a referenced record carries anything beyond the
// reference stub (type, id, and the inherited capture metadata). Stub-only
// references belong to records that were unavailable at collection time.
func hydrated(ref record.Record) bool {
	for k := range ref {
		switch k {
		case "type", "id", "__twarc":
		default:
			return true
		}
	}
	return false
}

// format rewrites one (already cloned) record into its flat-friendly form:
// reference stubs and derived reply/retweet/quote columns, merged retweet
// fields, display-form entities, and removal of structures that never
// become columns.
func (e *Expander) format(t record.Record) record.Record {
	delete(t, "pinned_tweet")
	delete(t, "in_reply_to_user")

	if refs, ok := t["referenced_tweets"].([]any); ok {
		if e.Mode == RefIgnore {
			delete(t, "referenced_tweets")
		} else {
			e.deriveReferenceColumns(t, refs)
			t["referenced_tweets"] = referenceStub(refs)
		}
	}

	if e.ProcessEntities {
		if ents, ok := t["entities"].(map[string]any); ok && len(ents) > 0 {
			processEntities(ents)
		}
		formatAuthorEntities(t)
	}

	if e.Kind == catalog.KindUsers && e.ProcessEntities {
		formatUserURL(t)
	}

	// Leftover from reference stubs that were expanded into their own rows.
	delete(t, "type")

	for _, k := range []string{"attachments", "entities", "public_metrics"} {
		if m, ok := t[k].(map[string]any); ok && len(m) == 0 {
			delete(t, k)
		}
	}
	return t
}

// deriveReferenceColumns fills the reply/retweet/quote convenience columns
// from the last reference of each role and, in merge-capable modes, copies
// the dominant reference's content fields into the parent row.
func (e *Expander) deriveReferenceColumns(t record.Record, refs []any) {
	reply := lastOfRole(refs, "replied_to")
	if _, ok := t["in_reply_to_user_id"]; ok || reply != nil {
		e.stats().Replies.Add(1)
	}
	if reply != nil {
		if u, ok := nestedString(reply, "author", "username"); ok {
			t["in_reply_to_username"] = u
		}
	}

	retweeted := lastOfRole(refs, "retweeted")
	if retweeted != nil {
		if aid, ok := retweeted["author_id"]; ok {
			e.stats().Retweets.Add(1)
			t["retweeted_user_id"] = aid
			if u, ok := nestedString(retweeted, "author", "username"); ok {
				t["retweeted_username"] = u
			}
		}
	}

	quoted := lastOfRole(refs, "quoted")
	if quoted != nil {
		if aid, ok := quoted["author_id"]; ok {
			e.stats().Quotes.Add(1)
			t["quoted_user_id"] = aid
			if u, ok := nestedString(quoted, "author", "username"); ok {
				t["quoted_username"] = u
			}
		}
	}

	// A native retweet inherits the original's content but keeps its own
	// author. Only the retweeted role is merged; quoted and replied_to
	// references keep the row schema deterministic by staying stubs.
	if retweeted != nil {
		for _, f := range []string{"text", "entities", "attachments", "context_annotations", "public_metrics"} {
			if v, ok := retweeted[f]; ok {
				t[f] = v
			}
		}
	}
}

// referenceStub reduces the reference list to a role-keyed map of bare ids,
// so rows keep the relation without the referenced record's full content.
// The first reference of each role wins.
func referenceStub(refs []any) map[string]any {
	stub := make(map[string]any, len(refs))
	for _, rv := range refs {
		ref, ok := record.FromAny(rv)
		if !ok {
			continue
		}
		role, _ := ref["type"].(string)
		if role == "" {
			continue
		}
		if _, exists := stub[role]; exists {
			continue
		}
		stub[role] = map[string]any{"id": ref["id"]}
	}
	return stub
}

// lastOfRole returns the last reference with the given role, or nil.
func lastOfRole(refs []any, role string) record.Record {
	var found record.Record
	for _, rv := range refs {
		ref, ok := record.FromAny(rv)
		if !ok {
			continue
		}
		if r, _ := ref["type"].(string); r == role {
			found = ref
		}
	}
	return found
}

// nestedString resolves rec[outer][inner] as a string.
func nestedString(rec record.Record, outer, inner string) (string, bool) {
	m, ok := rec[outer].(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := m[inner].(string)
	return s, ok
}

package transformer

import (
	"sort"
	"testing"

	"tweetcsv/internal/catalog"
	"tweetcsv/internal/record"
)

func TestFlattenProducesEncodedRow(t *testing.T) {
	t.Parallel()

	in := rec(t, `{
		"id": "1367531",
		"text": "line one\nline two",
		"author": {"username": "jack"},
		"edit_history_tweet_ids": ["1367531"],
		"possibly_sensitive": false
	}`)

	f := Flattener{Policy: EncodePolicy{Lists: true}}
	cand := f.Flatten(7, Expanded{Rec: in, Role: ""})

	if cand.Line != 7 {
		t.Errorf("Line = %d, want 7", cand.Line)
	}
	if cand.ID != "1367531" {
		t.Errorf("ID = %q, want 1367531", cand.ID)
	}

	wantValues := map[string]string{
		"id":                     "1367531",
		"text":                   `line one\nline two`,
		"author.username":        "jack",
		"edit_history_tweet_ids": `["1367531"]`,
		"possibly_sensitive":     "false",
	}
	for k, want := range wantValues {
		if got := cand.Values[k]; got != want {
			t.Errorf("Values[%q] = %q, want %q", k, got, want)
		}
	}
	if len(cand.Values) != len(wantValues) {
		t.Errorf("got %d values, want %d: %v", len(cand.Values), len(wantValues), cand.Values)
	}

	if !sort.StringsAreSorted(cand.Keys) {
		t.Errorf("Keys not sorted: %v", cand.Keys)
	}
	if len(cand.Keys) != len(cand.Values) {
		t.Errorf("Keys/Values length mismatch: %d vs %d", len(cand.Keys), len(cand.Values))
	}
}

func TestFlattenCarriesRole(t *testing.T) {
	t.Parallel()

	in := rec(t, `{"id": "9"}`)
	cand := Flattener{}.Flatten(1, Expanded{Rec: in, Role: "retweeted"})
	if cand.Role != "retweeted" {
		t.Errorf("Role = %q, want retweeted", cand.Role)
	}
}

func TestCheckShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		kind    catalog.Kind
		rec     record.Record
		wantErr bool
	}{
		{"tweet with id", catalog.KindTweets, record.Record{"id": "1"}, false},
		{"tweet without id", catalog.KindTweets, record.Record{"text": "x"}, true},
		{"tweet with empty id", catalog.KindTweets, record.Record{"id": ""}, true},
		{"user without id", catalog.KindUsers, record.Record{"username": "a"}, true},
		{"counts without id", catalog.KindCounts, record.Record{"tweet_count": float64(3)}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := CheckShape(tc.kind, tc.rec)
			if (err != nil) != tc.wantErr {
				t.Errorf("CheckShape() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

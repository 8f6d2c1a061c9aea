package jsonl

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type skip struct {
	line   int
	reason SkipReason
}

// drain runs StreamRecords over the input and collects items and skips.
func drain(t *testing.T, input string) (items []Item, skips []skip, lines int) {
	t.Helper()

	out := make(chan Item, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for it := range out {
			items = append(items, it)
		}
	}()

	n, err := StreamRecords(context.Background(), strings.NewReader(input), out,
		func(line int, reason SkipReason, err error) {
			skips = append(skips, skip{line, reason})
		})
	close(out)
	<-done
	if err != nil {
		t.Fatalf("StreamRecords: %v", err)
	}
	return items, skips, n
}

func TestStreamRecordsEnvelopes(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"id":"1"}`,
		`{"data":{"id":"2"}}`,
		`{"data":[{"id":"3"},{"id":"4"}]}`,
	}, "\n")

	items, skips, lines := drain(t, input)

	if lines != 3 {
		t.Errorf("lines = %d, want 3", lines)
	}
	if len(skips) != 0 {
		t.Errorf("unexpected skips: %v", skips)
	}

	wantIDs := []string{"1", "2", "3", "4"}
	wantLines := []int{1, 2, 3, 3}
	if len(items) != len(wantIDs) {
		t.Fatalf("got %d items, want %d", len(items), len(wantIDs))
	}
	for i, it := range items {
		id, _ := it.Rec.ID()
		if id != wantIDs[i] || it.Line != wantLines[i] {
			t.Errorf("item %d = (line %d, id %q), want (line %d, id %q)",
				i, it.Line, id, wantLines[i], wantIDs[i])
		}
	}
}

func TestStreamRecordsSkips(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"id":"1"}`,
		``,              // blank: silently skipped, still counted as a line
		`{not json`,     // parse error
		`"just a string"`, // non-object
		`[1,2]`,         // non-object
		`{"id":"2"}`,
	}, "\n")

	items, skips, lines := drain(t, input)

	if lines != 6 {
		t.Errorf("lines = %d, want 6", lines)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	want := []skip{
		{3, SkipParseError},
		{4, SkipNonObject},
		{5, SkipNonObject},
	}
	if len(skips) != len(want) {
		t.Fatalf("skips = %v, want %v", skips, want)
	}
	for i := range want {
		if skips[i] != want[i] {
			t.Errorf("skip %d = %v, want %v", i, skips[i], want[i])
		}
	}
}

func TestStreamRecordsCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Unbuffered channel with no reader: the send must yield to ctx.Done.
	out := make(chan Item)
	_, err := StreamRecords(ctx, strings.NewReader(`{"id":"1"}`), out,
		func(int, SkipReason, error) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// Package jsonl provides the streaming reader that turns line-delimited
// JSON into records for the conversion pipeline.
//
// High-level flow:
//
//  1. Read the input line by line with a bufio.Scanner sized for very long
//     lines (a single captured response can run to megabytes).
//  2. Decode each non-blank line independently with encoding/json.
//  3. Unwrap the envelope shapes raw capture files use ({"data": [...]},
//     {"data": {...}}, or a bare object) into individual records.
//  4. Stream records into the 'out' channel for downstream expand/flatten.
//
// Per-line decode failures are reported through onSkip and the stream
// continues; the reader itself only fails on I/O errors or cancellation.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"tweetcsv/internal/record"
)

// Skip reasons passed to the onSkip callback.
type SkipReason uint8

const (
	// SkipParseError marks a line that was not valid JSON.
	SkipParseError SkipReason = iota
	// SkipNonObject marks a line (or data element) that decoded to
	// something other than an object, e.g. a streaming API error string.
	SkipNonObject
)

// Item is one record read from the stream, tagged with its input line.
type Item struct {
	Line int
	Rec  record.Record
}

// maxLineBytes bounds a single input line. Captured responses with full
// expansions stay well under this.
const maxLineBytes = 64 << 20

// StreamRecords reads line-delimited JSON from r and streams unwrapped
// records into 'out' in input order. It returns the number of lines read
// (including blank and skipped ones) and the first fatal error, if any.
//
// Contract:
//
//   - The function is single-threaded: record-level parallelism is the
//     coordinator's concern, and input order is preserved on the channel.
//   - onSkip is invoked for every line that yields no records, with the
//     1-based line number; it must be non-nil.
//   - The caller owns 'out' and closes nothing here; StreamRecords simply
//     returns when input is exhausted or ctx is canceled.
func StreamRecords(
	ctx context.Context,
	r io.Reader,
	out chan<- Item,
	onSkip func(line int, reason SkipReason, err error),
) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for sc.Scan() {
		line++

		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			onSkip(line, SkipParseError, err)
			continue
		}

		recs := record.Unwrap(v)
		if len(recs) == 0 {
			onSkip(line, SkipNonObject, fmt.Errorf("line is not a JSON object"))
			continue
		}

		for _, rec := range recs {
			select {
			case out <- Item{Line: line, Rec: rec}:
			case <-ctx.Done():
				return line, ctx.Err()
			}
		}
	}
	if err := sc.Err(); err != nil {
		return line, fmt.Errorf("jsonl: read line %d: %w", line+1, err)
	}
	return line, nil
}

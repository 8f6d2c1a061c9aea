// Package main wires the conversion pipeline end-to-end in a streaming,
// chunked fashion. This file keeps the CLI layer thin: it depends only on
// the sink-agnostic storage interface and never imports backend packages
// directly.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tweetcsv/internal/catalog"
	"tweetcsv/internal/config"
	"tweetcsv/internal/datasource"
	"tweetcsv/internal/datasource/file"
	"tweetcsv/internal/datasource/httpds"
	"tweetcsv/internal/metrics"
	"tweetcsv/internal/parser/jsonl"
	"tweetcsv/internal/storage"
	"tweetcsv/internal/transformer"
)

// firstN bounds how many example messages each error aggregator keeps.
const firstN = 3

// counters holds cross-goroutine statistics for a streaming run.
//
// All fields are updated atomically; lines is written once by the reader
// goroutine before its completion is observed through the error channel.
type counters struct {
	lines       atomic.Int64 // input lines read (including blank/skipped)
	records     atomic.Int64 // records entering the transform stages
	parseErrors atomic.Int64 // lines that were not valid JSON
	nonObjects  atomic.Int64 // lines/elements that were not objects
	malformed   atomic.Int64 // records missing their kind's required shape
	duplicates  atomic.Int64 // candidate rows whose identifier was already seen
	rows        atomic.Int64 // rows emitted (or buffered, in adaptive mode)
	chunks      atomic.Int64 // chunks processed
}

// Function variables used to introduce test seams. In production these
// point to real implementations; tests can override them.
var (
	openSourceFn = openSource
	newSinkFn    = storage.New
)

// converter owns the run-scoped state the coordinator serializes on: the
// evolving column schema, the seen-identifier set, and the output buffer
// used by the adaptive-schema mode. All other stages are stateless.
type converter struct {
	spec config.Pipeline
	kind catalog.Kind

	outputCols []string            // allow-list; nil means all schema columns
	schema     []string            // evolving column union (adaptive mode)
	schemaIdx  map[string]struct{} // membership index for schema
	adaptive   bool

	expander  *transformer.Expander
	flattener transformer.Flattener
	seen      *transformer.SeenSet
	allowDup  bool
	strict    bool
	workers   int

	sink     storage.Sink
	buffered []map[string]string // adaptive mode: encoded rows awaiting the final header

	stats     transformer.Stats
	counts    counters
	parseAgg  *errAgg
	shapeAgg  *errAgg
	columnAgg *errAgg
	warned    map[string]struct{} // fixed mode: columns already warned about

	mu       sync.Mutex
	fatalErr error // first strict-mode violation observed by the reader
}

// runStreamed executes a full read -> expand -> flatten -> dedup -> encode
// -> sink run in a streaming, chunked, and concurrent fashion.
//
// Malformed records are dropped before the sink (fail-soft semantics)
// unless strict mode is on, while parse/shape errors are aggregated and
// summarized at the end. Concurrency model:
//
//	Reader (JSONL; 1 goroutine, input order preserved)
//	     -> chunk accumulation (bounded by runtime.batch_size)
//	     -> N workers transform the chunk's records into candidate rows
//	     -> single-threaded pass applies dedup-mark and schema-merge in
//	        input order, then emits to the sink
//
// Peak memory is O(batch_size) plus the seen-identifier set, which grows
// with the number of distinct ids. Adaptive-schema mode is the exception:
// it buffers all rows so the header can be the full column union.
func runStreamed(ctx context.Context, spec config.Pipeline) error {
	kind := catalog.Kind(spec.Input.Kind)
	inputCols, err := catalog.BuildColumns(kind, spec.Input.ExtraColumns)
	if err != nil {
		return err
	}

	mode, err := transformer.ParseRefMode(spec.Convert.References)
	if err != nil {
		return err
	}

	var outputCols []string
	for _, oc := range spec.Input.OutputColumns {
		outputCols = append(outputCols, catalog.NormalizeColumnName(oc))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink, err := newSinkFn(ctx, sinkConfig(spec))
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}

	c := &converter{
		spec:       spec,
		kind:       kind,
		outputCols: outputCols,
		schema:     append([]string(nil), inputCols...),
		schemaIdx:  indexOf(inputCols),
		adaptive:   spec.Output.Schema == "adaptive",
		flattener: transformer.Flattener{Policy: transformer.EncodePolicy{
			All:   spec.Convert.Encode.All,
			Text:  spec.Convert.Encode.Text,
			Lists: spec.Convert.Encode.ListsEnabled(),
		}},
		seen:      transformer.NewSeenSet(spec.Runtime.MaxSeenIDs),
		allowDup:  spec.Convert.AllowDuplicates,
		strict:    spec.Runtime.Strict,
		workers:   spec.Runtime.WorkersOrDefault(),
		sink:      sink,
		parseAgg:  newErrAgg(firstN),
		shapeAgg:  newErrAgg(firstN),
		columnAgg: newErrAgg(firstN),
		warned:    make(map[string]struct{}),
	}
	c.expander = &transformer.Expander{
		Kind:            kind,
		Mode:            mode,
		ProcessEntities: spec.Convert.ProcessEntitiesEnabled(),
		Stats:           &c.stats,
	}

	defer func() {
		if cerr := sink.Close(context.WithoutCancel(ctx)); cerr != nil {
			log.Printf("sink close: %v", cerr)
		}
	}()

	// Streaming-safe mode fixes the header contract before any input is
	// consumed; adaptive mode defers it until the column union is final.
	if !c.adaptive {
		if err := sink.WriteHeader(ctx, c.header()); err != nil {
			return err
		}
	}

	src, err := openSourceFn(ctx, spec)
	if err != nil {
		return fmt.Errorf("source open: %w", err)
	}
	defer src.Close()

	batch := spec.Runtime.BatchSizeOrDefault()
	items := make(chan jsonl.Item, batch)
	readErr := make(chan error, 1)

	go func() {
		defer close(items)
		n, rerr := jsonl.StreamRecords(ctx, src, items, c.onSkip)
		c.counts.lines.Store(int64(n))
		readErr <- rerr
	}()

	chunk := make([]jsonl.Item, 0, batch)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := c.processChunk(ctx, chunk); err != nil {
			return err
		}
		c.counts.chunks.Add(1)
		chunk = chunk[:0]
		return nil
	}

	for it := range items {
		if ferr := c.fatal(); ferr != nil {
			return ferr
		}
		chunk = append(chunk, it)
		if len(chunk) == batch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if rerr := <-readErr; rerr != nil {
		return fmt.Errorf("read input: %w", rerr)
	}
	if ferr := c.fatal(); ferr != nil {
		return ferr
	}
	if err := flush(); err != nil {
		return err
	}
	if err := c.finish(ctx); err != nil {
		return err
	}

	c.logSummary()
	c.publishMetrics()
	return nil
}

// processChunk transforms one chunk: records become candidate rows in
// parallel, then a single-threaded pass applies dedup and schema-merge in
// input order so results are deterministic and independent of chunk size.
func (c *converter) processChunk(ctx context.Context, chunk []jsonl.Item) error {
	cands := make([][]transformer.Candidate, len(chunk))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i := range chunk {
		g.Go(func() error {
			it := chunk[i]
			if err := transformer.CheckShape(c.kind, it.Rec); err != nil {
				if c.strict {
					return fmt.Errorf("line %d: %w", it.Line, err)
				}
				c.counts.malformed.Add(1)
				c.shapeAgg.add(fmt.Sprintf("line %d: %v", it.Line, err))
				return nil
			}
			c.counts.records.Add(1)

			expanded := c.expander.Expand(it.Rec)
			rows := make([]transformer.Candidate, 0, len(expanded))
			for _, x := range expanded {
				rows = append(rows, c.flattener.Flatten(it.Line, x))
			}
			cands[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Serialization point: dedup-check-and-mark and schema mutation happen
	// in original input order.
	for _, rows := range cands {
		for _, cand := range rows {
			emit, err := c.admit(cand)
			if err != nil {
				return err
			}
			if !emit {
				continue
			}
			c.mergeSchema(cand)
			if err := c.emit(ctx, cand); err != nil {
				return err
			}
		}
	}
	return nil
}

// admit applies the deduplication rule: identity-less rows always pass;
// identified rows pass at most once unless duplicates are allowed.
// Duplicate occurrences are counted either way.
func (c *converter) admit(cand transformer.Candidate) (bool, error) {
	if cand.ID == "" {
		return true, nil
	}
	dup, err := c.seen.Mark(cand.ID)
	if err != nil {
		return false, fmt.Errorf("line %d: %w", cand.Line, err)
	}
	if dup {
		c.counts.duplicates.Add(1)
		if !c.allowDup {
			return false, nil
		}
	}
	return true, nil
}

// mergeSchema folds a row's discovered columns into the run schema. In
// adaptive mode new columns join the union; in streaming-safe mode they are
// dropped with a warning rather than breaking the header contract.
func (c *converter) mergeSchema(cand transformer.Candidate) {
	for _, k := range cand.Keys {
		if _, ok := c.schemaIdx[k]; ok {
			continue
		}
		if c.adaptive {
			c.schemaIdx[k] = struct{}{}
			c.schema = append(c.schema, k)
			continue
		}
		if _, done := c.warned[k]; done {
			continue
		}
		c.warned[k] = struct{}{}
		c.columnAgg.add(fmt.Sprintf(
			"line %d: unexpected column %q dropped; declare it in input.extra_columns to keep it",
			cand.Line, k,
		))
	}
}

// emit hands one admitted row to the sink (fixed mode) or buffers it until
// the final header is known (adaptive mode).
func (c *converter) emit(ctx context.Context, cand transformer.Candidate) error {
	c.counts.rows.Add(1)
	if c.adaptive {
		c.buffered = append(c.buffered, cand.Values)
		return nil
	}
	return c.sink.WriteRow(ctx, projectRow(cand.Values, c.header()))
}

// finish completes the run: adaptive mode writes the header (the final
// column union, or the declared allow-list) and all buffered rows; both
// modes flush the sink.
func (c *converter) finish(ctx context.Context) error {
	if c.adaptive {
		header := c.header()
		if err := c.sink.WriteHeader(ctx, header); err != nil {
			return err
		}
		for _, vals := range c.buffered {
			if err := c.sink.WriteRow(ctx, projectRow(vals, header)); err != nil {
				return err
			}
		}
	}
	return c.sink.Flush(ctx)
}

// header resolves the emitted column list: the caller's allow-list when
// declared, otherwise the full schema.
func (c *converter) header() []string {
	if len(c.outputCols) > 0 {
		return c.outputCols
	}
	return c.schema
}

// onSkip records reader-level skips. In strict mode the first parse error
// is latched as fatal; the coordinator observes it between items.
func (c *converter) onSkip(line int, reason jsonl.SkipReason, err error) {
	switch reason {
	case jsonl.SkipParseError:
		c.counts.parseErrors.Add(1)
		c.parseAgg.add(fmt.Sprintf("line %d: %v", line, err))
		if c.strict {
			c.setFatal(fmt.Errorf("line %d: %w", line, err))
		}
	case jsonl.SkipNonObject:
		c.counts.nonObjects.Add(1)
	}
}

func (c *converter) setFatal(err error) {
	c.mu.Lock()
	if c.fatalErr == nil {
		c.fatalErr = err
	}
	c.mu.Unlock()
}

func (c *converter) fatal() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatalErr
}

// logSummary emits the end-of-run statistics and the first few aggregated
// error messages per stage.
func (c *converter) logSummary() {
	log.Printf(
		"summary: lines=%d records=%d rows=%d duplicates=%d parse_errors=%d non_objects=%d malformed=%d seen_ids=%d chunks=%d",
		c.counts.lines.Load(), c.counts.records.Load(), c.counts.rows.Load(),
		c.counts.duplicates.Load(), c.counts.parseErrors.Load(),
		c.counts.nonObjects.Load(), c.counts.malformed.Load(),
		c.seen.Len(), c.counts.chunks.Load(),
	)
	if c.kind == catalog.KindTweets {
		log.Printf(
			"references: referenced=%d unavailable=%d retweets=%d quotes=%d replies=%d",
			c.stats.Referenced.Load(), c.stats.Unavailable.Load(),
			c.stats.Retweets.Load(), c.stats.Quotes.Load(), c.stats.Replies.Load(),
		)
	}
	logAgg("parse", c.parseAgg)
	logAgg("shape", c.shapeAgg)
	logAgg("columns", c.columnAgg)
}

// publishMetrics forwards the run counters to the metrics backend.
func (c *converter) publishMetrics() {
	job := c.spec.Job
	metrics.RecordCount(job, "lines", c.counts.lines.Load())
	metrics.RecordCount(job, "records", c.counts.records.Load())
	metrics.RecordCount(job, "rows", c.counts.rows.Load())
	metrics.RecordCount(job, "duplicates", c.counts.duplicates.Load())
	metrics.RecordCount(job, "parse_errors", c.counts.parseErrors.Load())
	metrics.RecordCount(job, "non_objects", c.counts.nonObjects.Load())
	metrics.RecordCount(job, "malformed", c.counts.malformed.Load())
	metrics.RecordChunks(job, c.counts.chunks.Load())
}

// projectRow aligns an encoded row onto the header columns, padding
// missing columns with the empty value.
func projectRow(values map[string]string, header []string) []string {
	out := make([]string, len(header))
	for i, col := range header {
		out[i] = values[col]
	}
	return out
}

// indexOf builds a membership index over a column list.
func indexOf(cols []string) map[string]struct{} {
	idx := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		idx[c] = struct{}{}
	}
	return idx
}

// sinkConfig maps the pipeline spec onto the storage configuration.
func sinkConfig(spec config.Pipeline) storage.Config {
	return storage.Config{
		Kind:       spec.Output.Kind,
		Path:       spec.Output.CSV.Path,
		Gzip:       spec.Output.CSV.Gzip,
		DSN:        spec.Output.DB.DSN,
		Table:      spec.Output.DB.Table,
		AutoCreate: spec.Output.DB.AutoCreateTable,
		CopyBatch:  spec.Output.DB.CopyBatchOrDefault(),
	}
}

// openSource builds the configured data source and opens its stream.
func openSource(ctx context.Context, spec config.Pipeline) (io.ReadCloser, error) {
	src, err := buildSource(spec.Source)
	if err != nil {
		return nil, err
	}
	return src.Open(ctx)
}

// buildSource maps the source config onto a datasource implementation.
func buildSource(s config.Source) (datasource.Source, error) {
	switch s.Kind {
	case "", "file":
		return file.NewLocal(s.File.Path), nil
	case "stdin":
		return file.NewLocal("-"), nil
	case "http":
		client := httpds.NewClient(httpds.Config{
			Timeout:            time.Duration(s.HTTP.TimeoutSeconds) * time.Second,
			MaxRetries:         s.HTTP.MaxRetries,
			InsecureSkipVerify: s.HTTP.InsecureSkipVerify,
			BaseHeaders:        httpds.AuthHeaders(s.HTTP.BearerToken),
		})
		return httpds.NewRemote(client, s.HTTP.URL), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", s.Kind)
	}
}

// logAgg prints the first few aggregated messages for one stage.
func logAgg(stage string, a *errAgg) {
	total, first := a.snapshot()
	if total == 0 {
		return
	}
	log.Printf("%s: %d issue(s); first %d:", stage, total, len(first))
	for _, msg := range first {
		log.Printf("  %s", msg)
	}
}

// errAgg aggregates error messages, keeping counts per distinct message
// and the first few examples for the end-of-run summary.
type errAgg struct {
	mu      sync.Mutex
	limit   int
	count   int
	first   []string
	buckets map[string]int
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[string]int)}
}

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	a.buckets[msg]++
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}

func (a *errAgg) snapshot() (int, []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count, append([]string(nil), a.first...)
}

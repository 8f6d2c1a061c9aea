// Package config defines the canonical, JSON-serializable configuration model
// for the converter. It is intentionally small, explicit, and dependency-free
// so that run specs can be loaded from disk (or built in code) and passed
// through the program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in run spec
//     files.
//  3. Minimalism: Decoding is performed by the standard library; defaulting
//     is explicit via the *OrDefault helpers.
//
// Example (trimmed):
//
//	{
//	  "job":     "archive-export",
//	  "source":  { "kind": "file", "file": { "path": "tweets.jsonl" } },
//	  "input":   { "kind": "tweets" },
//	  "convert": { "references": "merge", "encode": { "lists": true } },
//	  "output":  { "kind": "csv", "schema": "fixed", "csv": { "path": "out.csv" } }
//	}
package config

// Pipeline describes one full conversion run. It is the top-level object
// decoded from a run spec file.
type Pipeline struct {
	// Job names the run; it is used for metrics labeling and log context.
	Job string `json:"job"`

	// Source describes where the line-delimited JSON input comes from.
	Source Source `json:"source"`

	// Input selects the record kind and column declarations for the run.
	Input Input `json:"input"`

	// Convert holds the record-to-row transformation knobs.
	Convert Convert `json:"convert"`

	// Output selects the sink and the schema-stability strategy.
	Output Output `json:"output"`

	// Runtime controls chunking, concurrency, and safety limits.
	Runtime RuntimeConfig `json:"runtime"`
}

// Source identifies the data source.
type Source struct {
	// Kind selects the source implementation: "file", "stdin", or "http".
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`

	// HTTP carries options for the "http" source kind.
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file. "-" means stdin;
	// a ".gz" suffix is decompressed transparently.
	Path string `json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	// URL of the capture file to stream.
	URL string `json:"url"`

	// BearerToken, when set, is sent as an Authorization header.
	BearerToken string `json:"bearer_token"`

	// TimeoutSeconds is the per-request timeout. 0 means the client default.
	TimeoutSeconds int `json:"timeout_seconds"`

	// MaxRetries is the number of retry attempts after the initial request.
	MaxRetries int `json:"max_retries"`

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `json:"insecure_skip_verify"`
}

// Input declares the record kind and the column surface of the run.
type Input struct {
	// Kind is the record kind: "tweets", "users", "compliance", "counts",
	// or "lists". The stream must be homogeneous for the chosen kind.
	Kind string `json:"kind"`

	// ExtraColumns declares additional input columns (dotted extraction
	// paths) beyond the kind's canonical set. Names are normalized before
	// use.
	ExtraColumns []string `json:"extra_columns"`

	// OutputColumns restricts emitted columns to this subset, order
	// preserved. Empty means "all input columns".
	OutputColumns []string `json:"output_columns"`
}

// Convert holds the transformation options consumed by the converter core.
type Convert struct {
	// References selects the reference-expansion mode: "ignore", "merge"
	// (default), or "separate".
	References string `json:"references"`

	// AllowDuplicates disables primary-row deduplication. Duplicate
	// occurrences are still counted either way.
	AllowDuplicates bool `json:"allow_duplicates"`

	// ProcessEntities rewrites entity lists (hashtags, mentions, urls, ...)
	// into their display forms. Defaults to true; use a literal false to
	// keep raw entity objects.
	ProcessEntities *bool `json:"process_entities"`

	// Encode configures the per-category field encoding policy.
	Encode EncodeConfig `json:"encode"`
}

// EncodeConfig selects which value categories are JSON-encoded in cells.
type EncodeConfig struct {
	// All JSON-encodes every non-empty cell. Implies Text and Lists.
	All bool `json:"all"`

	// Text JSON-encodes string cells (user-entered text stays lossless).
	Text bool `json:"text"`

	// Lists JSON-encodes list-valued cells. Defaults to true because naive
	// stringification of lists is ambiguous; use a literal false to get a
	// plain comma-joined form.
	Lists *bool `json:"lists"`
}

// Output selects the sink used to persist emitted rows.
type Output struct {
	// Kind selects the sink implementation: "csv" (default) or "postgres".
	Kind string `json:"kind"`

	// Schema selects the schema-stability strategy: "fixed" (default,
	// streaming-safe) or "adaptive" (buffer rows, final header is the
	// column union).
	Schema string `json:"schema"`

	// CSV carries options for the "csv" sink kind.
	CSV CSVOutput `json:"csv"`

	// DB carries options for the "postgres" sink kind.
	DB DBConfig `json:"db"`
}

// CSVOutput holds configuration for the CSV sink.
type CSVOutput struct {
	// Path is the output file path. "" or "-" means stdout.
	Path string `json:"path"`

	// Gzip compresses the output. Implied by a ".gz" path suffix.
	Gzip bool `json:"gzip"`
}

// DBConfig configures the Postgres sink.
type DBConfig struct {
	// DSN is the connection string for pgx/pgxpool.
	DSN string `json:"dsn"`

	// Table is the fully qualified target table name (e.g., "public.tweets").
	Table string `json:"table"`

	// AutoCreateTable creates the target table (all text columns) when it
	// does not exist yet.
	AutoCreateTable bool `json:"auto_create_table"`

	// CopyBatch is the number of rows per COPY flush. 0 means default.
	CopyBatch int `json:"copy_batch"`
}

// RuntimeConfig controls chunking, concurrency, and resource limits.
type RuntimeConfig struct {
	// BatchSize is the number of input records per processing chunk.
	BatchSize int `json:"batch_size"`

	// Workers is the number of parallel record-transform workers per chunk.
	Workers int `json:"workers"`

	// MaxSeenIDs bounds the seen-identifier set; 0 means unbounded. When
	// the bound is exceeded the run fails rather than silently truncating.
	MaxSeenIDs int `json:"max_seen_ids"`

	// Strict makes the first malformed record fatal instead of skip+report.
	Strict bool `json:"strict"`
}

// Defaults used when the corresponding config values are zero.
const (
	DefaultBatchSize = 100
	DefaultWorkers   = 4
	DefaultCopyBatch = 1000
)

// ProcessEntitiesEnabled resolves the tri-state ProcessEntities flag.
func (c Convert) ProcessEntitiesEnabled() bool {
	return c.ProcessEntities == nil || *c.ProcessEntities
}

// ListsEnabled resolves the tri-state Lists flag.
func (e EncodeConfig) ListsEnabled() bool {
	return e.Lists == nil || *e.Lists
}

// BatchSizeOrDefault resolves the chunk size for a run.
func (r RuntimeConfig) BatchSizeOrDefault() int {
	if r.BatchSize > 0 {
		return r.BatchSize
	}
	return DefaultBatchSize
}

// WorkersOrDefault resolves the per-chunk worker count for a run.
func (r RuntimeConfig) WorkersOrDefault() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return DefaultWorkers
}

// CopyBatchOrDefault resolves the COPY flush size for the Postgres sink.
func (d DBConfig) CopyBatchOrDefault() int {
	if d.CopyBatch > 0 {
		return d.CopyBatch
	}
	return DefaultCopyBatch
}

// Package storage defines the sink abstraction finished rows are handed to,
// and a registry-based factory so the coordinator stays backend-agnostic.
// Concrete sinks live in subpackages (csvfile, postgres) and register
// themselves at init time; callers blank-import storage/all to compile in
// support for every backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a sink backend.
type Config struct {
	// Kind selects the backend: "csv" or "postgres".
	Kind string

	// Path is the CSV output path ("" or "-" for stdout).
	Path string

	// Gzip compresses CSV output. Implied by a ".gz" Path suffix.
	Gzip bool

	// DSN, Table, AutoCreate, CopyBatch configure the postgres backend.
	DSN        string
	Table      string
	AutoCreate bool
	CopyBatch  int
}

// Sink receives the header once, then finished rows in emission order.
//
// Contract:
//
//   - WriteHeader is called exactly once, before any WriteRow, and performs
//     any deferred resource creation (opening the output file, creating the
//     table). Until it is called, nothing is visible externally; this is
//     what lets the adaptive-schema mode guarantee all-or-nothing output.
//   - Every row has exactly len(header) values, already encoded; the sink
//     is solely responsible for physical quoting/escaping.
//   - Close flushes and releases resources; it is safe to call after an
//     aborted run that never wrote a header.
type Sink interface {
	WriteHeader(ctx context.Context, columns []string) error
	WriteRow(ctx context.Context, values []string) error
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// Factory builds a Sink from a Config.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs a sink factory under a kind name. Backends call this
// from init; duplicate registration is a programming error and panics.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := factories[kind]; dup {
		panic(fmt.Sprintf("storage: duplicate registration for kind %q", kind))
	}
	factories[kind] = fn
}

// New constructs the sink for cfg.Kind. An empty kind selects "csv".
func New(ctx context.Context, cfg Config) (Sink, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = "csv"
	}
	regMu.RLock()
	fn, ok := factories[kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown sink kind %q (registered: %v)", kind, Kinds())
	}
	return fn(ctx, cfg)
}

// Kinds lists the registered backend names, sorted.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Package csvfile implements the CSV sink. Rows are written through a
// swiftcsv.Writer, which handles quoting of delimiter, quote, and newline
// characters; output optionally passes through a gzip stage.
//
// The output file (or stdout) is opened lazily on WriteHeader so that an
// aborted adaptive-schema run leaves no partial file behind.
package csvfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/oleg578/swiftcsv"

	"tweetcsv/internal/storage"
)

func init() {
	storage.Register("csv", func(_ context.Context, cfg storage.Config) (storage.Sink, error) {
		return &Sink{
			path: cfg.Path,
			gzip: cfg.Gzip || strings.HasSuffix(cfg.Path, ".gz"),
		}, nil
	})
}

// Sink writes CSV rows to a file or stdout.
type Sink struct {
	path string
	gzip bool

	file *os.File // nil when writing to stdout
	gz   *gzip.Writer
	w    *swiftcsv.Writer
}

// NewWriterSink wraps an arbitrary io.Writer, for tests and embedding.
// The returned sink never closes w.
func NewWriterSink(w io.Writer) *Sink {
	return &Sink{w: swiftcsv.NewWriter(w)}
}

// WriteHeader opens the destination and writes the header row.
func (s *Sink) WriteHeader(_ context.Context, columns []string) error {
	if s.w == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	if err := s.w.Write(columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	return nil
}

// WriteRow writes one record.
func (s *Sink) WriteRow(_ context.Context, values []string) error {
	if s.w == nil {
		return fmt.Errorf("csv: WriteRow before WriteHeader")
	}
	if err := s.w.Write(values); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	return nil
}

// Flush pushes buffered data down the writer chain.
func (s *Sink) Flush(_ context.Context) error {
	if s.w == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	if s.gz != nil {
		if err := s.gz.Flush(); err != nil {
			return fmt.Errorf("csv: gzip flush: %w", err)
		}
	}
	return nil
}

// Close flushes and releases the writer chain. Safe to call when the
// header was never written.
func (s *Sink) Close(ctx context.Context) error {
	if s.w == nil {
		return nil
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	if s.gz != nil {
		if err := s.gz.Close(); err != nil {
			return fmt.Errorf("csv: gzip close: %w", err)
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return fmt.Errorf("csv: close %s: %w", s.path, err)
		}
	}
	return nil
}

func (s *Sink) open() error {
	var dst io.Writer
	if s.path == "" || s.path == "-" {
		dst = os.Stdout
	} else {
		f, err := os.Create(s.path)
		if err != nil {
			return fmt.Errorf("csv: create %s: %w", s.path, err)
		}
		s.file = f
		dst = f
	}
	if s.gzip {
		s.gz = gzip.NewWriter(dst)
		dst = s.gz
	}
	s.w = swiftcsv.NewWriter(dst)
	return nil
}

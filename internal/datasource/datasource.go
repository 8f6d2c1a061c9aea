// Package datasource abstracts where the line-delimited JSON input comes
// from. Concrete sources (local file, stdin, HTTP) live in subpackages; the
// coordinator only sees the Source interface.
package datasource

import (
	"context"
	"io"
)

// Source produces the input byte stream for one conversion run.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

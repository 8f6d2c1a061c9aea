package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Remote is a data source that streams one capture file over HTTP GET.
// Gzipped payloads (Content-Encoding or a ".gz" URL suffix) are
// decompressed transparently.
type Remote struct {
	client *Client
	url    string
}

// NewRemote binds a Remote source to the given URL.
func NewRemote(client *Client, url string) *Remote {
	return &Remote{client: client, url: url}
}

// Open issues the GET and returns the (possibly decompressed) body stream.
// Non-2xx final responses are errors.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.client.Get(ctx, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", r.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %s", r.url, resp.Status)
	}

	gzipped := strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") ||
		(!resp.Uncompressed && strings.HasSuffix(urlPath(r.url), ".gz"))
	if !gzipped {
		return resp.Body, nil
	}

	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: gzip: %w", r.url, err)
	}
	return &gzipBody{zr: zr, body: resp.Body}, nil
}

// urlPath strips the query string so suffix checks see the path only.
func urlPath(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

type gzipBody struct {
	zr   *gzip.Reader
	body io.ReadCloser
}

func (g *gzipBody) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipBody) Close() error {
	zerr := g.zr.Close()
	berr := g.body.Close()
	if zerr != nil {
		return zerr
	}
	return berr
}

// AuthHeaders builds the base headers for a bearer-token protected endpoint.
func AuthHeaders(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

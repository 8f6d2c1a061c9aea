package httpds

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestRemoteOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":"1"}`+"\n")
	}))
	defer srv.Close()

	rc, err := NewRemote(NewClient(Config{}), srv.URL+"/capture.jsonl").Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if string(got) != `{"id":"1"}`+"\n" {
		t.Errorf("body = %q", got)
	}
}

func TestRemoteOpenGzip(t *testing.T) {
	t.Parallel()

	var payload bytes.Buffer
	zw := gzip.NewWriter(&payload)
	zw.Write([]byte(`{"id":"2"}`))
	zw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(payload.Bytes())
	}))
	defer srv.Close()

	rc, err := NewRemote(NewClient(Config{}), srv.URL+"/capture.jsonl").Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"id":"2"}` {
		t.Errorf("decompressed body = %q", got)
	}
}

func TestRemoteOpenErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewRemote(NewClient(Config{}), srv.URL+"/missing.jsonl").Open(context.Background())
	if err == nil {
		t.Fatal("Open succeeded on 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error does not carry the status: %v", err)
	}
}

func TestAuthHeaders(t *testing.T) {
	t.Parallel()

	if got := AuthHeaders("tok").Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q", got)
	}
	if got := AuthHeaders("").Get("Authorization"); got != "" {
		t.Errorf("empty token produced header %q", got)
	}
}

func TestURLPath(t *testing.T) {
	t.Parallel()

	if got := urlPath("https://x/y.gz?sig=abc"); got != "https://x/y.gz" {
		t.Errorf("urlPath = %q", got)
	}
	if got := urlPath("https://x/y.jsonl"); got != "https://x/y.jsonl" {
		t.Errorf("urlPath = %q", got)
	}
}

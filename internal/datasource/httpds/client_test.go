package httpds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// scriptedTransport returns canned status codes in order, recording requests.
type scriptedTransport struct {
	statuses []int
	reqs     []*http.Request
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.reqs = append(s.reqs, req)
	code := s.statuses[0]
	if len(s.statuses) > 1 {
		s.statuses = s.statuses[1:]
	}
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Body:       io.NopCloser(strings.NewReader("body")),
		Header:     http.Header{},
		Request:    req,
	}, nil
}

func newTestClient(transport http.RoundTripper, maxRetries int, base http.Header) *Client {
	c := NewClient(Config{
		Transport:      transport,
		MaxRetries:     maxRetries,
		InitialBackoff: time.Nanosecond,
		MaxBackoff:     time.Nanosecond,
		BaseHeaders:    base,
	})
	c.sleep = func(time.Duration) {}
	return c
}

func TestGetRetriesTransientStatuses(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{statuses: []int{500, 429, 200}}
	c := newTestClient(tr, 3, nil)

	resp, err := c.Get(context.Background(), "http://example/capture.jsonl", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if len(tr.reqs) != 3 {
		t.Errorf("got %d attempts, want 3", len(tr.reqs))
	}
}

func TestGetExhaustsRetries(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{statuses: []int{503}}
	c := newTestClient(tr, 2, nil)

	if _, err := c.Get(context.Background(), "http://example/x", nil); err == nil {
		t.Fatal("Get succeeded despite persistent 503")
	}
	if len(tr.reqs) != 3 {
		t.Errorf("got %d attempts, want 3 (initial + 2 retries)", len(tr.reqs))
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{statuses: []int{404}}
	c := newTestClient(tr, 3, nil)

	resp, err := c.Get(context.Background(), "http://example/x", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if len(tr.reqs) != 1 {
		t.Errorf("got %d attempts, want 1 (404 is final)", len(tr.reqs))
	}
}

func TestHeadersMerge(t *testing.T) {
	t.Parallel()

	base := http.Header{}
	base.Set("Authorization", "Bearer base")
	base.Set("User-Agent", "tweetcsv")

	tr := &scriptedTransport{statuses: []int{200}}
	c := newTestClient(tr, 0, base)

	per := http.Header{}
	per.Set("Authorization", "Bearer override")
	resp, err := c.Get(context.Background(), "http://example/x", per)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	got := tr.reqs[0].Header
	if got.Get("Authorization") != "Bearer override" {
		t.Errorf("Authorization = %q, want the per-request override", got.Get("Authorization"))
	}
	if got.Get("User-Agent") != "tweetcsv" {
		t.Errorf("User-Agent = %q, want the base header", got.Get("User-Agent"))
	}
}

func TestDoCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(&scriptedTransport{statuses: []int{200}}, 0, nil)
	if _, err := c.Do(ctx, http.MethodGet, "http://example/x", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDoArgumentValidation(t *testing.T) {
	t.Parallel()

	c := newTestClient(&scriptedTransport{statuses: []int{200}}, 0, nil)
	if _, err := c.Do(context.Background(), "", "http://example/x", nil); err == nil {
		t.Error("empty method accepted")
	}
	if _, err := c.Do(context.Background(), http.MethodGet, "", nil); err == nil {
		t.Error("empty url accepted")
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{10, time.Second},
	}
	for _, tc := range tests {
		got := backoffDuration(100*time.Millisecond, tc.attempt, time.Second)
		if got != tc.want {
			t.Errorf("backoffDuration(attempt=%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

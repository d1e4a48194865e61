package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetcher(t *testing.T) {
	t.Parallel()

	t.Run("returns status and body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != "test-agent" {
				t.Errorf("User-Agent = %q, want test-agent", r.Header.Get("User-Agent"))
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<title>ok</title>"))
		}))
		defer server.Close()

		f := NewFetcher(server.Client(), WithUserAgent("test-agent"))
		resp, err := f.Fetch(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d", resp.StatusCode)
		}
		if string(resp.Body) != "<title>ok</title>" {
			t.Errorf("Body = %q", resp.Body)
		}
		if !strings.HasPrefix(resp.ContentType, "text/html") {
			t.Errorf("ContentType = %q", resp.ContentType)
		}
	})

	t.Run("non-200 is a response, not an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		resp, err := NewFetcher(server.Client()).Fetch(context.Background(), server.URL+"/missing")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("truncates large bodies", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
		}))
		defer server.Close()

		resp, err := NewFetcher(server.Client(), WithMaxBodySize(100)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if len(resp.Body) != 100 {
			t.Errorf("len(Body) = %d, want 100", len(resp.Body))
		}
	})

	t.Run("timeout is a network error", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		_, err := NewFetcher(server.Client(), WithTimeout(50*time.Millisecond)).Fetch(context.Background(), server.URL)
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected FetchError, got %v", err)
		}
		if fe.Kind != FetchNetwork {
			t.Errorf("Kind = %q, want %q", fe.Kind, FetchNetwork)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded in chain, got %v", err)
		}
	})

	t.Run("connection refused is a network error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		_, err := NewFetcher(nil, WithTimeout(time.Second)).Fetch(context.Background(), addr)
		var fe *FetchError
		if !errors.As(err, &fe) || fe.Kind != FetchNetwork {
			t.Fatalf("expected network FetchError, got %v", err)
		}
		if IsStatusError(err) {
			t.Error("network error reported as status error")
		}
	})
}

func TestFetchErrorMessage(t *testing.T) {
	t.Parallel()

	statusErr := &FetchError{URL: "https://x.test/a", Kind: FetchStatus, StatusCode: 404, Err: ErrNonOKStatus}
	if statusErr.Error() != "fetch https://x.test/a: status 404" {
		t.Errorf("Error() = %q", statusErr.Error())
	}
	if !errors.Is(statusErr, ErrNonOKStatus) || !IsStatusError(statusErr) {
		t.Error("status error should unwrap to ErrNonOKStatus")
	}

	netErr := &FetchError{URL: "https://x.test/b", Kind: FetchNetwork, Err: errors.New("refused")}
	if netErr.Error() != "fetch https://x.test/b: network: refused" {
		t.Errorf("Error() = %q", netErr.Error())
	}
}

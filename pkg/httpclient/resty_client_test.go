package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestExecuteReturnsUnreadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Query().Get("q") != "go" {
			t.Errorf("missing query param, got %q", r.URL.RawQuery)
		}
		if got := r.Header.Values("X-Tag"); len(got) != 2 {
			t.Errorf("expected two X-Tag values, got %v", got)
		}
		if r.Header.Get("X-Default") != "on" {
			t.Errorf("missing default header")
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "ping" {
			t.Errorf("unexpected request body %q", body)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	client := New(Options{Timeout: 2 * time.Second, BaseURL: srv.URL, Headers: map[string]string{"X-Default": "on"}})
	resp, err := client.Execute(context.Background(), Request{
		Method: "post",
		URL:    "/echo",
		Header: http.Header{"X-Tag": {"a", "b"}},
		Query:  url.Values{"q": {"go"}},
		Body:   "ping",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	defer resp.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if resp.Reason() != "Accepted" {
		t.Fatalf("unexpected reason %q", resp.Reason())
	}
	if resp.ContentType().Essence() != "text/plain" {
		t.Fatalf("unexpected content type %q", resp.ContentType())
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "pong" {
		t.Fatalf("expected unread body to reach the caller, got %q", body)
	}
}

func TestExecuteDefaultsToGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := NewRestyClient(time.Second).Execute(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	defer resp.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestExecuteWrapsTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	if _, err := NewRestyClient(time.Second).Execute(context.Background(), Request{URL: addr}); err == nil {
		t.Fatalf("expected error for closed server")
	}
}

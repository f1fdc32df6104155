package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRootCmdHasSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	for _, name := range []string{"run", "once", "check"} {
		if _, _, err := root.Find([]string{name}); err != nil {
			t.Fatalf("find %s subcommand: %v", name, err)
		}
	}
}

func TestCheckCmdHealthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Probe"); got != "cli" {
			t.Errorf("expected X-Probe header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cmd := newCheckCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{srv.URL, "-H", "X-Probe: cli"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute check cmd: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"healthy: true", "series: SUCCESSFUL", "status_code: 200", "- SUCCESSFUL"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckCmdUnhealthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "try later", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cmd := newCheckCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{srv.URL})

	err := cmd.Execute()
	if !errors.Is(err, errUnhealthy) {
		t.Fatalf("expected unhealthy error, got %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "series: SERVER_ERROR") || !strings.Contains(out, "try later") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCheckRejectsBadArguments(t *testing.T) {
	t.Parallel()

	if _, err := check(t.Context(), "https://example.com", "FETCH", 0, nil); err == nil {
		t.Fatalf("expected unsupported method error")
	}
	if _, err := check(t.Context(), "https://example.com", "get", 0, []string{"no-colon"}); err == nil {
		t.Fatalf("expected invalid header error")
	}
}

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/grok-ask/internal/history"
	"github.com/diogo/grok-ask/pkg/client"
	"github.com/diogo/grok-ask/pkg/models"
)

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("XAI_API_KEY", testKey)

	if err := env.run("config", "show"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	out := env.out.String()
	for _, want := range []string{
		"CONFIGURATION",
		filepath.Join(env.dir, "config.json"),
		"default_mode:",
		"ask",
		"max_retries:",
		"xai-*",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, testKey) {
		t.Error("the API key must be masked")
	}
}

func TestConfigSetAndReset(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run("config", "set", "default_mode", "think"); err != nil {
		t.Fatalf("set error = %v", err)
	}
	if !strings.Contains(env.out.String(), "Set default_mode = think") {
		t.Errorf("output = %q", env.out.String())
	}

	if err := env.run("config", "set", "timeout", "45s"); err != nil {
		t.Fatalf("set error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(env.dir, "config.json"))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	var saved map[string]any
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("config file is not JSON: %v", err)
	}
	if saved["default_mode"] != "think" {
		t.Errorf("saved default_mode = %v", saved["default_mode"])
	}

	// The next invocation picks up the saved mode.
	if err := env.run("--api-key", testKey, "hello"); err != nil {
		t.Fatalf("query error = %v", err)
	}
	if got := env.exec.requests[0].Mode; got != models.ModeThink {
		t.Errorf("Mode = %q, want think from config", got)
	}

	if err := env.run("config", "reset"); err != nil {
		t.Fatalf("reset error = %v", err)
	}
	if err := env.run("--api-key", testKey, "hello"); err != nil {
		t.Fatalf("query error = %v", err)
	}
	if got := env.exec.requests[1].Mode; got != models.ModeAsk {
		t.Errorf("Mode = %q, want ask after reset", got)
	}
}

func TestConfigSetInvalid(t *testing.T) {
	tests := [][]string{
		{"default_mode", "deep"},
		{"api_key", testKey},
		{"timeout", "soon"},
		{"unknown_key", "x"},
		{"output_format", "yaml"},
	}

	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			env := newTestEnv(t)
			err := env.run(append([]string{"config", "set"}, args...)...)
			if code := client.ExitCode(err); code != client.ExitInvalidRequest {
				t.Errorf("ExitCode = %d, want %d (err = %v)", code, client.ExitInvalidRequest, err)
			}
			if _, statErr := os.Stat(filepath.Join(env.dir, "config.json")); statErr == nil {
				t.Error("invalid values should not be saved")
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	env := newTestEnv(t)
	if err := env.run("config", "path"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.TrimSpace(env.out.String()); got != filepath.Join(env.dir, "config.json") {
		t.Errorf("path = %q", got)
	}
}

func seedHistory(t *testing.T, env *testEnv, queries ...string) []models.HistoryEntry {
	t.Helper()
	w, err := history.NewWriter(env.historyFile())
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	entries := make([]models.HistoryEntry, 0, len(queries))
	for i, q := range queries {
		e, err := w.Append(models.HistoryEntry{
			Query:      q,
			Mode:       "ask",
			Response:   "answer to " + q,
			ResponseID: "resp_" + string(rune('a'+i)),
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestHistoryList(t *testing.T) {
	env := newTestEnv(t)
	seedHistory(t, env, "alpha", "beta", "gamma")

	if err := env.run("history", "-n", "2"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	out := env.out.String()
	if strings.Contains(out, "alpha") {
		t.Error("only the last two entries should be listed")
	}
	for _, want := range []string{"[2]", "beta", "[3]", "gamma", "Response: resp_c"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if err := env.run("history", "list", "-n", "0"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(env.out.String(), "alpha") {
		t.Error("-n 0 should list every entry")
	}
}

func TestHistoryListEmpty(t *testing.T) {
	env := newTestEnv(t)
	if err := env.run("history"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(env.out.String(), "No history entries") {
		t.Errorf("output = %q", env.out.String())
	}
}

func TestHistorySearch(t *testing.T) {
	env := newTestEnv(t)
	seedHistory(t, env, "Go generics", "rust lifetimes", "go channels")

	if err := env.run("history", "search", "GO"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	out := env.out.String()
	if !strings.Contains(strings.ToLower(out), "2 matches") || strings.Contains(out, "rust") {
		t.Errorf("output = %q", out)
	}

	if err := env.run("history", "search", "python"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(env.out.String(), "No matching entries") {
		t.Errorf("output = %q", env.out.String())
	}
}

func TestHistoryShow(t *testing.T) {
	env := newTestEnv(t)
	entries := seedHistory(t, env, "alpha", "beta")

	for _, ref := range []string{"2", entries[1].ID, entries[1].ID[:8]} {
		t.Run(ref, func(t *testing.T) {
			if err := env.run("history", "show", ref); err != nil {
				t.Fatalf("run() error = %v", err)
			}
			out := env.out.String()
			for _, want := range []string{"Query:", "beta", "Response ID: resp_b", "answer to beta"} {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestHistoryShowInvalid(t *testing.T) {
	env := newTestEnv(t)
	seedHistory(t, env, "alpha")

	for _, ref := range []string{"0", "5", "no-such-id"} {
		t.Run(ref, func(t *testing.T) {
			err := env.run("history", "show", ref)
			if code := client.ExitCode(err); code != client.ExitInvalidRequest {
				t.Errorf("ExitCode = %d, want %d (err = %v)", code, client.ExitInvalidRequest, err)
			}
		})
	}
}

func TestHistoryClear(t *testing.T) {
	env := newTestEnv(t)
	seedHistory(t, env, "alpha")

	if err := env.run("history", "clear"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(env.out.String(), "History cleared") {
		t.Errorf("output = %q", env.out.String())
	}
	entries, err := history.NewReader(env.historyFile()).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries after clear = %d, want 0", len(entries))
	}
}

func TestAuthStatus(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		args     []string
		wantOut  []string
		wantWarn bool
		wantCode int
	}{
		{"from env", testKey, nil, []string{"source:  config", "xai-"}, false, client.ExitOK},
		{"from flag", "", []string{"--api-key", testKey}, []string{"source:  flag"}, false, client.ExitOK},
		{"odd key", "", []string{"--api-key", "sk-short"}, []string{"source:  flag", "********"}, true, client.ExitOK},
		{"missing", "", nil, []string{"api_key: (not set)", "source:  none"}, false, client.ExitAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			t.Setenv("XAI_API_KEY", tt.envKey)

			err := env.run(append(tt.args, "auth", "status")...)
			if code := client.ExitCode(err); code != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d (err = %v)", code, tt.wantCode, err)
			}
			out := env.out.String()
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			if strings.Contains(out, testKey) {
				t.Error("the API key must be masked")
			}
			if got := strings.Contains(env.errOut.String(), "does not look like"); got != tt.wantWarn {
				t.Errorf("warning shown = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

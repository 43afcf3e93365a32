package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("got port %q, want 8080", cfg.Server.Port)
	}
	if !cfg.Game.RequireMinimumSelection || !cfg.Game.HasSummaryContinueStep {
		t.Errorf("got policy %+v, want both switches on", cfg.Game)
	}
	if cfg.Submit.GameID != 3 {
		t.Errorf("got game id %d, want 3", cfg.Submit.GameID)
	}
	if cfg.Submit.Timeout != 10*time.Second {
		t.Errorf("got timeout %v, want 10s", cfg.Submit.Timeout)
	}
	if cfg.Storage.Backend != StoreBackendJSON {
		t.Errorf("got backend %q, want json", cfg.Storage.Backend)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("REQUIRE_MIN_SELECTION", "false")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SUBMIT_TIMEOUT", "3s")
	t.Setenv("GAME_ID", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GetAddr() != "0.0.0.0:9000" {
		t.Errorf("got addr %q", cfg.GetAddr())
	}
	if cfg.Game.RequireMinimumSelection {
		t.Error("REQUIRE_MIN_SELECTION=false was ignored")
	}
	if cfg.Storage.Backend != StoreBackendSQLite {
		t.Errorf("got backend %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Submit.Timeout != 3*time.Second || cfg.Submit.GameID != 7 {
		t.Errorf("got submit %+v", cfg.Submit)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SUBMIT_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected error for unparsable duration")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serverconfig.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSubmitTarget(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"string port", `{"serverIP":"10.0.0.5","serverPort":"8081"}`, "http://10.0.0.5:8081"},
		{"numeric port", `{"serverIP":"10.0.0.5","serverPort":8082}`, "http://10.0.0.5:8082"},
		{"missing port", `{"serverIP":"10.0.0.5"}`, "http://10.0.0.5:3000"},
		{"missing ip", `{"serverPort":"9999"}`, "http://127.0.0.1:3000"},
		{"malformed", `{serverIP`, "http://127.0.0.1:3000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LoadSubmitTarget(writeFile(t, tt.content), testLogger())
			if got.BaseURL() != tt.want {
				t.Errorf("got %q, want %q", got.BaseURL(), tt.want)
			}
		})
	}
}

func TestLoadSubmitTargetMissingFile(t *testing.T) {
	got := LoadSubmitTarget(filepath.Join(t.TempDir(), "nope.json"), testLogger())
	if got != DefaultSubmitTarget() {
		t.Errorf("got %+v, want default", got)
	}
}

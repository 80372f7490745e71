package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushme.log")
	log, err := New(Options{File: path, Level: "debug"})
	if err != nil {
		t.Fatal(err)
	}
	log.Named("arena").Infow("round end", "reason", "forced")
	log.Debugw("queue full")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"INFO", "arena", "round end", "reason", "DEBUG"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushme.log")
	log, err := New(Options{File: path, Level: "warn"})
	if err != nil {
		t.Fatal(err)
	}
	log.Infow("hidden")
	log.Warnw("shown")
	log.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Errorf("level filter not applied:\n%s", data)
	}
}

func TestBadLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

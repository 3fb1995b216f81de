package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	logger.LogInfo("kept %d sitemaps", 3)
	logger.LogError("probe failed: %s", "boom")
	logger.LogDebug("dropped %s", "https://a.example.com/sitemap.xml")

	out := buf.String()
	for _, want := range []string{
		"[INFO] kept 3 sitemaps",
		"[ERROR] probe failed: boom",
		"[DEBUG] dropped https://a.example.com/sitemap.xml",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got %q", want, out)
		}
	}

	if err := logger.Close(); err != nil {
		t.Errorf("Expected Close without file to succeed, got %v", err)
	}
}

func TestRunLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewRunLogger(dir, "Sitemap Aggregator")
	if err != nil {
		t.Fatalf("Failed to create run logger: %v", err)
	}
	logger.LogInfo("hello")
	if err := logger.Close(); err != nil {
		t.Fatalf("Failed to close logger: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "sitemap_aggregator", "run_sitemap_aggregator_*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("Expected one log file, got %v (err %v)", matches, err)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] hello") {
		t.Errorf("Expected log file to contain message, got %q", string(data))
	}
}

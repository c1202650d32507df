package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReleaseWritesJSONWithFields(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "release.log"})
	log.Sugar().With("order_no", "20250401120000123").Infow("order_issued", "user_id", 7)
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	line := strings.TrimSpace(string(content))
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("release log should be json, got=%s err=%v", line, err)
	}
	if entry["message"] != "order_issued" || entry["order_no"] != "20250401120000123" {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Fatalf("log entry should carry time key: %+v", entry)
	}
}

func TestDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("DEBUG ", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestResolveLogFilePathDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	got, err := resolveLogFilePath(Options{Dir: filepath.Join(tmpDir, "nested")})
	if err != nil {
		t.Fatalf("resolve log path failed: %v", err)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("log file should be created: %v", err)
	}
}

func TestGlobalAccessorsWithoutInit(t *testing.T) {
	prev := L
	L = nil
	t.Cleanup(func() { L = prev })

	if Z() == nil || S() == nil || SW("k", "v") == nil || Named("test") == nil {
		t.Fatalf("accessors should fall back to a usable logger")
	}
	if normalizePositiveInt(0, 9) != 9 || normalizePositiveInt(3, 9) != 3 {
		t.Fatalf("normalizePositiveInt mismatch")
	}
}

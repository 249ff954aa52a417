package logstream

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeLog(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestReadRecent_WholeFile(t *testing.T) {
	path := writeLog(t, `{"run": "a", "timestamp_utc": "2026-08-20T10:00:00Z"}
{"run": "b"}
{"run": "c", "timestamp_utc": "2026-08-25T10:00:00Z"}
`)

	entries, err := ReadRecent(path, 0, time.Now(), zap.NewNop())
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3 (zero lookback reads everything)", len(entries))
	}
	if entries[1].Record["run"] != "b" {
		t.Errorf("entries[1] run = %v, want b", entries[1].Record["run"])
	}
	if !entries[1].Timestamp.IsZero() {
		t.Errorf("undated entry Timestamp = %v, want zero", entries[1].Timestamp)
	}
	if entries[0].Timestamp.IsZero() {
		t.Errorf("dated entry Timestamp is zero, want parsed")
	}
}

func TestReadRecent_LookbackWindow(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	path := writeLog(t, `{"run": "old", "timestamp_utc": "2026-08-24T11:00:00Z"}
{"run": "fresh", "timestamp_utc": "2026-08-25T11:30:00Z"}
{"run": "undated"}
{"run": "boundary", "timestamp_utc": "2026-08-25T10:00:00Z"}
`)

	entries, err := ReadRecent(path, 2*time.Hour, now, zap.NewNop())
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1: %v", len(entries), entries)
	}
	if entries[0].Record["run"] != "fresh" {
		t.Errorf("entries[0] run = %v, want fresh", entries[0].Record["run"])
	}
}

func TestReadRecent_SkipsMalformedLines(t *testing.T) {
	path := writeLog(t, `{"run": "ok"}
{not json at all
"just a string"

{"run": "also ok"}
`)

	entries, err := ReadRecent(path, 0, time.Now(), zap.NewNop())
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Record["run"] != "ok" || entries[1].Record["run"] != "also ok" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestReadRecent_BadTimestampTreatedAsUndated(t *testing.T) {
	path := writeLog(t, `{"run": "a", "timestamp_utc": "not-a-time"}
`)

	entries, err := ReadRecent(path, 0, time.Now(), zap.NewNop())
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(entries) != 1 || !entries[0].Timestamp.IsZero() {
		t.Errorf("entries = %v, want one undated entry", entries)
	}

	// With a window active the same entry is filtered out
	entries, err = ReadRecent(path, time.Hour, time.Now(), zap.NewNop())
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0 under a lookback window", len(entries))
	}
}

func TestReadRecent_MissingFile(t *testing.T) {
	_, err := ReadRecent(filepath.Join(t.TempDir(), "missing.jsonl"), 0, time.Now(), zap.NewNop())
	if err == nil {
		t.Error("ReadRecent() error = nil, want error for missing file")
	}
}

func TestReadRecent_EmptyFile(t *testing.T) {
	path := writeLog(t, "")
	entries, err := ReadRecent(path, 0, time.Now(), zap.NewNop())
	if err != nil {
		t.Fatalf("ReadRecent() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

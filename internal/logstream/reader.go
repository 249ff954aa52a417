// Package logstream reads agent interaction logs in jsonl format.
//
// One final-state record per line. Production log files accumulate
// malformed lines (truncated writes, stray output); those are counted and
// skipped rather than failing the batch.
package logstream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tiendita/scorekeeper/internal/types"
)

// TimestampField is the record key carrying the interaction timestamp.
const TimestampField = "timestamp_utc"

// Record lines can carry full conversation transcripts; 4MB covers the
// largest observed final states with headroom.
const maxLineBytes = 4 * 1024 * 1024

// Entry is one parsed log line.
type Entry struct {
	Record    types.Record
	Timestamp time.Time // zero when the record has no parseable timestamp
}

// ReadRecent reads a jsonl log file and returns the entries inside the
// lookback window ending at now. A zero lookback disables time filtering
// and returns every parseable entry, including ones without a timestamp.
func ReadRecent(path string, lookback time.Duration, now time.Time, logger *zap.Logger) ([]Entry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	cutoff := now.Add(-lookback)
	var entries []Entry
	skipped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		record, err := types.ParseRecord(json.RawMessage(line))
		if err != nil {
			skipped++
			continue
		}

		entry := Entry{Record: record}
		if raw, ok := record[TimestampField].(string); ok {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				entry.Timestamp = ts
			}
		}

		if lookback > 0 {
			// Window filtering requires a timestamp; undated entries are
			// indistinguishable from stale ones
			if entry.Timestamp.IsZero() || !entry.Timestamp.After(cutoff) {
				continue
			}
		}

		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	if skipped > 0 {
		logger.Warn("skipped malformed log lines",
			zap.String("path", path),
			zap.Int("skipped", skipped))
	}
	return entries, nil
}

package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord(json.RawMessage(`{"status": "ok", "steps": [1, 2]}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", rec["status"])
	assert.Equal(t, []any{float64(1), float64(2)}, rec["steps"])
}

func TestParseRecord_Rejects(t *testing.T) {
	for _, raw := range []string{`[1, 2]`, `"scalar"`, `42`, `{broken`} {
		_, err := ParseRecord(json.RawMessage(raw))
		assert.Error(t, err, "input %s", raw)
	}
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	parsed, err := uuid.Parse(string(id))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestParseRunID(t *testing.T) {
	id := NewRunID()
	roundTripped, err := ParseRunID(string(id))
	require.NoError(t, err)
	assert.Equal(t, id, roundTripped)

	_, err = ParseRunID("not-a-uuid")
	assert.Error(t, err)
}

func TestRunIDTime(t *testing.T) {
	before := time.Now().Add(-time.Minute)
	id := NewRunID()
	after := time.Now().Add(time.Minute)

	ts := RunIDTime(id)
	assert.True(t, ts.After(before), "RunIDTime %v too early", ts)
	assert.True(t, ts.Before(after), "RunIDTime %v too late", ts)

	assert.True(t, RunIDTime(RunID("garbage")).IsZero())
}

func TestRunIDsSortByTime(t *testing.T) {
	first := NewRunID()
	second := NewRunID()
	assert.LessOrEqual(t, string(first), string(second))
}

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "info", "json")
	defer Initialize("info", "text")

	PenaltyCreated("p1", "b1", "u1", "late_return", "300", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Penalty created", entry["msg"])
	assert.Equal(t, "penalty", entry["audit"])
	assert.Equal(t, "b1", entry["booking_id"])
	assert.Equal(t, float64(3), entry["days_late"])
}

func TestInitializeWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "warn", "text")
	defer Initialize("info", "text")

	Info("hidden")
	DatabaseCall("select", "SELECT 1")
	assert.Empty(t, buf.String())

	Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithJob(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", "text")
	defer Initialize("info", "text")

	WithJob("overdue-sweep").Info("tick")
	assert.Contains(t, buf.String(), "job=overdue-sweep")
}

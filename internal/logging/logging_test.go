package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONComponentField(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "debug", FormatJSON)
	require.NoError(t, err)

	l := Component(log, "classify")
	l.Debug().Int("foreground", 4).Msg("frame")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "classify", entry["component"])
	assert.Equal(t, "frame", entry["message"])
	assert.Equal(t, "debug", entry["level"])
	assert.EqualValues(t, 4, entry["foreground"])
	assert.Contains(t, entry, "time")
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "warn", FormatJSON)
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "", FormatConsole)
	require.NoError(t, err)

	l := Component(log, "session")
	l.Info().Msg("started")
	out := buf.String()
	assert.Contains(t, out, "started")
	assert.Contains(t, out, "component=")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestBadArguments(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", FormatJSON)
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "info", Format("xml"))
	assert.Error(t, err)
}

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WARN, false)
	logger.SetOutput(&buf)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(INFO, true)
	logger.SetOutput(&buf)

	logger.Info("wave started", map[string]interface{}{"size": 4})

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "wave started", entry.Message)
	assert.EqualValues(t, 4, entry.Fields["size"])
}

func TestWithFieldCarriesContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(INFO, false)
	logger.SetOutput(&buf)

	child := logger.WithField("component", "registry")
	child.Info("spawned")

	assert.Contains(t, buf.String(), "component:registry")

	// Parent must not inherit the child's field.
	buf.Reset()
	logger.Info("plain")
	assert.False(t, strings.Contains(buf.String(), "registry"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"voxeldestruct/internal/config"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	log.WithField("event_id", "dest_w_0").Debug("phase advanced")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "dest_w_0", entry["event_id"])
	require.Equal(t, "phase advanced", entry["msg"])
	require.Equal(t, "debug", entry["level"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "chatty"}, nil)
	require.Error(t, err)
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LoggingConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	log.Info("ignored")
	require.Zero(t, buf.Len())
	log.Warn("kept")
	require.Contains(t, buf.String(), "kept")
}

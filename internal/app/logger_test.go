package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", AppEnv: "staging"}, &buf)
	logger.Info("access denied", "path", "/roles")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "access denied", entry["msg"])
	require.Equal(t, "odyssey-hr", entry["service"])
	require.Equal(t, "staging", entry["env"])
	require.Equal(t, "/roles", entry["path"])
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	newLogger(nil, &buf).Info("hello")
	require.Contains(t, buf.String(), "msg=hello")
	require.Contains(t, buf.String(), "env=development")
}

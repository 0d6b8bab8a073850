package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWithOptionsWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	file := filepath.Join(dir, "bondingd.log")

	logger, closer := SetupWithOptions(Options{Service: "bondingd", Env: "test", File: file, Output: &buf})
	logger.Info("settled", "action", "buy")
	require.NoError(t, closer.Close())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "settled", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "bondingd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"action":"buy"`)
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("client_ip", "10.0.0.1").Value.String())
	require.Equal(t, "buy", MaskField("Action", "buy").Value.String())
	require.Equal(t, "", MaskField("client_ip", "").Value.String())
	require.Contains(t, RedactionAllowlist(), "request_id")
}

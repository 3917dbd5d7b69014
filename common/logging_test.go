package common

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{JSON: true, Service: "publisher", Version: "v1.2.3", Output: &buf})

	log.Debug("hidden")
	log.Info("published", "location", "local")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "published", entry["msg"])
	assert.Equal(t, "publisher", entry["service"])
	assert.Equal(t, "v1.2.3", entry["version"])
	assert.Equal(t, "local", entry["location"])
}

func TestSetupLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{Debug: true, Output: &buf})

	log.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
	assert.NotContains(t, buf.String(), "service=")
}

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestNewWithOutputFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("warn", &buf)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.With("account", "mock").Warn().Str("code", "600000").Msg("no quote")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "mock", entry["account"])
	assert.Equal(t, "600000", entry["code"])
	assert.Equal(t, "no quote", entry["message"])
}

func TestNewSilent(t *testing.T) {
	log := NewSilent()
	assert.NotPanics(t, func() { log.Error().Msg("dropped") })
}

package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("debug"))
	assert.True(t, ValidLevel("Warn"))
	assert.False(t, ValidLevel("verbose"))
}

func TestLogger_JSONFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{
		Level:       "info",
		Format:      "json",
		Output:      &buf,
		ServiceName: "pdf-transcriber",
	}).WithRun("run-1").WithComponent("extract")

	logger.Debug().Msg("hidden")
	logger.Info().Int("page", 2).Msg("page done")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "page done", entry["message"])
	assert.Equal(t, "pdf-transcriber", entry["service"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "extract", entry["component"])
	assert.Equal(t, float64(2), entry["page"])
}

func TestLogger_ErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf})

	logger.Error().Err(pkgerrors.WithStack(errors.New("status 503"))).Msg("Page extraction failed")
	logger.Error().Err(errors.New("no stack")).Msg("plain")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var withStack, plain map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &withStack))
	require.NoError(t, json.Unmarshal(lines[1], &plain))

	assert.Equal(t, "status 503", withStack["error"])
	assert.NotEmpty(t, withStack[zerolog.ErrorStackFieldName])
	assert.NotContains(t, plain, zerolog.ErrorStackFieldName)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Info().Msg("nothing")
	})
}

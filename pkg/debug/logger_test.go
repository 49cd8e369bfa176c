package debug_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/gokts/pkg/debug"
)

func TestPackageOfFunc(t *testing.T) {
	tests := []struct {
		name     string
		fn       string
		expected string
	}{
		{"function", "github.com/walteh/gokts/pkg/server.(*Server).handle", "github.com/walteh/gokts/pkg/server"},
		{"plain", "main.main", "main"},
		{"no dot", "runtime", "runtime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, debug.PackageOfFunc(tt.fn))
		})
	}
}

func TestFormatCaller(t *testing.T) {
	assert.Equal(t, "github.com/walteh/gokts/pkg/server:server.go:12", debug.FormatCaller("github.com/walteh/gokts/pkg/server", "/src/pkg/server/server.go", 12, false))
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	ctx := debug.WithLogger(context.Background(), &buf, debug.LoggerOptions{Component: "test"})

	zerolog.Ctx(ctx).Debug().Msg("hidden")
	zerolog.Ctx(ctx).Info().Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.Contains(t, entry, "time")
	assert.NotContains(t, entry, "caller")
}

func TestDebugLoggerAddsCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := debug.NewLogger(&buf, debug.LoggerOptions{Debug: true})

	logger.Debug().Msg("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Contains(t, entry, "caller")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/repurposing-engine/pkg/types"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"":       zapcore.InfoLevel,
		"debug":  zapcore.DebugLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"info":   zapcore.InfoLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "console", "json", "JSON"} {
		l, err := New(types.LogConfig{Level: "debug", Format: format})
		require.NoError(t, err, format)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel), format)
	}

	l, err := New(types.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(types.LogConfig{Format: "xml"})
	assert.ErrorContains(t, err, "unknown log format")

	_, err = New(types.LogConfig{Level: "verbose"})
	assert.Error(t, err)
}

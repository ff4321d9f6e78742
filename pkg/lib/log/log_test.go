package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLazyLogger_FollowsSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := Logger("test/component")

	var buf bytes.Buffer
	Setup(&buf, LevelWarn, FormatJSON)

	logger.Info("hidden")
	logger.Warn("visible", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"visible"`)
	assert.Contains(t, out, `"component":"test/component"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12D3Ko", TruncateID("12D3KooWabc", 6))
	assert.Equal(t, "short", TruncateID("short", 8))
}

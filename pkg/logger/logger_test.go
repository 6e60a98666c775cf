package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	restore := Replace(zap.NewNop())
	t.Cleanup(restore)

	require.NoError(t, Init("debug"))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestInitFallsBackToInfo(t *testing.T) {
	restore := Replace(zap.NewNop())
	t.Cleanup(restore)

	require.NoError(t, InitWithEncoding("shouting", "console"))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestLoggingHelpersEmitEntries(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(Replace(zap.New(core)))

	Info("info message", zap.String("k", "v"))
	Error("error message")
	Warn("warn message")
	Debug("debug message")

	require.Equal(t, 4, recorded.Len())
	entries := recorded.All()
	want := []string{"info message", "error message", "warn message", "debug message"}
	for i, entry := range entries {
		require.Equal(t, want[i], entry.Message)
	}
	require.Equal(t, "v", entries[0].ContextMap()["k"])
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(Replace(zap.New(core)))

	WithModule("workflow").Info("module test")

	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "workflow", entries[0].ContextMap()["module"])
}

func TestReplaceNilUsesNop(t *testing.T) {
	restore := Replace(nil)
	t.Cleanup(restore)
	require.NotNil(t, Logger())
}

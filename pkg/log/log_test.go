package log

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingWritesToDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IGD_LOG_DIR", dir)
	t.Setenv("IGD_LOG_STDERR", "")
	t.Setenv("IGD_LOG_LEVEL", "debug")

	ctx, cleanup, err := Logging(context.Background())
	require.NoError(t, err)

	zerolog.Ctx(ctx).Debug().Str("location", "http://192.168.1.1/rootDesc.xml").Msg("resolving gateway")
	cleanup()

	b, err := os.ReadFile(filepath.Join(dir, "igdctl.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "resolving gateway")
	assert.Equal(t, zerolog.DebugLevel, Logger().GetLevel())
}

func TestLoggingBadLevel(t *testing.T) {
	t.Setenv("IGD_LOG_DIR", t.TempDir())
	t.Setenv("IGD_LOG_LEVEL", "chatty")

	_, cleanup, err := Logging(context.Background())
	defer cleanup()
	assert.ErrorContains(t, err, "IGD_LOG_LEVEL")
}

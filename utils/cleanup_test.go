package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepStagingRemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, "stale.pdf")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(dir, "fresh.pdf")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))

	sweepStaging(dir, time.Hour)

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestSweepStagingSkipsSubdirs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "keep")
	require.NoError(t, os.Mkdir(sub, 0o755))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(sub, old, old))

	sweepStaging(dir, time.Hour)

	_, err := os.Stat(sub)
	assert.NoError(t, err)
}

func TestSweepStagingMissingDirIsQuiet(t *testing.T) {
	assert.NotPanics(t, func() {
		sweepStaging(filepath.Join(t.TempDir(), "nope"), time.Hour)
	})
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, c.MaxK)
	assert.Equal(t, int64(42), c.Seed)
	assert.Equal(t, 10, c.MinRows)
	assert.Equal(t, 10, c.SelectInits)
	assert.Equal(t, 20, c.FitInits)
	assert.InDelta(t, 1e-4, c.Tolerance, 1e-12)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, filepath.Join(home, ".segmenta", "runs"), c.RunsDir)
	assert.Contains(t, c.PriceKeywords, "price")
	assert.NotEmpty(t, c.Concepts().Rating)
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "segmenta.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_k: 6\nseed: 7\nruns_dir: /tmp/segmenta-runs\n"), 0o644))
	t.Setenv("SEGMENTA_SEED", "99")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, c.MaxK)
	assert.Equal(t, int64(99), c.Seed, "env wins over file")
	assert.Equal(t, "/tmp/segmenta-runs", c.RunsDir)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	c.MaxK = 4
	c.Charts = true
	c.SoldKeywords = []string{"units"}

	require.NoError(t, Save(c, ""))
	dir, err := Dir()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, again.MaxK)
	assert.True(t, again.Charts)
	assert.Equal(t, []string{"units"}, again.SoldKeywords)
}

package ivfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ivfile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultParams(), cfg.Index)
	assert.Equal(t, DistL1, cfg.Search.Dist)
	assert.False(t, cfg.Search.OverlapOnly)
	assert.Zero(t, cfg.Search.K)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
index:
  weight: tfidf
  norm: l2
search:
  dist: cos
  overlapOnly: true
  k: 20
logging:
  format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, Params{Weight: WeightTFIDF, Norm: NormL2}, cfg.Index)
	assert.Equal(t, DistCos, cfg.Search.Dist)
	assert.True(t, cfg.Search.OverlapOnly)
	assert.Equal(t, 20, cfg.Search.K)
	assert.Equal(t, "info", cfg.Logging.Level, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "search:\n  dist: cos\n  k: 20\n")
	t.Setenv("IVF_WEIGHT", "tf")
	t.Setenv("IVF_NORM", "l0")
	t.Setenv("IVF_DIST", "histint")
	t.Setenv("IVF_OVERLAP_ONLY", "true")
	t.Setenv("IVF_K", "5")
	t.Setenv("IVF_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, Params{Weight: WeightTF, Norm: NormL0}, cfg.Index)
	assert.Equal(t, DistHistInt, cfg.Search.Dist)
	assert.True(t, cfg.Search.OverlapOnly)
	assert.Equal(t, 5, cfg.Search.K)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("unknown scheme in file", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "index:\n  weight: bm25\n"))
		assert.Error(t, err)
	})

	t.Run("unknown scheme in env", func(t *testing.T) {
		t.Setenv("IVF_DIST", "euclid")
		_, err := LoadConfig("")
		assert.ErrorIs(t, err, ErrInvalidScheme)
	})

	t.Run("malformed k in env", func(t *testing.T) {
		t.Setenv("IVF_K", "ten")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "IVF_K")
	})

	t.Run("malformed overlap flag in env", func(t *testing.T) {
		t.Setenv("IVF_OVERLAP_ONLY", "sometimes")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "IVF_OVERLAP_ONLY")
	})

	t.Run("negative k", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "search:\n  k: -1\n"))
		assert.Error(t, err)
	})
}

func TestConfig_MarshalsSchemeNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Index.Weight = WeightTFIDF

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	assert.Contains(t, string(data), "weight: tfidf")
	assert.Contains(t, string(data), "norm: l1")
	assert.Contains(t, string(data), "dist: l1")
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Search.Dist = distLast
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidScheme)

	cfg = DefaultConfig()
	cfg.Index.Norm = Norm(12)
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidParams)
}

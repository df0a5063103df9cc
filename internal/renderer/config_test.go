package renderer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.True(t, config.AutoClear)
	assert.True(t, config.SortObjects)
	assert.Equal(t, maxMorphTargets, config.MaxMorphTargets)
	assert.False(t, config.Shadow.Enabled, "shadows are opt-in")
	assert.NoError(t, config.Validate())
}

func TestPresetConfigs(t *testing.T) {
	hq := HighQualityConfig()
	assert.True(t, hq.Shadow.Enabled)
	assert.Equal(t, PCFSoftShadowMap, hq.Shadow.Type)

	perf := PerformanceConfig()
	assert.False(t, perf.Shadow.Enabled)
	assert.Equal(t, "mediump", perf.Precision)
}

func TestConfigValidateClamps(t *testing.T) {
	config := Config{MaxMorphTargets: 99, MaxMorphNormals: -1}
	require.NoError(t, config.Validate())
	assert.Equal(t, "highp", config.Precision)
	assert.Equal(t, maxMorphTargets, config.MaxMorphTargets)
	assert.Equal(t, maxMorphNormals, config.MaxMorphNormals)
	assert.Equal(t, 1, config.Workers)

	bad := Config{Precision: "ultra"}
	assert.Error(t, bad.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renderer.yaml")
	yaml := `
sortObjects: false
gammaOutput: true
clearColor: [0.1, 0.2, 0.3]
shadow:
  enabled: true
  type: pcfsoft
  cascade: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, config.SortObjects)
	assert.True(t, config.GammaOutput)
	assert.True(t, config.AutoClear, "unset keys keep defaults")
	assert.Equal(t, [3]float32{0.1, 0.2, 0.3}, config.ClearColor)
	assert.True(t, config.Shadow.Enabled)
	assert.True(t, config.Shadow.Cascade)
	assert.Equal(t, PCFSoftShadowMap, config.Shadow.Type)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shadow:\n  type: fancy\n"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

package renderer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ShadowSettings controls the shadow pass.
type ShadowSettings struct {
	Enabled bool          `json:"enabled" yaml:"enabled"`
	Type    ShadowMapType `json:"type" yaml:"type"`
	// CullFrontFaces renders back faces into the map to reduce acne.
	CullFrontFaces bool `json:"cullFrontFaces" yaml:"cullFrontFaces"`
	Debug          bool `json:"debug" yaml:"debug"`
	Cascade        bool `json:"cascade" yaml:"cascade"`
	// AutoUpdate re-renders maps every frame. When off, maps render once
	// and then only on request.
	AutoUpdate bool `json:"autoUpdate" yaml:"autoUpdate"`
}

// Config represents the renderer settings. It is loaded from YAML by the
// engine; zero values are replaced by defaults in Validate.
type Config struct {
	// Frame clearing
	AutoClear  bool       `json:"autoClear" yaml:"autoClear"`
	ClearColor [3]float32 `json:"clearColor" yaml:"clearColor"`
	ClearAlpha float32    `json:"clearAlpha" yaml:"clearAlpha"`

	// Draw ordering and culling
	SortObjects    bool `json:"sortObjects" yaml:"sortObjects"`
	FrustumCulling bool `json:"frustumCulling" yaml:"frustumCulling"`

	// Color space
	GammaInput  bool `json:"gammaInput" yaml:"gammaInput"`
	GammaOutput bool `json:"gammaOutput" yaml:"gammaOutput"`

	// Shader generation
	Precision       string `json:"precision" yaml:"precision"` // highp, mediump, lowp
	MaxMorphTargets int    `json:"maxMorphTargets" yaml:"maxMorphTargets"`
	MaxMorphNormals int    `json:"maxMorphNormals" yaml:"maxMorphNormals"`
	// ShaderDir, when set, holds .glsl chunk overrides that are watched
	// and hot-reloaded.
	ShaderDir string `json:"shaderDir" yaml:"shaderDir"`

	Shadow ShadowSettings `json:"shadow" yaml:"shadow"`

	// Workers sizes the pool that prepares geometry off the render thread.
	Workers  int    `json:"workers" yaml:"workers"`
	LogLevel string `json:"logLevel" yaml:"logLevel"`
}

// DefaultConfig returns sensible defaults for a desktop GPU
func DefaultConfig() Config {
	return Config{
		AutoClear:       true,
		ClearColor:      [3]float32{0, 0, 0},
		ClearAlpha:      1,
		SortObjects:     true,
		FrustumCulling:  true,
		Precision:       "highp",
		MaxMorphTargets: maxMorphTargets,
		MaxMorphNormals: maxMorphNormals,
		Shadow: ShadowSettings{
			Type:           PCFShadowMap,
			CullFrontFaces: true,
			AutoUpdate:     true,
		},
		Workers:  4,
		LogLevel: "info",
	}
}

// HighQualityConfig returns settings optimized for maximum visual quality
func HighQualityConfig() Config {
	config := DefaultConfig()

	config.GammaInput = true
	config.GammaOutput = true
	config.Shadow.Enabled = true
	config.Shadow.Type = PCFSoftShadowMap

	return config
}

// PerformanceConfig returns settings optimized for performance
func PerformanceConfig() Config {
	config := DefaultConfig()

	// Disable expensive features
	config.Shadow.Enabled = false
	config.Precision = "mediump"
	config.MaxMorphTargets = 4
	config.MaxMorphNormals = 2

	return config
}

// Validate clamps out-of-range values and fills missing ones.
func (c *Config) Validate() error {
	switch c.Precision {
	case "":
		c.Precision = "highp"
	case "highp", "mediump", "lowp":
	default:
		return fmt.Errorf("invalid precision %q", c.Precision)
	}
	if c.MaxMorphTargets <= 0 || c.MaxMorphTargets > maxMorphTargets {
		c.MaxMorphTargets = maxMorphTargets
	}
	if c.MaxMorphNormals <= 0 || c.MaxMorphNormals > maxMorphNormals {
		c.MaxMorphNormals = maxMorphNormals
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

package renderer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/logger"
	"Gopher3DCore/internal/shaderlib"

	"go.uber.org/zap"
)

const (
	maxMorphTargets     = 8
	maxMorphNormals     = 4
	boneTextureCapacity = 1024
	// Vertex uniform vectors reserved for matrices and material values
	// before bone matrices are counted.
	reservedVertexUniforms = 20
)

// ProgramParams is every input that changes generated shader code.
type ProgramParams struct {
	ShaderID       string
	VertexShader   string
	FragmentShader string
	Defines        map[string]string
	Precision      string

	Map, EnvMap, LightMap, BumpMap bool
	NormalMap, SpecularMap         bool
	AlphaMap                       bool
	Combine                        Combine
	VertexColors                   VertexColorMode
	Fog, FogExp2                   bool
	FlatShading                    bool
	SizeAttenuation                bool

	Skinning         bool
	MaxBones         int
	UseVertexTexture bool

	MorphTargets    bool
	MorphNormals    bool
	MaxMorphTargets int
	MaxMorphNormals int

	Lights LightCounts

	ShadowMapEnabled bool
	ShadowMapType    ShadowMapType
	ShadowMapDebug   bool
	ShadowMapCascade bool
	MaxShadows       int

	AlphaTest   float32
	Metal       bool
	WrapAround  bool
	DoubleSided bool
	FlipSided   bool
	GammaInput  bool
	GammaOutput bool

	Revision uint64
}

// Signature encodes p as a deterministic cache key.
func (p ProgramParams) Signature() string {
	var b strings.Builder
	if p.ShaderID != "" {
		b.WriteString(p.ShaderID)
	} else {
		fmt.Fprintf(&b, "vs%d:%s;fs%d:%s", len(p.VertexShader), p.VertexShader, len(p.FragmentShader), p.FragmentShader)
	}
	for _, k := range sortedKeys(p.Defines) {
		fmt.Fprintf(&b, ";D:%s=%s", k, p.Defines[k])
	}
	fmt.Fprintf(&b, ";prec=%s;map=%t;env=%t;light=%t;bump=%t;normal=%t;spec=%t;alpha=%t;combine=%d",
		p.Precision, p.Map, p.EnvMap, p.LightMap, p.BumpMap, p.NormalMap, p.SpecularMap, p.AlphaMap, p.Combine)
	fmt.Fprintf(&b, ";vc=%d;fog=%t;exp2=%t;flat=%t;att=%t",
		p.VertexColors, p.Fog, p.FogExp2, p.FlatShading, p.SizeAttenuation)
	fmt.Fprintf(&b, ";skin=%t;bones=%d;boneTex=%t;morph=%t;morphN=%t;maxMorph=%d;maxMorphN=%d",
		p.Skinning, p.MaxBones, p.UseVertexTexture, p.MorphTargets, p.MorphNormals, p.MaxMorphTargets, p.MaxMorphNormals)
	fmt.Fprintf(&b, ";dir=%d;point=%d;spot=%d;hemi=%d",
		p.Lights.Directional, p.Lights.Point, p.Lights.Spot, p.Lights.Hemisphere)
	fmt.Fprintf(&b, ";shadow=%t;stype=%d;sdebug=%t;scascade=%t;shadows=%d",
		p.ShadowMapEnabled, p.ShadowMapType, p.ShadowMapDebug, p.ShadowMapCascade, p.MaxShadows)
	fmt.Fprintf(&b, ";atest=%g;metal=%t;wrap=%t;double=%t;flip=%t;gin=%t;gout=%t;rev=%d",
		p.AlphaTest, p.Metal, p.WrapAround, p.DoubleSided, p.FlipSided, p.GammaInput, p.GammaOutput, p.Revision)
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// programEnv is the scene-wide state a material is specialized against.
type programEnv struct {
	caps     gpu.Capabilities
	cfg      *Config
	lights   LightCounts
	shadows  int
	fog      *Fog
	revision uint64
}

// BuildProgramParams derives the shader inputs for drawing obj with m.
func buildProgramParams(m *Material, obj *Object, env programEnv) ProgramParams {
	p := ProgramParams{
		ShaderID:        m.ShaderID(),
		Defines:         m.Defines,
		Precision:       env.cfg.Precision,
		Map:             m.Map != nil,
		EnvMap:          m.EnvMap != nil,
		LightMap:        m.LightMap != nil,
		BumpMap:         m.BumpMap != nil,
		NormalMap:       m.NormalMap != nil,
		SpecularMap:     m.SpecularMap != nil,
		AlphaMap:        m.AlphaMap != nil,
		Combine:         m.Combine,
		VertexColors:    m.VertexColors,
		Fog:             m.Fog && env.fog != nil,
		FlatShading:     m.Shading == FlatShading,
		SizeAttenuation: m.SizeAttenuation,
		AlphaTest:       m.AlphaTest,
		Metal:           m.Metal,
		WrapAround:      m.WrapAround,
		DoubleSided:     m.Side == DoubleSide,
		FlipSided:       m.Side == BackSide,
		GammaInput:      env.cfg.GammaInput,
		GammaOutput:     env.cfg.GammaOutput,
		Revision:        env.revision,
	}
	if m.Kind == ShaderMaterial {
		p.VertexShader = m.VertexShader
		p.FragmentShader = m.FragmentShader
	}
	if p.Fog {
		p.FogExp2 = env.fog.Kind == ExpFog
	}
	if m.usesLights() || m.Kind == ShaderMaterial {
		p.Lights = env.lights
	}
	if obj != nil {
		if m.Skinning && obj.Skeleton != nil {
			p.Skinning = true
			p.MaxBones, p.UseVertexTexture = AllocateBones(env.caps, obj.Skeleton)
		}
		if g := obj.Geometry; g != nil {
			if m.MorphTargets && len(g.MorphTargets) > 0 {
				p.MorphTargets = true
				limit := maxMorphTargets
				if m.MorphNormals {
					limit = maxMorphNormals
				}
				p.MaxMorphTargets = min(len(g.MorphTargets), env.cfg.MaxMorphTargets, limit)
			}
			if m.MorphNormals && len(g.MorphNormals) > 0 {
				p.MorphNormals = true
				p.MaxMorphNormals = min(len(g.MorphNormals), env.cfg.MaxMorphNormals, maxMorphNormals)
			}
		}
		if env.cfg.Shadow.Enabled && obj.ReceiveShadow && env.shadows > 0 {
			p.ShadowMapEnabled = true
			p.ShadowMapType = env.cfg.Shadow.Type
			p.ShadowMapDebug = env.cfg.Shadow.Debug
			p.ShadowMapCascade = env.cfg.Shadow.Cascade
			p.MaxShadows = env.shadows
		}
	}
	return p
}

// AllocateBones returns how many bone matrices a skinned program declares
// and whether they come from a float texture. Without a texture the count
// is whatever fits the vertex uniform budget, clamped to the skeleton.
func AllocateBones(caps gpu.Capabilities, sk *Skeleton) (int, bool) {
	if usesBoneTexture(caps, sk) {
		return boneTextureCapacity, true
	}
	budget := (caps.MaxVertexUniformVectors - reservedVertexUniforms) / 4
	if budget < 0 {
		budget = 0
	}
	bones := len(sk.Bones)
	if bones > budget {
		logger.WarnOnce("bones-"+strconv.Itoa(bones),
			"Skeleton has more bones than the GPU supports",
			zap.Int("bones", bones),
			zap.Int("maxBones", budget))
		return budget, false
	}
	return bones, false
}

func usesBoneTexture(caps gpu.Capabilities, sk *Skeleton) bool {
	return sk.UseVertexTexture && caps.SupportsVertexTextures && caps.SupportsFloatTextures
}

// ProgramSource is what a builder hands the program cache.
type ProgramSource struct {
	Vertex   string
	Fragment string
	Params   ProgramParams
	Uniforms []string // extra uniform names to locate
	Attribs  []string // extra attribute names to locate
}

// buildProgramSource expands the shader for p. On expansion failure the raw
// text is returned so the compile error reaches the log.
func buildProgramSource(lib *shaderlib.Library, p ProgramParams) (vs, fs string) {
	vertexBody, fragmentBody := p.VertexShader, p.FragmentShader
	name := "custom"
	if p.ShaderID != "" {
		sh, err := lib.Shader(p.ShaderID)
		if err != nil {
			logger.Log.Error("Unknown built-in shader", zap.String("shader", p.ShaderID), zap.Error(err))
		}
		vertexBody, fragmentBody = sh.Vertex, sh.Fragment
		name = p.ShaderID
	}
	vs = p.vertexPrefix(name) + "#include <common_vertex>\n" + vertexBody
	fs = p.fragmentPrefix(name) + "#include <common_fragment>\n" + fragmentBody
	if out, err := lib.Expand(vs); err == nil {
		vs = out
	} else {
		logger.Log.Warn("Vertex shader include failed", zap.String("shader", name), zap.Error(err))
	}
	if out, err := lib.Expand(fs); err == nil {
		fs = out
	} else {
		logger.Log.Warn("Fragment shader include failed", zap.String("shader", name), zap.Error(err))
	}
	return vs, fs
}

type defineWriter struct{ strings.Builder }

func (w *defineWriter) flag(on bool, name string) {
	if on {
		w.WriteString("#define " + name + "\n")
	}
}

func (w *defineWriter) value(name string, v any) {
	fmt.Fprintf(w, "#define %s %v\n", name, v)
}

func (p ProgramParams) commonPrefix(w *defineWriter, name string) {
	w.WriteString("#version 330 core\n")
	if p.Precision != "" {
		w.WriteString("precision " + p.Precision + " float;\n")
		w.WriteString("precision " + p.Precision + " int;\n")
	}
	w.value("SHADER_NAME", name)
	for _, k := range sortedKeys(p.Defines) {
		w.value(k, p.Defines[k])
	}
	w.value("MAX_DIR_LIGHTS", p.Lights.Directional)
	w.value("MAX_POINT_LIGHTS", p.Lights.Point)
	w.value("MAX_SPOT_LIGHTS", p.Lights.Spot)
	w.value("MAX_HEMI_LIGHTS", p.Lights.Hemisphere)
	w.value("MAX_SHADOWS", p.MaxShadows)
	w.flag(p.ShadowMapEnabled, "USE_SHADOWMAP")
	w.flag(p.GammaInput, "GAMMA_INPUT")
	w.flag(p.GammaOutput, "GAMMA_OUTPUT")
	w.flag(p.Map, "USE_MAP")
	w.flag(p.EnvMap, "USE_ENVMAP")
	w.flag(p.LightMap, "USE_LIGHTMAP")
	w.flag(p.BumpMap, "USE_BUMPMAP")
	w.flag(p.NormalMap, "USE_NORMALMAP")
	w.flag(p.SpecularMap, "USE_SPECULARMAP")
	w.flag(p.AlphaMap, "USE_ALPHAMAP")
	w.flag(p.VertexColors != NoColors, "USE_COLOR")
	w.flag(p.WrapAround, "WRAP_AROUND")
	w.flag(p.DoubleSided, "DOUBLE_SIDED")
	w.flag(p.FlipSided, "FLIP_SIDED")
	w.flag(p.FlatShading, "FLAT_SHADED")
}

func (p ProgramParams) vertexPrefix(name string) string {
	var w defineWriter
	p.commonPrefix(&w, name)
	w.value("MAX_BONES", p.MaxBones)
	w.flag(p.Skinning, "USE_SKINNING")
	w.flag(p.UseVertexTexture, "BONE_TEXTURE")
	w.flag(p.MorphTargets, "USE_MORPHTARGETS")
	w.flag(p.MorphNormals, "USE_MORPHNORMALS")
	w.flag(p.SizeAttenuation, "USE_SIZEATTENUATION")
	return w.String()
}

func (p ProgramParams) fragmentPrefix(name string) string {
	var w defineWriter
	p.commonPrefix(&w, name)
	if p.AlphaTest > 0 {
		w.value("ALPHATEST", glslFloat(p.AlphaTest))
	}
	w.flag(p.Metal, "METAL")
	w.flag(p.Fog, "USE_FOG")
	w.flag(p.FogExp2, "FOG_EXP2")
	if p.ShadowMapEnabled {
		switch p.ShadowMapType {
		case PCFShadowMap:
			w.flag(true, "SHADOWMAP_TYPE_PCF")
		case PCFSoftShadowMap:
			w.flag(true, "SHADOWMAP_TYPE_PCF_SOFT")
		}
		w.flag(p.ShadowMapDebug, "SHADOWMAP_DEBUG")
		w.flag(p.ShadowMapCascade, "SHADOWMAP_CASCADE")
	}
	return w.String()
}

// glslFloat formats v as a GLSL float literal.
func glslFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

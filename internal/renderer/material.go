package renderer

import (
	"errors"
	"fmt"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/shaderlib"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrUnknownMaterialParam = errors.New("renderer: unknown material parameter")

type MaterialKind int

const (
	BasicMaterial MaterialKind = iota
	LambertMaterial
	PhongMaterial
	DepthMaterial
	DepthRGBAMaterial
	NormalMaterial
	ParticleMaterial
	LineMaterial
	ShaderMaterial
)

var materialShaderIDs = map[MaterialKind]string{
	BasicMaterial:     shaderlib.Basic,
	LambertMaterial:   shaderlib.Lambert,
	PhongMaterial:     shaderlib.Phong,
	DepthMaterial:     shaderlib.Depth,
	DepthRGBAMaterial: shaderlib.DepthRGBA,
	NormalMaterial:    shaderlib.Normal,
	ParticleMaterial:  shaderlib.ParticleBasic,
	LineMaterial:      shaderlib.LineBasic,
}

func (k MaterialKind) String() string {
	if id, ok := materialShaderIDs[k]; ok {
		return id
	}
	if k == ShaderMaterial {
		return "shader"
	}
	return fmt.Sprintf("MaterialKind(%d)", int(k))
}

type Side int

const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

type Shading int

const (
	SmoothShading Shading = iota
	FlatShading
)

type VertexColorMode int

const (
	NoColors VertexColorMode = iota
	FaceColors
	VertexColors
)

// Combine selects how an environment map mixes with the surface color.
type Combine int

const (
	MultiplyOperation Combine = iota
	MixOperation
	AddOperation
)

type Blending int

const (
	NoBlending Blending = iota
	NormalBlending
	AdditiveBlending
	SubtractiveBlending
	MultiplyBlending
	CustomBlending
)

// Material is a parameter bag. Changing anything that affects the generated
// shader requires NeedsUpdate; Set and Apply do that automatically.
type Material struct {
	// HOT DATA - read by the uniform refresher every draw
	Kind            MaterialKind
	Color           mgl32.Vec3
	Ambient         mgl32.Vec3
	Emissive        mgl32.Vec3
	Specular        mgl32.Vec3
	Shininess       float32
	Opacity         float32
	Map             *Texture
	LightMap        *Texture
	SpecularMap     *Texture
	AlphaMap        *Texture
	BumpMap         *Texture
	NormalMap       *Texture
	EnvMap          *Texture
	BumpScale       float32
	NormalScale     mgl32.Vec2
	Reflectivity    float32
	RefractionRatio float32
	Refract         bool
	FlipEnvMap      bool
	WrapRGB         mgl32.Vec3
	Size            float32
	LineWidth       float32
	Uniforms        map[string]*Uniform

	// Shader-affecting state
	Combine         Combine
	WrapAround      bool
	Metal           bool
	Shading         Shading
	VertexColors    VertexColorMode
	Fog             bool
	Skinning        bool
	MorphTargets    bool
	MorphNormals    bool
	SizeAttenuation bool
	Side            Side
	AlphaTest       float32
	VertexShader    string
	FragmentShader  string
	Defines         map[string]string

	// Pipeline state
	Transparent         bool
	Blending            Blending
	BlendEquation       gpu.BlendEquation
	BlendSrc, BlendDst  gpu.BlendFactor
	DepthTest           bool
	DepthWrite          bool
	PolygonOffset       bool
	PolygonOffsetFactor float32
	PolygonOffsetUnits  float32
	Visible             bool

	NeedsUpdate bool

	// COLD DATA
	Name string
}

// NewMaterial returns a material of kind with the usual defaults.
func NewMaterial(kind MaterialKind, name string) *Material {
	return &Material{
		Kind:            kind,
		Name:            name,
		Color:           mgl32.Vec3{1, 1, 1},
		Ambient:         mgl32.Vec3{1, 1, 1},
		Specular:        mgl32.Vec3{0.07, 0.07, 0.07},
		Shininess:       30,
		Opacity:         1,
		BumpScale:       1,
		NormalScale:     mgl32.Vec2{1, 1},
		Reflectivity:    1,
		RefractionRatio: 0.98,
		WrapRGB:         mgl32.Vec3{1, 1, 1},
		Size:            1,
		LineWidth:       1,
		SizeAttenuation: true,
		Fog:             kind != DepthMaterial && kind != DepthRGBAMaterial && kind != NormalMaterial,
		Blending:        NormalBlending,
		BlendEquation:   gpu.FuncAdd,
		BlendSrc:        gpu.SrcAlpha,
		BlendDst:        gpu.OneMinusSrcAlpha,
		DepthTest:       true,
		DepthWrite:      true,
		Visible:         true,
		NeedsUpdate:     true,
	}
}

// NewShaderMaterial returns a material compiled from custom GLSL bodies.
// The sources get the common prelude and may use #include.
func NewShaderMaterial(name, vertex, fragment string, uniforms map[string]*Uniform) *Material {
	m := NewMaterial(ShaderMaterial, name)
	m.VertexShader = vertex
	m.FragmentShader = fragment
	m.Uniforms = uniforms
	m.Fog = false
	return m
}

// eachTexture calls fn for every texture m samples, custom uniforms included.
func (m *Material) eachTexture(fn func(*Texture)) {
	for _, tex := range []*Texture{m.Map, m.LightMap, m.SpecularMap, m.AlphaMap, m.BumpMap, m.NormalMap, m.EnvMap} {
		if tex != nil {
			fn(tex)
		}
	}
	for _, u := range m.Uniforms {
		if u == nil {
			continue
		}
		switch v := u.Value.(type) {
		case *Texture:
			if v != nil {
				fn(v)
			}
		case []*Texture:
			for _, tex := range v {
				if tex != nil {
					fn(tex)
				}
			}
		}
	}
}

// ShaderID returns the built-in shader for the kind, or "" for custom ones.
func (m *Material) ShaderID() string { return materialShaderIDs[m.Kind] }

func (m *Material) usesLights() bool {
	return m.Kind == LambertMaterial || m.Kind == PhongMaterial
}

// MaterialParams is a set of optional material fields. Nil fields are left
// untouched by Apply.
type MaterialParams struct {
	Color           *mgl32.Vec3
	Ambient         *mgl32.Vec3
	Emissive        *mgl32.Vec3
	Specular        *mgl32.Vec3
	Shininess       *float32
	Opacity         *float32
	Transparent     *bool
	Map             *Texture
	LightMap        *Texture
	SpecularMap     *Texture
	AlphaMap        *Texture
	BumpMap         *Texture
	NormalMap       *Texture
	EnvMap          *Texture
	BumpScale       *float32
	NormalScale     *mgl32.Vec2
	Reflectivity    *float32
	RefractionRatio *float32
	Combine         *Combine
	WrapAround      *bool
	WrapRGB         *mgl32.Vec3
	Metal           *bool
	Shading         *Shading
	VertexColors    *VertexColorMode
	Fog             *bool
	Skinning        *bool
	MorphTargets    *bool
	MorphNormals    *bool
	Size            *float32
	SizeAttenuation *bool
	Side            *Side
	AlphaTest       *float32
	LineWidth       *float32
	Blending        *Blending
	DepthTest       *bool
	DepthWrite      *bool
}

// Ptr returns a pointer to v, for filling MaterialParams.
func Ptr[T any](v T) *T { return &v }

// Apply copies every set field of p.
func (m *Material) Apply(p MaterialParams) {
	for _, s := range materialSetters {
		if v, ok := s.get(p); ok {
			// get only yields values of the setter's own type.
			_ = s.set(m, v)
			if s.program {
				m.NeedsUpdate = true
			}
		}
	}
}

// Set assigns one parameter by its lowerCamel name, for data-driven
// materials.
func (m *Material) Set(name string, value any) error {
	s, ok := materialSetterIndex[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMaterialParam, name)
	}
	if err := s.set(m, value); err != nil {
		return fmt.Errorf("material %s: %s: %w", m.Name, name, err)
	}
	if s.program {
		m.NeedsUpdate = true
	}
	return nil
}

// SetValues applies every entry of values and returns the first error.
func (m *Material) SetValues(values map[string]any) error {
	for name, v := range values {
		if err := m.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

type materialSetter struct {
	name    string
	program bool // changing it changes the generated shader
	set     func(*Material, any) error
	get     func(MaterialParams) (any, bool)
}

func vec3Setter(name string, program bool, field func(*Material) *mgl32.Vec3, param func(MaterialParams) *mgl32.Vec3) materialSetter {
	return materialSetter{
		name:    name,
		program: program,
		set: func(m *Material, v any) error {
			switch x := v.(type) {
			case mgl32.Vec3:
				*field(m) = x
			case [3]float32:
				*field(m) = x
			case []float32:
				if len(x) != 3 {
					return fmt.Errorf("want 3 components, got %d", len(x))
				}
				*field(m) = mgl32.Vec3{x[0], x[1], x[2]}
			case []float64:
				if len(x) != 3 {
					return fmt.Errorf("want 3 components, got %d", len(x))
				}
				*field(m) = mgl32.Vec3{float32(x[0]), float32(x[1]), float32(x[2])}
			default:
				return fmt.Errorf("want vec3, got %T", v)
			}
			return nil
		},
		get: func(p MaterialParams) (any, bool) {
			if v := param(p); v != nil {
				return *v, true
			}
			return nil, false
		},
	}
}

func floatSetter(name string, program bool, field func(*Material) *float32, param func(MaterialParams) *float32) materialSetter {
	return materialSetter{
		name:    name,
		program: program,
		set: func(m *Material, v any) error {
			switch x := v.(type) {
			case float32:
				*field(m) = x
			case float64:
				*field(m) = float32(x)
			case int:
				*field(m) = float32(x)
			default:
				return fmt.Errorf("want number, got %T", v)
			}
			return nil
		},
		get: func(p MaterialParams) (any, bool) {
			if v := param(p); v != nil {
				return *v, true
			}
			return nil, false
		},
	}
}

func boolSetter(name string, program bool, field func(*Material) *bool, param func(MaterialParams) *bool) materialSetter {
	return materialSetter{
		name:    name,
		program: program,
		set: func(m *Material, v any) error {
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("want bool, got %T", v)
			}
			*field(m) = b
			return nil
		},
		get: func(p MaterialParams) (any, bool) {
			if v := param(p); v != nil {
				return *v, true
			}
			return nil, false
		},
	}
}

// Texture presence is part of the shader, so every texture setter marks the
// program for rebuild.
func textureSetter(name string, field func(*Material) **Texture, param func(MaterialParams) *Texture) materialSetter {
	return materialSetter{
		name:    name,
		program: true,
		set: func(m *Material, v any) error {
			switch x := v.(type) {
			case *Texture:
				*field(m) = x
			case nil:
				*field(m) = nil
			default:
				return fmt.Errorf("want *Texture, got %T", v)
			}
			return nil
		},
		get: func(p MaterialParams) (any, bool) {
			if v := param(p); v != nil {
				return v, true
			}
			return nil, false
		},
	}
}

func enumSetter[T ~int](name string, program bool, field func(*Material) *T, param func(MaterialParams) *T) materialSetter {
	return materialSetter{
		name:    name,
		program: program,
		set: func(m *Material, v any) error {
			switch x := v.(type) {
			case T:
				*field(m) = x
			case int:
				*field(m) = T(x)
			default:
				return fmt.Errorf("want %T, got %T", *new(T), v)
			}
			return nil
		},
		get: func(p MaterialParams) (any, bool) {
			if v := param(p); v != nil {
				return *v, true
			}
			return nil, false
		},
	}
}

var materialSetters = []materialSetter{
	vec3Setter("color", false, func(m *Material) *mgl32.Vec3 { return &m.Color }, func(p MaterialParams) *mgl32.Vec3 { return p.Color }),
	vec3Setter("ambient", false, func(m *Material) *mgl32.Vec3 { return &m.Ambient }, func(p MaterialParams) *mgl32.Vec3 { return p.Ambient }),
	vec3Setter("emissive", false, func(m *Material) *mgl32.Vec3 { return &m.Emissive }, func(p MaterialParams) *mgl32.Vec3 { return p.Emissive }),
	vec3Setter("specular", false, func(m *Material) *mgl32.Vec3 { return &m.Specular }, func(p MaterialParams) *mgl32.Vec3 { return p.Specular }),
	vec3Setter("wrapRGB", false, func(m *Material) *mgl32.Vec3 { return &m.WrapRGB }, func(p MaterialParams) *mgl32.Vec3 { return p.WrapRGB }),
	floatSetter("shininess", false, func(m *Material) *float32 { return &m.Shininess }, func(p MaterialParams) *float32 { return p.Shininess }),
	floatSetter("opacity", false, func(m *Material) *float32 { return &m.Opacity }, func(p MaterialParams) *float32 { return p.Opacity }),
	floatSetter("bumpScale", false, func(m *Material) *float32 { return &m.BumpScale }, func(p MaterialParams) *float32 { return p.BumpScale }),
	floatSetter("reflectivity", false, func(m *Material) *float32 { return &m.Reflectivity }, func(p MaterialParams) *float32 { return p.Reflectivity }),
	floatSetter("refractionRatio", false, func(m *Material) *float32 { return &m.RefractionRatio }, func(p MaterialParams) *float32 { return p.RefractionRatio }),
	floatSetter("size", false, func(m *Material) *float32 { return &m.Size }, func(p MaterialParams) *float32 { return p.Size }),
	floatSetter("lineWidth", false, func(m *Material) *float32 { return &m.LineWidth }, func(p MaterialParams) *float32 { return p.LineWidth }),
	floatSetter("alphaTest", true, func(m *Material) *float32 { return &m.AlphaTest }, func(p MaterialParams) *float32 { return p.AlphaTest }),
	boolSetter("transparent", false, func(m *Material) *bool { return &m.Transparent }, func(p MaterialParams) *bool { return p.Transparent }),
	boolSetter("depthTest", false, func(m *Material) *bool { return &m.DepthTest }, func(p MaterialParams) *bool { return p.DepthTest }),
	boolSetter("depthWrite", false, func(m *Material) *bool { return &m.DepthWrite }, func(p MaterialParams) *bool { return p.DepthWrite }),
	boolSetter("wrapAround", true, func(m *Material) *bool { return &m.WrapAround }, func(p MaterialParams) *bool { return p.WrapAround }),
	boolSetter("metal", true, func(m *Material) *bool { return &m.Metal }, func(p MaterialParams) *bool { return p.Metal }),
	boolSetter("fog", true, func(m *Material) *bool { return &m.Fog }, func(p MaterialParams) *bool { return p.Fog }),
	boolSetter("skinning", true, func(m *Material) *bool { return &m.Skinning }, func(p MaterialParams) *bool { return p.Skinning }),
	boolSetter("morphTargets", true, func(m *Material) *bool { return &m.MorphTargets }, func(p MaterialParams) *bool { return p.MorphTargets }),
	boolSetter("morphNormals", true, func(m *Material) *bool { return &m.MorphNormals }, func(p MaterialParams) *bool { return p.MorphNormals }),
	boolSetter("sizeAttenuation", true, func(m *Material) *bool { return &m.SizeAttenuation }, func(p MaterialParams) *bool { return p.SizeAttenuation }),
	textureSetter("map", func(m *Material) **Texture { return &m.Map }, func(p MaterialParams) *Texture { return p.Map }),
	textureSetter("lightMap", func(m *Material) **Texture { return &m.LightMap }, func(p MaterialParams) *Texture { return p.LightMap }),
	textureSetter("specularMap", func(m *Material) **Texture { return &m.SpecularMap }, func(p MaterialParams) *Texture { return p.SpecularMap }),
	textureSetter("alphaMap", func(m *Material) **Texture { return &m.AlphaMap }, func(p MaterialParams) *Texture { return p.AlphaMap }),
	textureSetter("bumpMap", func(m *Material) **Texture { return &m.BumpMap }, func(p MaterialParams) *Texture { return p.BumpMap }),
	textureSetter("normalMap", func(m *Material) **Texture { return &m.NormalMap }, func(p MaterialParams) *Texture { return p.NormalMap }),
	textureSetter("envMap", func(m *Material) **Texture { return &m.EnvMap }, func(p MaterialParams) *Texture { return p.EnvMap }),
	enumSetter("combine", true, func(m *Material) *Combine { return &m.Combine }, func(p MaterialParams) *Combine { return p.Combine }),
	enumSetter("shading", true, func(m *Material) *Shading { return &m.Shading }, func(p MaterialParams) *Shading { return p.Shading }),
	enumSetter("vertexColors", true, func(m *Material) *VertexColorMode { return &m.VertexColors }, func(p MaterialParams) *VertexColorMode { return p.VertexColors }),
	enumSetter("side", true, func(m *Material) *Side { return &m.Side }, func(p MaterialParams) *Side { return p.Side }),
	enumSetter("blending", false, func(m *Material) *Blending { return &m.Blending }, func(p MaterialParams) *Blending { return p.Blending }),
	{
		name: "normalScale",
		set: func(m *Material, v any) error {
			switch x := v.(type) {
			case mgl32.Vec2:
				m.NormalScale = x
			case []float64:
				if len(x) != 2 {
					return fmt.Errorf("want 2 components, got %d", len(x))
				}
				m.NormalScale = mgl32.Vec2{float32(x[0]), float32(x[1])}
			default:
				return fmt.Errorf("want vec2, got %T", v)
			}
			return nil
		},
		get: func(p MaterialParams) (any, bool) {
			if p.NormalScale != nil {
				return *p.NormalScale, true
			}
			return nil, false
		},
	},
}

var materialSetterIndex = func() map[string]materialSetter {
	idx := make(map[string]materialSetter, len(materialSetters))
	for _, s := range materialSetters {
		idx[s.name] = s
	}
	return idx
}()

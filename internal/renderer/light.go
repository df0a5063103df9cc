package renderer

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrUnsupportedLight is reported when a light kind cannot cast shadows.
var ErrUnsupportedLight = errors.New("renderer: unsupported light type for shadows")

type LightKind int

const (
	AmbientLight LightKind = iota
	DirectionalLight
	PointLight
	SpotLight
	HemisphereLight
)

func (k LightKind) String() string {
	switch k {
	case AmbientLight:
		return "ambient"
	case DirectionalLight:
		return "directional"
	case PointLight:
		return "point"
	case SpotLight:
		return "spot"
	case HemisphereLight:
		return "hemisphere"
	}
	return fmt.Sprintf("LightKind(%d)", int(k))
}

// Shadow holds a light's shadow-casting configuration. Cascade settings are
// only read for directional lights.
type Shadow struct {
	MapWidth, MapHeight int
	Bias                float32
	Darkness            float32
	CameraNear          float32
	CameraFar           float32
	CameraFov           float32 // degrees, spot lights
	CameraLeft          float32
	CameraRight         float32
	CameraTop           float32
	CameraBottom        float32

	Cascade       bool
	CascadeCount  int
	CascadeOffset mgl32.Vec3
	CascadeBias   []float32
	CascadeWidth  []int
	CascadeHeight []int
	CascadeNearZ  []float32
	CascadeFarZ   []float32
}

// DefaultShadow returns the usual single-map settings.
func DefaultShadow() Shadow {
	return Shadow{
		MapWidth:     512,
		MapHeight:    512,
		Darkness:     0.5,
		CameraNear:   50,
		CameraFar:    5000,
		CameraFov:    50,
		CameraLeft:   -500,
		CameraRight:  500,
		CameraTop:    500,
		CameraBottom: -500,
		CascadeCount: 2,
	}
}

// EnableCascades turns on n cascades with the default NDC depth split.
func (s *Shadow) EnableCascades(n int) {
	s.Cascade = true
	s.CascadeCount = n
	defNear := []float32{-1, 0.99, 0.998}
	defFar := []float32{0.99, 0.998, 1}
	s.CascadeBias = make([]float32, n)
	s.CascadeWidth = make([]int, n)
	s.CascadeHeight = make([]int, n)
	s.CascadeNearZ = make([]float32, n)
	s.CascadeFarZ = make([]float32, n)
	for i := 0; i < n; i++ {
		s.CascadeBias[i] = s.Bias
		s.CascadeWidth[i] = s.MapWidth
		s.CascadeHeight[i] = s.MapHeight
		if i < len(defNear) {
			s.CascadeNearZ[i], s.CascadeFarZ[i] = defNear[i], defFar[i]
		} else {
			s.CascadeNearZ[i], s.CascadeFarZ[i] = defFar[len(defFar)-1], 1
		}
	}
}

// Light is a scene light with world-space position and target resolved by
// the scene graph.
type Light struct {
	// HOT DATA - read by the light aggregator every frame
	Kind        LightKind
	Color       mgl32.Vec3
	GroundColor mgl32.Vec3 // hemisphere only
	Intensity   float32
	Position    mgl32.Vec3
	Target      mgl32.Vec3
	Distance    float32 // 0 means infinite range
	Decay       float32
	Angle       float32 // spot cone half-angle in radians
	Exponent    float32
	Visible     bool

	// Shadow-casting state
	CastShadow bool
	OnlyShadow bool
	Shadow     Shadow

	// COLD DATA
	Name string

	shadow *ShadowState
}

func newLight(kind LightKind, color mgl32.Vec3, intensity float32) *Light {
	return &Light{
		Kind:      kind,
		Color:     color,
		Intensity: intensity,
		Decay:     1,
		Visible:   true,
		Shadow:    DefaultShadow(),
	}
}

func NewAmbientLight(color mgl32.Vec3) *Light {
	return newLight(AmbientLight, color, 1)
}

func NewDirectionalLight(color mgl32.Vec3, intensity float32) *Light {
	l := newLight(DirectionalLight, color, intensity)
	l.Position = mgl32.Vec3{0, 1, 0}
	return l
}

func NewPointLight(color mgl32.Vec3, intensity, distance float32) *Light {
	l := newLight(PointLight, color, intensity)
	l.Distance = distance
	return l
}

func NewSpotLight(color mgl32.Vec3, intensity, distance, angle, exponent float32) *Light {
	l := newLight(SpotLight, color, intensity)
	l.Distance = distance
	l.Angle = angle
	l.Exponent = exponent
	l.Position = mgl32.Vec3{0, 1, 0}
	return l
}

func NewHemisphereLight(sky, ground mgl32.Vec3, intensity float32) *Light {
	l := newLight(HemisphereLight, sky, intensity)
	l.GroundColor = ground
	l.Position = mgl32.Vec3{0, 100, 0}
	return l
}

// Direction points from the target towards the light.
func (l *Light) Direction() mgl32.Vec3 {
	d := l.Position.Sub(l.Target)
	if d.Len() == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return d.Normalize()
}

// ShadowState returns the light's shadow resources, nil until the first
// shadow pass.
func (l *Light) ShadowState() *ShadowState { return l.shadow }

func (l *Light) castsSupportedShadow() bool {
	return l.Kind == DirectionalLight || l.Kind == SpotLight
}

func (l *Light) angleCos() float32 {
	return float32(math.Cos(float64(l.Angle)))
}

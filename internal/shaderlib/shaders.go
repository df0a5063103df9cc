package shaderlib

// Built-in shader ids.
const (
	Basic         = "basic"
	Lambert       = "lambert"
	Phong         = "phong"
	Depth         = "depth"
	DepthRGBA     = "depthRGBA"
	Normal        = "normal"
	ParticleBasic = "particle_basic"
	LineBasic     = "line_basic"
)

var builtinShaders = []Shader{
	{ID: Basic, Vertex: basicVertex, Fragment: basicFragment},
	{ID: Lambert, Vertex: lambertVertex, Fragment: lambertFragment},
	{ID: Phong, Vertex: phongVertex, Fragment: phongFragment},
	{ID: Depth, Vertex: depthVertex, Fragment: depthFragment},
	{ID: DepthRGBA, Vertex: depthVertex, Fragment: depthRGBAFragment},
	{ID: Normal, Vertex: normalVertex, Fragment: normalFragment},
	{ID: ParticleBasic, Vertex: particleVertex, Fragment: particleFragment},
	{ID: LineBasic, Vertex: lineVertex, Fragment: lineFragment},
}

const basicVertex = `
#include <map_pars_vertex>
#include <lightmap_pars_vertex>
#include <envmap_pars_vertex>
#include <color_pars_vertex>
#include <morphtarget_pars_vertex>
#include <skinning_pars_vertex>
#include <shadowmap_pars_vertex>

void main() {
#include <map_vertex>
#include <lightmap_vertex>
#include <color_vertex>
#include <skinbase_vertex>
#include <morphtarget_vertex>
#include <skinning_vertex>
#include <defaultnormal_vertex>
#include <default_vertex>
#include <envmap_vertex>
#include <shadowmap_vertex>
}
`

const basicFragment = `
uniform vec3 diffuse;
uniform float opacity;

#include <color_pars_fragment>
#include <map_pars_fragment>
#include <alphamap_pars_fragment>
#include <lightmap_pars_fragment>
#include <envmap_pars_fragment>
#include <fog_pars_fragment>
#include <shadowmap_pars_fragment>
#include <specularmap_pars_fragment>

void main() {
	FragColor = vec4( diffuse, opacity );
#include <map_fragment>
#include <alphamap_fragment>
#include <alphatest_fragment>
#include <specularmap_fragment>
#include <lightmap_fragment>
#include <color_fragment>
#include <envmap_fragment>
#include <shadowmap_fragment>
#include <linear_to_gamma_fragment>
#include <fog_fragment>
}
`

const lambertVertex = `
#define LAMBERT
uniform vec3 diffuse;

#include <map_pars_vertex>
#include <lightmap_pars_vertex>
#include <envmap_pars_vertex>
#include <lights_lambert_pars_vertex>
#include <color_pars_vertex>
#include <morphtarget_pars_vertex>
#include <skinning_pars_vertex>
#include <shadowmap_pars_vertex>

void main() {
#include <map_vertex>
#include <lightmap_vertex>
#include <color_vertex>
#include <skinbase_vertex>
#include <morphtarget_vertex>
#include <skinning_vertex>
#include <defaultnormal_vertex>
#include <default_vertex>
#include <envmap_vertex>
#include <lights_lambert_vertex>
#include <shadowmap_vertex>
}
`

const lambertFragment = `
uniform float opacity;
in vec3 vLightFront;
#ifdef DOUBLE_SIDED
	in vec3 vLightBack;
#endif

#include <color_pars_fragment>
#include <map_pars_fragment>
#include <alphamap_pars_fragment>
#include <lightmap_pars_fragment>
#include <envmap_pars_fragment>
#include <fog_pars_fragment>
#include <shadowmap_pars_fragment>
#include <specularmap_pars_fragment>

void main() {
	FragColor = vec4( vec3( 1.0 ), opacity );
#include <map_fragment>
#include <alphamap_fragment>
#include <alphatest_fragment>
#include <specularmap_fragment>
#ifdef DOUBLE_SIDED
	if ( gl_FrontFacing ) FragColor.xyz *= vLightFront;
	else FragColor.xyz *= vLightBack;
#else
	FragColor.xyz *= vLightFront;
#endif
#include <lightmap_fragment>
#include <color_fragment>
#include <envmap_fragment>
#include <shadowmap_fragment>
#include <linear_to_gamma_fragment>
#include <fog_fragment>
}
`

const phongVertex = `
#define PHONG
out vec3 vViewPosition;
out vec3 vNormal;

#include <map_pars_vertex>
#include <lightmap_pars_vertex>
#include <envmap_pars_vertex>
#include <lights_phong_pars_vertex>
#include <color_pars_vertex>
#include <morphtarget_pars_vertex>
#include <skinning_pars_vertex>
#include <shadowmap_pars_vertex>

void main() {
#include <map_vertex>
#include <lightmap_vertex>
#include <color_vertex>
#include <skinbase_vertex>
#include <morphtarget_vertex>
#include <skinning_vertex>
#include <defaultnormal_vertex>
	vNormal = normalize( transformedNormal );
#include <default_vertex>
	vViewPosition = -mvPosition.xyz;
#include <envmap_vertex>
#include <lights_phong_vertex>
#include <shadowmap_vertex>
}
`

const phongFragment = `
#define PHONG
uniform vec3 diffuse;
uniform float opacity;
uniform vec3 ambient;
uniform vec3 emissive;
uniform vec3 specular;
uniform float shininess;

#include <color_pars_fragment>
#include <map_pars_fragment>
#include <alphamap_pars_fragment>
#include <lightmap_pars_fragment>
#include <envmap_pars_fragment>
#include <fog_pars_fragment>
#include <lights_phong_pars_fragment>
#include <shadowmap_pars_fragment>
#include <bumpmap_pars_fragment>
#include <normalmap_pars_fragment>
#include <specularmap_pars_fragment>

void main() {
	FragColor = vec4( vec3( 1.0 ), opacity );
#include <map_fragment>
#include <alphamap_fragment>
#include <alphatest_fragment>
#include <specularmap_fragment>
#include <lights_phong_fragment>
#include <lightmap_fragment>
#include <color_fragment>
#include <envmap_fragment>
#include <shadowmap_fragment>
#include <linear_to_gamma_fragment>
#include <fog_fragment>
}
`

const depthVertex = `
#include <morphtarget_pars_vertex>
#include <skinning_pars_vertex>

void main() {
#include <skinbase_vertex>
#include <morphtarget_vertex>
#include <skinning_vertex>
#include <default_vertex>
}
`

const depthFragment = `
uniform float mNear;
uniform float mFar;
uniform float opacity;

void main() {
	float depth = gl_FragCoord.z / gl_FragCoord.w;
	float color = 1.0 - smoothstep( mNear, mFar, depth );
	FragColor = vec4( vec3( color ), opacity );
}
`

const depthRGBAFragment = `
vec4 pack_depth( const in float depth ) {
	const vec4 bit_shift = vec4( 256.0 * 256.0 * 256.0, 256.0 * 256.0, 256.0, 1.0 );
	const vec4 bit_mask = vec4( 0.0, 1.0 / 256.0, 1.0 / 256.0, 1.0 / 256.0 );
	vec4 res = mod( depth * bit_shift * vec4( 255 ), vec4( 256 ) ) / vec4( 255 );
	res -= res.xxyz * bit_mask;
	return res;
}

void main() {
	FragColor = pack_depth( gl_FragCoord.z );
}
`

const normalVertex = `
out vec3 vNormal;
#include <morphtarget_pars_vertex>

void main() {
	vNormal = normalize( normalMatrix * normal );
#include <morphtarget_vertex>
	vec4 skinned = vec4( morphed, 1.0 );
#include <default_vertex>
}
`

const normalFragment = `
uniform float opacity;
in vec3 vNormal;

void main() {
	FragColor = vec4( 0.5 * normalize( vNormal ) + 0.5, opacity );
}
`

const particleVertex = `
uniform float size;
uniform float scale;

#include <color_pars_vertex>
#include <shadowmap_pars_vertex>

void main() {
#include <color_vertex>
	vec4 mvPosition = modelViewMatrix * vec4( position, 1.0 );
#ifdef USE_SIZEATTENUATION
	gl_PointSize = size * ( scale / length( mvPosition.xyz ) );
#else
	gl_PointSize = size;
#endif
	gl_Position = projectionMatrix * mvPosition;
	vec4 worldPosition = modelMatrix * vec4( position, 1.0 );
#include <shadowmap_vertex>
}
`

const particleFragment = `
uniform vec3 psColor;
uniform float opacity;

#include <color_pars_fragment>
#ifdef USE_MAP
	uniform sampler2D map;
#endif
#include <fog_pars_fragment>
#include <shadowmap_pars_fragment>

void main() {
	FragColor = vec4( psColor, opacity );
#ifdef USE_MAP
	FragColor = FragColor * texture( map, vec2( gl_PointCoord.x, 1.0 - gl_PointCoord.y ) );
#endif
#include <alphatest_fragment>
#include <color_fragment>
#include <shadowmap_fragment>
#include <fog_fragment>
}
`

const lineVertex = `
#include <color_pars_vertex>

void main() {
#include <color_vertex>
	vec4 mvPosition = modelViewMatrix * vec4( position, 1.0 );
	gl_Position = projectionMatrix * mvPosition;
}
`

const lineFragment = `
uniform vec3 diffuse;
uniform float opacity;

#include <color_pars_fragment>
#include <fog_pars_fragment>

void main() {
	FragColor = vec4( diffuse, opacity );
#include <color_fragment>
#include <fog_fragment>
}
`

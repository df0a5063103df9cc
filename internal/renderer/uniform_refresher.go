package renderer

import (
	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// textureUnits hands out sampler units in order for one program use.
type textureUnits struct {
	device   gpu.Device
	textures *TextureManager
	max      int
	next     int
}

func (u *textureUnits) reset() { u.next = 0 }

// bind binds the already uploaded tex to the next unit. A texture that never
// reached the GPU is skipped.
func (u *textureUnits) bind(tex *Texture) (int32, bool) {
	h, ok := u.textures.Handle(tex)
	if !ok {
		logger.WarnOnce("texture-missing-"+tex.Name,
			"Texture not uploaded, skipping",
			zap.String("texture", tex.Name))
		return 0, false
	}
	return u.bindHandle(h), true
}

func (u *textureUnits) bindHandle(h gpu.Texture) int32 {
	unit := u.next
	u.next++
	if u.max > 0 && unit >= u.max {
		logger.WarnOnce("texture-units",
			"Trying to use more texture units than the GPU supports",
			zap.Int("unit", unit),
			zap.Int("maxTextures", u.max))
	}
	u.device.BindTexture(unit, h)
	return int32(unit)
}

// uniformRefresher writes material, scene and object state into programs.
type uniformRefresher struct {
	units      textureUnits
	gammaInput bool
	// viewportHeight scales particle sizes.
	viewportHeight int
	influences     []float32
}

func (r *uniformRefresher) color(c mgl32.Vec3) mgl32.Vec3 {
	if r.gammaInput {
		return mgl32.Vec3{c[0] * c[0], c[1] * c[1], c[2] * c[2]}
	}
	return c
}

func (r *uniformRefresher) texture(uc *UniformCache, name string, tex *Texture) {
	if tex == nil || !uc.Has(name) {
		return
	}
	if unit, ok := r.units.bind(tex); ok {
		uc.SetInt(name, unit)
	}
}

// material writes m's values. Only uniforms the program declares are sent.
func (r *uniformRefresher) material(uc *UniformCache, m *Material) {
	uc.SetFloat("opacity", m.Opacity)

	switch m.Kind {
	case BasicMaterial, LambertMaterial, PhongMaterial:
		r.common(uc, m)
	}

	switch m.Kind {
	case LambertMaterial:
		uc.SetVec3("ambient", r.color(m.Ambient))
		uc.SetVec3("emissive", r.color(m.Emissive))
		if m.WrapAround {
			uc.SetVec3("wrapRGB", m.WrapRGB)
		}
	case PhongMaterial:
		uc.SetFloat("shininess", m.Shininess)
		uc.SetVec3("ambient", r.color(m.Ambient))
		uc.SetVec3("emissive", r.color(m.Emissive))
		uc.SetVec3("specular", r.color(m.Specular))
		if m.WrapAround {
			uc.SetVec3("wrapRGB", m.WrapRGB)
		}
	case LineMaterial:
		uc.SetVec3("diffuse", r.color(m.Color))
	case ParticleMaterial:
		uc.SetVec3("psColor", r.color(m.Color))
		uc.SetFloat("size", m.Size)
		uc.SetFloat("scale", float32(r.viewportHeight)/2)
		r.texture(uc, "map", m.Map)
	case ShaderMaterial:
		for name, u := range m.Uniforms {
			uploadUniform(uc, name, u, &r.units)
		}
	}
}

func (r *uniformRefresher) common(uc *UniformCache, m *Material) {
	uc.SetVec3("diffuse", r.color(m.Color))

	r.texture(uc, "map", m.Map)
	r.texture(uc, "lightMap", m.LightMap)
	r.texture(uc, "specularMap", m.SpecularMap)
	r.texture(uc, "alphaMap", m.AlphaMap)
	if m.BumpMap != nil {
		r.texture(uc, "bumpMap", m.BumpMap)
		uc.SetFloat("bumpScale", m.BumpScale)
	}
	if m.NormalMap != nil {
		r.texture(uc, "normalMap", m.NormalMap)
		uc.SetVec2("normalScale", m.NormalScale)
	}

	// One offset/repeat pair serves every map; the first present one wins.
	for _, tex := range []*Texture{m.Map, m.SpecularMap, m.NormalMap, m.BumpMap, m.AlphaMap} {
		if tex != nil {
			uc.SetVec4("offsetRepeat", tex.OffsetRepeat())
			break
		}
	}

	if m.EnvMap != nil {
		r.texture(uc, "envMap", m.EnvMap)
		flip := float32(1)
		if m.FlipEnvMap {
			flip = -1
		}
		uc.SetFloat("flipEnvMap", flip)
		uc.SetFloat("reflectivity", m.Reflectivity)
		uc.SetFloat("refractionRatio", m.RefractionRatio)
		uc.SetInt("combine", int32(m.Combine))
		uc.SetInt("useRefract", boolInt(m.Refract))
	}
}

func (r *uniformRefresher) fog(uc *UniformCache, f *Fog) {
	if f == nil {
		return
	}
	uc.SetVec3("fogColor", f.Color)
	if f.Kind == ExpFog {
		uc.SetFloat("fogDensity", f.Density)
		return
	}
	uc.SetFloat("fogNear", f.Near)
	uc.SetFloat("fogFar", f.Far)
}

// lights uploads each kind's arrays cut to what the program declares.
func (r *uniformRefresher) lights(uc *UniformCache, agg *LightAggregator, n LightCounts) {
	uc.SetVec3("ambientLightColor", agg.Ambient)

	d := &agg.Directional
	uc.SetVec3s("directionalLightColor", head(d.Colors, n.Directional*3))
	uc.SetVec3s("directionalLightDirection", head(d.Directions, n.Directional*3))

	p := &agg.Point
	uc.SetVec3s("pointLightColor", head(p.Colors, n.Point*3))
	uc.SetVec3s("pointLightPosition", head(p.Positions, n.Point*3))
	uc.SetFloats("pointLightDistance", head(p.Distances, n.Point))
	uc.SetFloats("pointLightDecay", head(p.Decays, n.Point))

	s := &agg.Spot
	uc.SetVec3s("spotLightColor", head(s.Colors, n.Spot*3))
	uc.SetVec3s("spotLightPosition", head(s.Positions, n.Spot*3))
	uc.SetVec3s("spotLightDirection", head(s.Directions, n.Spot*3))
	uc.SetFloats("spotLightDistance", head(s.Distances, n.Spot))
	uc.SetFloats("spotLightAngleCos", head(s.AngleCos, n.Spot))
	uc.SetFloats("spotLightExponent", head(s.Exponents, n.Spot))
	uc.SetFloats("spotLightDecay", head(s.Decays, n.Spot))

	h := &agg.Hemisphere
	uc.SetVec3s("hemisphereLightSkyColor", head(h.SkyColors, n.Hemisphere*3))
	uc.SetVec3s("hemisphereLightGroundColor", head(h.Ground, n.Hemisphere*3))
	uc.SetVec3s("hemisphereLightDirection", head(h.Directions, n.Hemisphere*3))
}

func head(s []float32, n int) []float32 {
	return s[:min(n, len(s))]
}

// shadows binds up to n shadow maps and their parameters.
func (r *uniformRefresher) shadows(uc *UniformCache, maps []ShadowMap, n int) {
	if n == 0 || len(maps) == 0 || !uc.Has("shadowMatrix") {
		return
	}
	maps = maps[:min(n, len(maps))]
	units := make([]int32, len(maps))
	sizes := make([]float32, 0, len(maps)*2)
	darkness := make([]float32, len(maps))
	bias := make([]float32, len(maps))
	matrices := make([]float32, 0, len(maps)*16)
	for i, sm := range maps {
		units[i] = r.units.bindHandle(sm.Texture)
		sizes = append(sizes, sm.Size[0], sm.Size[1])
		darkness[i] = sm.Darkness
		bias[i] = sm.Bias
		matrices = append(matrices, sm.Matrix[:]...)
	}
	uc.SetInts("shadowMap", units)
	uc.SetVec2s("shadowMapSize", sizes)
	uc.SetFloats("shadowDarkness", darkness)
	uc.SetFloats("shadowBias", bias)
	uc.SetMat4s("shadowMatrix", matrices)
}

// camera writes the per-program view state.
func (r *uniformRefresher) camera(uc *UniformCache, cam *Camera, view mgl32.Mat4) {
	uc.SetMat4("projectionMatrix", cam.Projection)
	uc.SetMat4("viewMatrix", view)
	uc.SetVec3("cameraPosition", cam.Position)
	uc.SetFloat("mNear", cam.Near)
	uc.SetFloat("mFar", cam.Far)
}

func (r *uniformRefresher) object(uc *UniformCache, obj *Object, proxy *ObjectGPUProxy) {
	uc.SetMat4("modelViewMatrix", proxy.ModelView)
	uc.SetMat3("normalMatrix", proxy.NormalMatrix)
	uc.SetMat4("modelMatrix", obj.World)
}

func (r *uniformRefresher) skinning(uc *UniformCache, obj *Object, proxy *ObjectGPUProxy, p ProgramParams) {
	if !p.Skinning || obj.Skeleton == nil {
		return
	}
	if p.UseVertexTexture {
		tex := proxy.boneTexture
		if tex == nil {
			return
		}
		r.texture(uc, "boneTexture", tex)
		uc.SetInt("boneTextureWidth", int32(tex.Width))
		uc.SetInt("boneTextureHeight", int32(tex.Height))
		return
	}
	bones := obj.Skeleton.Bones
	uc.SetMat4s("boneGlobalMatrices", flattenMat4(bones[:min(len(bones), p.MaxBones)]))
}

// morph uploads the first MaxMorphTargets influences, zero padded. Those
// are the targets the drawable binds.
func (r *uniformRefresher) morph(uc *UniformCache, obj *Object, p ProgramParams) {
	if !p.MorphTargets || p.MaxMorphTargets == 0 {
		return
	}
	r.influences = growFloats(r.influences[:0], p.MaxMorphTargets)
	clear(r.influences)
	copy(r.influences, obj.MorphTargetInfluences)
	uc.SetFloats("morphTargetInfluences", r.influences)
}

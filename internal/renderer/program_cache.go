package renderer

import (
	"sync"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/handle"
	"Gopher3DCore/internal/logger"
	"Gopher3DCore/internal/shaderlib"

	"go.uber.org/zap"
)

// ProgramEntry is a compiled program shared by every material whose
// parameters produce the same signature.
type ProgramEntry struct {
	ID        handle.Handle
	Signature string
	Program   gpu.Program
	Params    ProgramParams
	// OK is false when compile or link failed. The entry is still cached so
	// a broken shader is reported once, and draws through it are skipped.
	OK bool

	uniforms  *UniformCache
	attribs   map[string]gpu.Location
	device    gpu.Device
	usedTimes int
}

// Attrib returns the attribute slot for name, querying the driver once.
func (e *ProgramEntry) Attrib(name string) gpu.Location {
	if loc, ok := e.attribs[name]; ok {
		return loc
	}
	loc := e.device.AttribLocation(e.Program, name)
	e.attribs[name] = loc
	return loc
}

func (e *ProgramEntry) Uniforms() *UniformCache { return e.uniforms }

// UsedTimes is the number of live material states referencing the entry.
func (e *ProgramEntry) UsedTimes() int { return e.usedTimes }

// builtinAttribs are located right after linking.
var builtinAttribs = []string{
	"position", "normal", "uv", "uv2", "color", "tangent", "skinIndex", "skinWeight",
}

// builtinUniforms are located right after linking.
var builtinUniforms = []string{
	"modelMatrix", "modelViewMatrix", "projectionMatrix", "viewMatrix", "normalMatrix", "cameraPosition",
	"morphTargetInfluences", "boneTexture", "boneTextureWidth", "boneTextureHeight", "boneGlobalMatrices",
}

// ProgramCache compiles and shares programs keyed by signature.
type ProgramCache struct {
	device gpu.Device
	lib    *shaderlib.Library

	mu       sync.Mutex
	entries  map[string]*ProgramEntry
	arena    handle.Arena[*ProgramEntry]
	compiles int
}

func NewProgramCache(device gpu.Device, lib *shaderlib.Library) *ProgramCache {
	return &ProgramCache{
		device:  device,
		lib:     lib,
		entries: make(map[string]*ProgramEntry),
	}
}

// Acquire returns the program for p, compiling it on first use, and takes a
// reference on it.
func (c *ProgramCache) Acquire(p ProgramParams) *ProgramEntry {
	return c.Resolve(p.Signature(), func() ProgramSource {
		vs, fs := buildProgramSource(c.lib, p)
		return ProgramSource{Vertex: vs, Fragment: fs, Params: p}
	})
}

// Resolve returns the entry cached under signature or compiles the source
// produced by build. Each call takes one reference.
func (c *ProgramCache) Resolve(signature string, build func() ProgramSource) *ProgramEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[signature]; ok {
		e.usedTimes++
		return e
	}

	src := build()
	prog, res := c.device.CompileProgram(src.Vertex, src.Fragment)
	c.compiles++
	e := &ProgramEntry{
		Signature: signature,
		Program:   prog,
		Params:    src.Params,
		OK:        res.OK,
		uniforms:  NewUniformCache(c.device, prog),
		attribs:   make(map[string]gpu.Location),
		device:    c.device,
		usedTimes: 1,
	}
	e.ID = c.arena.Insert(e)
	c.entries[signature] = e

	if !res.OK {
		logger.Log.Warn("Shader program failed to compile",
			zap.String("shader", shaderName(src.Params)),
			zap.String("vertexLog", res.VertexLog),
			zap.String("fragmentLog", res.FragmentLog),
			zap.String("linkLog", res.LinkLog))
		if res.VertexLog != "" {
			logger.Log.Warn("Vertex shader source\n" + shaderlib.NumberLines(src.Vertex))
		}
		if res.FragmentLog != "" || res.LinkLog != "" {
			logger.Log.Warn("Fragment shader source\n" + shaderlib.NumberLines(src.Fragment))
		}
		return e
	}

	for _, name := range builtinAttribs {
		e.Attrib(name)
	}
	for _, name := range src.Attribs {
		e.Attrib(name)
	}
	for _, name := range builtinUniforms {
		e.uniforms.GetLocation(name)
	}
	for _, name := range src.Uniforms {
		e.uniforms.GetLocation(name)
	}

	logger.Log.Debug("Shader program compiled",
		zap.String("shader", shaderName(src.Params)),
		zap.Int("programs", len(c.entries)))
	return e
}

func shaderName(p ProgramParams) string {
	if p.ShaderID != "" {
		return p.ShaderID
	}
	return "custom"
}

// Release drops one reference and deletes the program at zero.
func (c *ProgramCache) Release(e *ProgramEntry) {
	if e == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.arena.Get(e.ID); !ok {
		return
	}
	e.usedTimes--
	if e.usedTimes > 0 {
		return
	}
	c.arena.Remove(e.ID)
	delete(c.entries, e.Signature)
	c.device.DeleteProgram(e.Program)
}

// MaxLights is the widest light array any live program declares.
func (c *ProgramCache) MaxLights() LightCounts {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out LightCounts
	c.arena.Each(func(_ handle.Handle, e *ProgramEntry) {
		out = out.Max(e.Params.Lights)
	})
	return out
}

// Len is the number of live programs.
func (c *ProgramCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.arena.Len()
}

// Compiles counts every compile attempt since creation.
func (c *ProgramCache) Compiles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compiles
}

// Clear deletes every program regardless of references.
func (c *ProgramCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.arena.Each(func(_ handle.Handle, e *ProgramEntry) {
		c.device.DeleteProgram(e.Program)
		e.usedTimes = 0
	})
	c.arena.Clear()
	c.entries = make(map[string]*ProgramEntry)
}

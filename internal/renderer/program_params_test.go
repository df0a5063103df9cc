package renderer

import (
	"testing"

	"Gopher3DCore/internal/gpu/gputest"
	"Gopher3DCore/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAllocateBonesUsesTextureWhenSupported(t *testing.T) {
	caps := gputest.New().Caps
	sk := &Skeleton{Bones: make([]mgl32.Mat4, 30), UseVertexTexture: true}

	bones, useTexture := AllocateBones(caps, sk)
	assert.Equal(t, 1024, bones)
	assert.True(t, useTexture)

	caps.SupportsFloatTextures = false
	bones, useTexture = AllocateBones(caps, sk)
	assert.Equal(t, 30, bones)
	assert.False(t, useTexture)
}

func TestAllocateBonesClampsToUniformBudget(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Set(zap.New(core))
	defer logger.Set(nil)
	logger.ResetOnce()

	caps := gputest.New().Caps
	caps.MaxVertexUniformVectors = 1024

	bones, useTexture := AllocateBones(caps, &Skeleton{Bones: make([]mgl32.Mat4, 40)})
	assert.Equal(t, 40, bones)
	assert.False(t, useTexture)
	assert.Zero(t, logs.Len())

	// (1024 - 20) / 4 bone matrices fit.
	bones, _ = AllocateBones(caps, &Skeleton{Bones: make([]mgl32.Mat4, 300)})
	assert.Equal(t, 251, bones)
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, int64(251), warnings[0].ContextMap()["maxBones"])
	}

	caps.MaxVertexUniformVectors = 8
	bones, _ = AllocateBones(caps, &Skeleton{Bones: make([]mgl32.Mat4, 2)})
	assert.Zero(t, bones)
}

func TestSignatureSeparatesCustomSources(t *testing.T) {
	a := ProgramParams{VertexShader: "ab", FragmentShader: "c"}
	b := ProgramParams{VertexShader: "a", FragmentShader: "bc"}
	assert.NotEqual(t, a.Signature(), b.Signature())

	same := ProgramParams{VertexShader: "ab", FragmentShader: "c"}
	assert.Equal(t, a.Signature(), same.Signature())
}

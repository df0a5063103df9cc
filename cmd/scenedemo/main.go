// Command scenedemo opens a window with a lit, shadowed scene: an optional
// OBJ model, a Perlin terrain or voxel world, and a few primitives.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"Gopher3DCore/internal/behaviour"
	"Gopher3DCore/internal/engine"
	"Gopher3DCore/internal/loader"
	"Gopher3DCore/internal/logger"
	"Gopher3DCore/internal/renderer"
	"Gopher3DCore/internal/scene"
	"Gopher3DCore/internal/water"

	"github.com/go-gl/mathgl/mgl32"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	width      int
	height     int
	objPath    string
	voxels     bool
	water      bool
	seed       int64
	meshCache  string
	script     string
	logLevel   string
	shaderDir  string
}

func parseFlags() options {
	var o options
	flag.StringVarP(&o.configPath, "config", "c", "", "renderer config YAML")
	flag.IntVar(&o.width, "width", 1280, "window width")
	flag.IntVar(&o.height, "height", 720, "window height")
	flag.StringVarP(&o.objPath, "obj", "m", "", "Wavefront OBJ model to show")
	flag.BoolVar(&o.voxels, "voxels", false, "replace the terrain with a voxel world")
	flag.BoolVar(&o.water, "water", false, "add an animated water surface")
	flag.Int64Var(&o.seed, "seed", 1, "terrain noise seed")
	flag.StringVar(&o.meshCache, "mesh-cache", "", "load the ground mesh from this file, writing it on first run")
	flag.StringVar(&o.script, "script", "rotate", fmt.Sprintf("behaviour for the model %v", behaviour.GetAvailableScripts()))
	flag.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error; overrides the config")
	flag.StringVar(&o.shaderDir, "shader-dir", "", "directory of .glsl chunk overrides to watch")
	flag.Parse()
	return o
}

func main() {
	runtime.LockOSThread()
	opts := parseFlags()

	cfg := renderer.HighQualityConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = renderer.LoadConfig(opts.configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.shaderDir != "" {
		cfg.ShaderDir = opts.shaderDir
	}
	logger.InitWith(logger.ParseLevel(cfg.LogLevel))
	defer logger.Log.Sync()

	gopher := engine.NewGopher(cfg)
	gopher.Width, gopher.Height = int32(opts.width), int32(opts.height)
	gopher.Title = "Gopher3D scene demo"

	if err := buildScene(gopher, opts); err != nil {
		logger.Log.Fatal("Could not build scene", zap.Error(err))
	}
	if err := gopher.Render(-1, -1); err != nil {
		logger.Log.Fatal("Render failed", zap.Error(err))
	}
}

func buildScene(gopher *engine.Gopher, opts options) error {
	s := gopher.Scene
	s.SceneFog = renderer.NewExpFog(mgl32.Vec3{0.55, 0.6, 0.7}, 0.004)

	sun := renderer.NewDirectionalLight(mgl32.Vec3{1, 0.95, 0.85}, 1)
	sun.CastShadow = true
	sun.Shadow.EnableCascades(3)
	sunNode := scene.NewLightNode("sun", sun)
	sunNode.SetPosition(60, 120, 40)
	s.Add(sunNode,
		scene.NewLightNode("sky", renderer.NewHemisphereLight(mgl32.Vec3{0.6, 0.7, 1}, mgl32.Vec3{0.3, 0.25, 0.2}, 0.4)),
		scene.NewLightNode("ambient", renderer.NewAmbientLight(mgl32.Vec3{0.1, 0.1, 0.1})))

	ground, err := groundGeometry(opts)
	if err != nil {
		return err
	}
	groundMat := renderer.NewMaterial(renderer.LambertMaterial, "ground")
	if opts.voxels {
		groundMat.VertexColors = renderer.VertexColors
	} else {
		groundMat.Color = mgl32.Vec3{0.35, 0.55, 0.3}
	}
	groundNode := scene.NewMeshNode("ground", ground, groundMat)
	groundNode.Object.ReceiveShadow = true
	groundNode.SetPosition(0, -10, 0)
	s.Add(groundNode)

	sphere := scene.NewMeshNode("sphere", loader.CreateSphereGeometry(4, 24), renderer.NewMaterial(renderer.PhongMaterial, "chrome"))
	sphere.Object.Material.Shininess = 80
	sphere.Object.CastShadow = true
	sphere.SetPosition(-15, 5, 0)
	gopher.Behaviours.Add(behaviour.NewBouncer(sphere, 3, 1.5))

	glass := renderer.NewMaterial(renderer.PhongMaterial, "glass")
	glass.Apply(renderer.MaterialParams{Color: renderer.Ptr(mgl32.Vec3{0.4, 0.6, 1}), Opacity: renderer.Ptr(float32(0.5)), Transparent: renderer.Ptr(true)})
	cube := scene.NewMeshNode("cube", loader.CreateCubeGeometry(6), glass)
	cube.Object.CastShadow = true
	cube.SetPosition(15, 3, 0)
	gopher.Behaviours.Add(behaviour.NewRotator(cube, 30))
	s.Add(sphere, cube)

	if opts.water {
		ws, err := water.NewSimulation(200, 0.6, water.DefaultResolution)
		if err != nil {
			return err
		}
		ws.Node.SetPosition(0, -6, 0)
		s.Add(ws.Node)
		gopher.Behaviours.Add(ws)
	}

	if opts.objPath != "" {
		model, err := loader.LoadOBJ(opts.objPath, loader.Options{})
		if err != nil {
			return err
		}
		node := model.Node("model")
		node.Object.CastShadow = true
		s.Add(node)
		if opts.script != "" {
			b, err := behaviour.CreateScript(opts.script, node)
			if err != nil {
				return err
			}
			gopher.Behaviours.Add(b)
		}
	}

	gopher.Camera = renderer.NewDefaultCamera(opts.width, opts.height)
	gopher.Camera.Position = mgl32.Vec3{0, 20, 60}
	gopher.Camera.LookAt(mgl32.Vec3{})
	return nil
}

// groundGeometry builds the terrain or voxel world, going through the mesh
// cache when one is configured.
func groundGeometry(opts options) (*renderer.Geometry, error) {
	if opts.meshCache != "" {
		g, err := loader.LoadGeometry(opts.meshCache)
		if err == nil {
			logger.Log.Info("Ground loaded from cache", zap.String("path", opts.meshCache))
			return g, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			logger.Log.Warn("Ignoring unreadable mesh cache", zap.Error(err))
		}
	}

	terrain := loader.TerrainOptions{GridSize: 128, Spacing: 2, Height: 12, Seed: opts.seed}
	var g *renderer.Geometry
	if opts.voxels {
		world := loader.NewVoxelWorld(16, 6, 6, 48, 2)
		world.FillTerrain(loader.NewHeightField(terrain))
		g = world.BuildGeometry()
	} else {
		var err error
		if g, err = loader.LoadTerrain(terrain); err != nil {
			return nil, err
		}
	}

	if opts.meshCache != "" {
		if err := loader.SaveGeometry(opts.meshCache, g); err != nil {
			logger.Log.Warn("Could not write mesh cache", zap.Error(err))
		}
	}
	return g, nil
}

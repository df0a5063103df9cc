// Package engine owns the window and the frame loop: it polls input, runs
// behaviours, resolves the scene and hands it to the renderer.
package engine

import (
	"context"
	"fmt"
	"runtime"

	"Gopher3DCore/internal/behaviour"
	"Gopher3DCore/internal/gpu/glbackend"
	"Gopher3DCore/internal/logger"
	"Gopher3DCore/internal/renderer"
	"Gopher3DCore/internal/scene"
	"Gopher3DCore/internal/shaderlib"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// fixedUpdateEvery is how many frames pass between fixed updates.
const fixedUpdateEvery = 2

type Gopher struct {
	Width  int32
	Height int32
	Title  string
	Config renderer.Config

	Scene      *scene.Scene
	Camera     *renderer.Camera
	Behaviours *behaviour.BehaviourManager
	// EnableCameraInput turns the WASD and right-drag fly controls on.
	EnableCameraInput bool

	window   *glfw.Window
	device   *glbackend.Device
	renderer *renderer.Renderer
	library  *shaderlib.Library
	watcher  *shaderlib.Watcher

	lastX, lastY     float64
	firstMouse       bool
	frameTrackId     int
	onRenderCallback func(deltaTime float64)
}

func NewGopher(cfg renderer.Config) *Gopher {
	return &Gopher{
		Width:             1024,
		Height:            768,
		Title:             "Gopher3D",
		Config:            cfg,
		Scene:             scene.New(),
		Behaviours:        behaviour.NewBehaviourManager(),
		EnableCameraInput: true,
		library:           shaderlib.New(),
		firstMouse:        true,
	}
}

// Renderer is nil until Render has created the GL context.
func (gopher *Gopher) Renderer() *renderer.Renderer { return gopher.renderer }

func (gopher *Gopher) Library() *shaderlib.Library { return gopher.library }

func (gopher *Gopher) AddNode(nodes ...*scene.Node) {
	gopher.Scene.Add(nodes...)
}

// SetOnRenderCallback sets a callback that will be called each frame after the 3D scene is rendered
func (gopher *Gopher) SetOnRenderCallback(callback func(deltaTime float64)) {
	gopher.onRenderCallback = callback
}

// Render opens the window at (x, y) and runs the frame loop until the
// window closes. It must be called from the main goroutine.
func (gopher *Gopher) Render(x, y int) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("could not initialize glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Decorated, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 32)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(int(gopher.Width), int(gopher.Height), gopher.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("could not create glfw window: %w", err)
	}
	gopher.window = window
	window.MakeContextCurrent()
	window.SetPos(x, y)

	if err := gopher.initRenderer(); err != nil {
		return err
	}
	defer gopher.cleanup()

	if gopher.Camera == nil {
		gopher.Camera = renderer.NewDefaultCamera(int(gopher.Width), int(gopher.Height))
	}
	gopher.lastX, gopher.lastY = float64(gopher.Width/2), float64(gopher.Height/2)
	window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	window.SetCursorPosCallback(gopher.mouseCallback)

	gopher.Scene.UpdateWorld()
	if err := gopher.renderer.Prepare(context.Background(), gopher.Scene.Objects()); err != nil {
		logger.Log.Warn("Geometry preparation failed", zap.Error(err))
	}

	gopher.RenderLoop()
	return nil
}

func (gopher *Gopher) initRenderer() error {
	device, err := glbackend.New()
	if err != nil {
		return err
	}
	gopher.device = device

	if dir := gopher.Config.ShaderDir; dir != "" {
		w, err := shaderlib.Watch(gopher.library, dir, nil)
		if err != nil {
			// Built-in chunks still work; only overrides are lost.
			logger.Log.Warn("Shader overrides disabled", zap.String("dir", dir), zap.Error(err))
		} else {
			gopher.watcher = w
		}
	}

	r, err := renderer.New(device, gopher.library, &gopher.Config)
	if err != nil {
		return err
	}
	gopher.renderer = r
	fbw, fbh := gopher.window.GetFramebufferSize()
	r.SetSize(fbw, fbh)
	return nil
}

func (gopher *Gopher) RenderLoop() {
	lastTime := glfw.GetTime()
	lastWidth, lastHeight := gopher.Width, gopher.Height

	for !gopher.window.ShouldClose() {
		currentTime := glfw.GetTime()
		deltaTime := currentTime - lastTime
		lastTime = currentTime

		actualWidth, actualHeight := gopher.window.GetSize()
		gopher.Width, gopher.Height = int32(actualWidth), int32(actualHeight)
		if gopher.Width != lastWidth || gopher.Height != lastHeight {
			gopher.resize()
			lastWidth, lastHeight = gopher.Width, gopher.Height
		}

		if gopher.EnableCameraInput {
			gopher.processKeyboard(float32(deltaTime))
		}

		if gopher.frameTrackId >= fixedUpdateEvery {
			gopher.Behaviours.UpdateAllFixed()
			gopher.frameTrackId = 0
		}
		gopher.Behaviours.UpdateAll(deltaTime)

		gopher.Scene.UpdateWorld()
		gopher.renderer.Render(gopher.Scene, gopher.Camera)

		if gopher.onRenderCallback != nil {
			gopher.onRenderCallback(deltaTime)
		}

		gopher.window.SwapBuffers()
		gopher.frameTrackId++
		glfw.PollEvents()
	}
}

func (gopher *Gopher) resize() {
	fbw, fbh := gopher.window.GetFramebufferSize()
	if fbw == 0 || fbh == 0 {
		// Minimized.
		return
	}
	gopher.renderer.SetSize(fbw, fbh)
	gopher.Camera.SetAspectRatio(float32(fbw) / float32(fbh))
	logger.Log.Debug("Window resized", zap.Int("width", fbw), zap.Int("height", fbh))
}

func (gopher *Gopher) cleanup() {
	if gopher.watcher != nil {
		if err := gopher.watcher.Close(); err != nil {
			logger.Log.Warn("Closing shader watcher", zap.Error(err))
		}
	}
	info := gopher.renderer.Info()
	logger.Log.Info("Shutting down",
		zap.Int("programs", info.Memory.Programs),
		zap.Int("geometries", info.Memory.Geometries),
		zap.Int("textures", info.Memory.Textures))
	gopher.renderer.Textures().LogStats()
	gopher.renderer.Close()
	gopher.device.Close()
}

// Pick returns the nearest object under the cursor, or nil.
func (gopher *Gopher) Pick() *renderer.Hit {
	x, y := gopher.window.GetCursorPos()
	ray := gopher.Camera.ScreenToRay(float32(x), float32(y), int(gopher.Width), int(gopher.Height))
	hits := renderer.Raycast(gopher.Scene, ray)
	if len(hits) == 0 {
		return nil
	}
	return &hits[0]
}

func (gopher *Gopher) GetMousePosition() mgl32.Vec2 {
	x, y := gopher.window.GetCursorPos()
	return mgl32.Vec2{float32(x), float32(y)}
}

func (gopher *Gopher) IsMouseButtonPressed(button glfw.MouseButton) bool {
	return gopher.window.GetMouseButton(button) == glfw.Press
}

// GetWindow returns the GLFW window (for advanced use)
func (gopher *Gopher) GetWindow() *glfw.Window {
	return gopher.window
}

var moveKeys = map[glfw.Key]renderer.MoveDirection{
	glfw.KeyW:     renderer.MoveForward,
	glfw.KeyS:     renderer.MoveBackward,
	glfw.KeyA:     renderer.MoveLeft,
	glfw.KeyD:     renderer.MoveRight,
	glfw.KeySpace: renderer.MoveUp,
	glfw.KeyC:     renderer.MoveDown,
}

func (gopher *Gopher) processKeyboard(deltaTime float32) {
	boost := gopher.window.GetKey(glfw.KeyLeftShift) == glfw.Press
	for key, dir := range moveKeys {
		if gopher.window.GetKey(key) == glfw.Press {
			gopher.Camera.Move(dir, deltaTime, boost)
		}
	}
	if gopher.window.GetKey(glfw.KeyEscape) == glfw.Press {
		gopher.window.SetShouldClose(true)
	}
}

// mouseCallback turns the camera while the right button is held.
func (gopher *Gopher) mouseCallback(w *glfw.Window, xpos, ypos float64) {
	if gopher.EnableCameraInput && w.GetAttrib(glfw.Focused) == glfw.True && w.GetMouseButton(glfw.MouseButtonRight) == glfw.Press {
		if gopher.firstMouse {
			gopher.lastX = xpos
			gopher.lastY = ypos
			gopher.firstMouse = false
			return
		}

		xoffset := xpos - gopher.lastX
		yoffset := gopher.lastY - ypos // Reversed since y-coordinates go from bottom to top
		gopher.lastX = xpos
		gopher.lastY = ypos

		gopher.Camera.ProcessMouseMovement(float32(xoffset), float32(yoffset), true)
	} else {
		gopher.firstMouse = true
	}
}

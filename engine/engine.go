package engine

import (
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/assets"
	"github.com/spaghettifunk/vkguard/engine/core"
	"github.com/spaghettifunk/vkguard/engine/platform"
	"github.com/spaghettifunk/vkguard/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

var clearColor = vulkan.ClearColor{0.0, 0.0, 0.2, 1.0}

// frame holds what one frame in flight needs. inFlight is signaled when the
// GPU is done with the frame's command buffer.
type frame struct {
	commands       *vulkan.CommandBuffer
	imageAvailable *vulkan.QueueFence
	renderFinished *vulkan.QueueFence
	inFlight       *vulkan.Fence
}

func (f *frame) release() {
	if f.commands != nil {
		f.commands.Release()
	}
	if f.imageAvailable != nil {
		f.imageAvailable.Release()
	}
	if f.renderFinished != nil {
		f.renderFinished.Release()
	}
	if f.inFlight != nil {
		f.inFlight.Release()
	}
}

type Option func(*Engine)

// WithWindow uses w instead of creating the window named in the config.
func WithWindow(w platform.Window) Option {
	return func(e *Engine) {
		e.window = w
	}
}

// WithDriver uses d instead of opening the driver named in the config.
func WithDriver(d vulkan.Driver) Option {
	return func(e *Engine) {
		e.driver = d
	}
}

// WithShaders serves shaders from src instead of the configured directory.
func WithShaders(src assets.ShaderSource) Option {
	return func(e *Engine) {
		e.shaders = src
	}
}

// Engine drives the acquire, record, submit and present cycle on one
// goroutine. Only Stop may be called from other goroutines.
type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *core.Config
	isRunning    bool

	window    platform.Window
	driver    vulkan.Driver
	instance  *vulkan.Instance
	surface   *vulkan.Surface
	device    *vulkan.Device
	swapchain *vulkan.Swapchain

	renderPass     *vulkan.RenderPass
	framebuffers   []*vulkan.Framebuffer
	frames         []*frame
	imagesInFlight []*vulkan.Fence
	frameIndex     int

	shaders assets.ShaderSource
	library *assets.ShaderLibrary
	quit    *platform.Event

	clock    *core.Clock
	metrics  *core.FrameMetrics
	lastTime time.Duration
}

func New(cfg *core.Config, g *Game, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		quit:         platform.NewEvent(false),
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Initialize brings up the window, the device and the presentation objects,
// then hands over to the game. On failure everything created so far is
// released.
func (e *Engine) Initialize() (err error) {
	if e.currentStage != EngineStageUninitialized {
		return errors.Wrap(core.ErrInvalidState, "engine already initialized")
	}
	e.currentStage = EngineStageInitializing
	defer func() {
		if err != nil {
			core.LogError("engine initialization failed: %s", err)
			e.Shutdown()
		}
	}()

	cfg := e.config
	if e.window == nil {
		if e.window, err = platform.New(cfg); err != nil {
			return err
		}
	}
	if e.driver == nil {
		opts := vulkan.DriverOptions{}
		if p, ok := e.window.(interface{ InstanceProcAddr() unsafe.Pointer }); ok {
			opts.ProcAddr = p.InstanceProcAddr()
		}
		if e.driver, err = vulkan.OpenDriver(cfg.Device.Driver, opts); err != nil {
			return err
		}
	}

	e.instance, err = vulkan.NewInstance(e.driver, vulkan.InstanceOptions{
		ApplicationName: cfg.Application.Name,
		Extensions:      e.window.RequiredExtensions(),
		Layers:          cfg.Device.Layers,
		Validation:      cfg.Device.Validation,
	})
	if err != nil {
		return err
	}
	if e.surface, err = e.instance.CreateSurface(e.window); err != nil {
		return err
	}

	policy, err := vulkan.ParseAdapterPolicy(cfg.Device.AdapterPolicy)
	if err != nil {
		return err
	}
	e.device, err = vulkan.NewDevice(e.instance, vulkan.DeviceOptions{
		Policy:             policy,
		Extensions:         cfg.Device.Extensions,
		OptionalExtensions: cfg.Device.OptionalExtensions,
		Features: vulkan.Features{
			SamplerAnisotropy: cfg.Device.Features.SamplerAnisotropy,
			FillModeNonSolid:  cfg.Device.Features.FillModeNonSolid,
			WideLines:         cfg.Device.Features.WideLines,
		},
	})
	if err != nil {
		return err
	}

	width, height := e.window.Extent()
	if e.swapchain, err = vulkan.NewSwapchain(e.device, e.surface, width, height); err != nil {
		return err
	}
	if e.renderPass, err = e.device.CreateRenderPass(e.swapchain.Format().Format, clearColor); err != nil {
		return err
	}
	if err = e.createFramebuffers(); err != nil {
		return err
	}
	if err = e.createFrames(cfg.Swapchain.FramesInFlight); err != nil {
		return err
	}

	if e.shaders == nil {
		if e.library, err = assets.NewShaderLibrary(cfg.Assets.ShaderDir); err != nil {
			return err
		}
		if cfg.Assets.Watch {
			if err = e.library.Watch(); err != nil {
				return err
			}
		}
		e.shaders = e.library
	}

	if g := e.gameInstance; g != nil {
		if g.FnInitialize != nil {
			if err = g.FnInitialize(e); err != nil {
				return err
			}
		}
		if g.FnOnResize != nil {
			ext := e.swapchain.Extent()
			if err = g.FnOnResize(ext.Width, ext.Height); err != nil {
				return err
			}
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized on '%s' with %d frames in flight.", e.device.Adapter().Name(), len(e.frames))
	return nil
}

func (e *Engine) createFramebuffers() error {
	fbs, err := vulkan.SwapchainFramebuffers(e.device, e.renderPass, e.swapchain)
	if err != nil {
		return err
	}
	e.framebuffers = fbs
	e.imagesInFlight = make([]*vulkan.Fence, e.swapchain.ImageCount())
	return nil
}

func (e *Engine) releaseFramebuffers() {
	for _, fb := range e.framebuffers {
		fb.Release()
	}
	e.framebuffers = nil
}

func (e *Engine) createFrames(count uint32) error {
	graphics := e.device.GraphicsQueue().Family()
	for i := uint32(0); i < count; i++ {
		f := &frame{}
		e.frames = append(e.frames, f)

		var err error
		if f.commands, err = e.device.AllocateCommandBuffer(graphics); err != nil {
			return err
		}
		if f.imageAvailable, err = e.device.CreateQueueFence(); err != nil {
			return err
		}
		if f.renderFinished, err = e.device.CreateQueueFence(); err != nil {
			return err
		}
		// Signaled so that the first wait on each frame returns at once.
		if f.inFlight, err = e.device.CreateSignaledFence(); err != nil {
			return err
		}
	}
	return nil
}

// Run renders frames until the window closes or Stop is called.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.Wrap(core.ErrInvalidState, "engine not initialized")
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true
	e.window.Show()

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	events := []*platform.Event{e.quit}
	if e.library != nil {
		events = append(events, e.library.Reload())
	}

	for e.isRunning {
		e.window.Flush()
		if e.window.Closed() {
			break
		}
		switch platform.FirstSignaled(events) {
		case 0:
			e.isRunning = false
			continue
		case 1:
			if err := e.reloadShaders(); err != nil {
				return err
			}
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStart := time.Now()

		if g := e.gameInstance; g != nil && g.FnUpdate != nil {
			if err := g.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down.")
				return err
			}
		}
		if err := e.drawFrame(delta); err != nil {
			return err
		}

		e.metrics.Update(time.Since(frameStart))
		if e.metrics.Frames()%1000 == 0 {
			core.LogDebug("%d frames, %.0f fps, %.2f ms/frame", e.metrics.Frames(), e.metrics.FPS(), e.metrics.FrameTime())
		}
		e.lastTime = currentTime
	}
	e.clock.Stop()
	core.LogInfo("Engine stopped after %d frames.", e.metrics.Frames())
	return nil
}

// Stop asks Run to return after the current frame. It is safe to call from
// any goroutine.
func (e *Engine) Stop() {
	e.quit.Set()
}

func (e *Engine) drawFrame(delta time.Duration) error {
	f := e.frames[e.frameIndex]
	if _, err := f.inFlight.Wait(vulkan.InfiniteTimeout); err != nil {
		return err
	}

	imageIndex, err := e.swapchain.AcquireNextTargetIndex(f.imageAvailable)
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		return e.recreateSwapchain()
	}
	if err != nil {
		return err
	}

	// Another frame may still be rendering to this image.
	if fence := e.imagesInFlight[imageIndex]; fence != nil && fence != f.inFlight {
		if _, err := fence.Wait(vulkan.InfiniteTimeout); err != nil {
			return err
		}
	}
	e.imagesInFlight[imageIndex] = f.inFlight

	// The buffer checks the fence of its last submission, so reset it first.
	cb := f.commands
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := f.inFlight.Reset(); err != nil {
		return err
	}

	if err := cb.Begin(vulkan.UsageOneTimeSubmit); err != nil {
		return err
	}
	ext := e.swapchain.Extent()
	cb.SetViewport(vulkan.Viewport{Width: float32(ext.Width), Height: float32(ext.Height), MaxDepth: 1.0}).
		SetScissor(vulkan.Rect2D{Extent: ext})
	e.renderPass.Begin(cb, e.framebuffers[imageIndex])
	if g := e.gameInstance; g != nil && g.FnRender != nil {
		if err := g.FnRender(cb, delta); err != nil {
			core.LogError("Game render failed, shutting down.")
			return err
		}
	}
	e.renderPass.End(cb)
	if err := cb.End(); err != nil {
		return err
	}

	waits := []vulkan.Wait{{Fence: f.imageAvailable, Stage: vulkan.StageColorAttachmentOutput}}
	if err := cb.Execute(e.device.GraphicsQueue(), waits, []*vulkan.QueueFence{f.renderFinished}, f.inFlight); err != nil {
		return err
	}

	err = e.swapchain.Present(imageIndex, f.renderFinished)
	e.frameIndex = (e.frameIndex + 1) % len(e.frames)
	switch {
	case errors.Is(err, core.ErrSwapchainOutOfDate):
		return e.recreateSwapchain()
	case err != nil:
		return err
	case e.window.Resized():
		return e.recreateSwapchain()
	}
	return nil
}

// recreateSwapchain rebuilds the swapchain for the current window size. A
// minimized window has no size, so it blocks on window messages until it
// gets one back or the engine is asked to stop.
func (e *Engine) recreateSwapchain() error {
	width, height := e.window.Extent()
	for width == 0 || height == 0 {
		switch r := e.window.WaitFor([]*platform.Event{e.quit}); r.Kind {
		case platform.WaitExit, platform.WaitEvent:
			e.isRunning = false
			return nil
		}
		width, height = e.window.Extent()
	}

	if err := e.device.WaitIdle(); err != nil {
		return err
	}
	e.releaseFramebuffers()
	if err := e.swapchain.Recreate(width, height); err != nil {
		return err
	}
	if err := e.createFramebuffers(); err != nil {
		return err
	}

	ext := e.swapchain.Extent()
	if g := e.gameInstance; g != nil && g.FnOnResize != nil {
		return g.FnOnResize(ext.Width, ext.Height)
	}
	return nil
}

func (e *Engine) reloadShaders() error {
	core.LogInfo("Shader change detected, reloading.")
	if err := e.device.WaitIdle(); err != nil {
		return err
	}
	if g := e.gameInstance; g != nil && g.FnShadersChanged != nil {
		return g.FnShadersChanged()
	}
	return nil
}

// CreatePipeline loads the named vertex and fragment shaders and links them
// into a pipeline for the engine's render pass.
func (e *Engine) CreatePipeline(vertexName, fragmentName string, layout vulkan.VertexLayout) (*vulkan.Pipeline, error) {
	vs, err := e.loadModule(vertexName)
	if err != nil {
		return nil, err
	}
	defer vs.Release()
	fs, err := e.loadModule(fragmentName)
	if err != nil {
		return nil, err
	}
	defer fs.Release()
	return e.device.CreateGraphicsPipeline(e.renderPass, vs, fs, layout)
}

func (e *Engine) loadModule(name string) (*vulkan.ShaderModule, error) {
	code, err := e.shaders.LoadShader(name, "main")
	if err != nil {
		return nil, err
	}
	return e.device.CreateShaderModule(code.Words, code.EntryPoint)
}

// Upload copies the staging half of pair into its device half and waits for
// the copy to finish. The data is then visible to vertex input.
func (e *Engine) Upload(pair *vulkan.BufferPair) error {
	queue := e.device.GraphicsQueue()
	cb, err := e.device.AllocateCommandBuffer(queue.Family())
	if err != nil {
		return err
	}
	defer cb.Release()

	if err := cb.Begin(vulkan.UsageOneTimeSubmit); err != nil {
		return err
	}
	pair.RecordUpload(cb, vulkan.StageVertexInput, vulkan.AccessVertexAttributeRead)
	if err := cb.End(); err != nil {
		return err
	}
	return queue.SubmitAndWait(cb)
}

func (e *Engine) Config() *core.Config {
	return e.config
}

func (e *Engine) Window() platform.Window {
	return e.window
}

func (e *Engine) Device() *vulkan.Device {
	return e.device
}

func (e *Engine) Swapchain() *vulkan.Swapchain {
	return e.swapchain
}

func (e *Engine) RenderPass() *vulkan.RenderPass {
	return e.renderPass
}

func (e *Engine) Metrics() *core.FrameMetrics {
	return e.metrics
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Shutdown waits for the device to go idle and releases everything in
// reverse creation order. It is safe to call after a failed Initialize.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageUninitialized {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var firstErr error
	if e.device != nil {
		firstErr = e.device.WaitIdle()
	}
	if g := e.gameInstance; g != nil && g.FnShutdown != nil {
		if err := g.FnShutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.library != nil {
		e.library.Close()
		e.library = nil
		e.shaders = nil
	}

	for _, f := range e.frames {
		f.release()
	}
	e.frames = nil
	e.imagesInFlight = nil
	e.releaseFramebuffers()
	if e.renderPass != nil {
		e.renderPass.Release()
		e.renderPass = nil
	}
	if e.swapchain != nil {
		e.swapchain.Release()
		e.swapchain = nil
	}
	if e.device != nil {
		e.device.Release()
		e.device = nil
	}
	if e.surface != nil {
		e.surface.Release()
		e.surface = nil
	}
	if e.instance != nil {
		e.instance.Release()
		e.instance = nil
	}
	if e.window != nil {
		if err := e.window.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, owner := range core.IdentifierLive() {
		core.LogWarn("still alive after shutdown: %s", owner)
	}
	e.currentStage = EngineStageUninitialized
	core.LogInfo("Engine shut down.")
	return firstErr
}

package engine

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/assets"
	"github.com/spaghettifunk/vkguard/engine/core"
	"github.com/spaghettifunk/vkguard/engine/platform"
	"github.com/spaghettifunk/vkguard/engine/renderer/vulkan"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

var testShaders = assets.StaticShaders{
	"triangle.vert": {0x07230203, 1},
	"triangle.frag": {0x07230203, 2},
}

func testConfig() *core.Config {
	cfg := core.DefaultConfig()
	cfg.Platform.Variant = "headless"
	cfg.Device.Driver = "null"
	cfg.Assets.Watch = false
	return cfg
}

// recorder is a game that draws one triangle and counts what the engine asks
// of it. onUpdate runs before every frame with the frame number.
type recorder struct {
	mu       sync.Mutex
	updates  int
	renders  int
	resizes  []vulkan.Extent2D
	reloads  int
	pipeline *vulkan.Pipeline
	vertices *vulkan.BufferPair
	onUpdate func(frame int)
}

func (r *recorder) game(e **Engine) *Game {
	return &Game{
		FnInitialize: func(eng *Engine) error {
			p, err := eng.CreatePipeline("triangle.vert", "triangle.frag", vulkan.VertexLayout{})
			if err != nil {
				return err
			}
			r.pipeline = p
			layout, err := vulkan.Preallocate(0, vulkan.Content{Name: "vertices", Size: 36, Usage: vulkan.BufferUsageVertex})
			if err != nil {
				return err
			}
			if r.vertices, err = layout.Instantiate(eng.Device()); err != nil {
				return err
			}
			if err := r.vertices.Stage("vertices", make([]byte, 36)); err != nil {
				return err
			}
			return eng.Upload(r.vertices)
		},
		FnUpdate: func(time.Duration) error {
			r.mu.Lock()
			r.updates++
			n := r.updates
			r.mu.Unlock()
			if r.onUpdate != nil {
				r.onUpdate(n)
			}
			return nil
		},
		FnRender: func(cb *vulkan.CommandBuffer, _ time.Duration) error {
			r.renders++
			cb.BindPipeline(r.pipeline).
				BindVertexBuffers(0, []*vulkan.Buffer{r.vertices.Device()}, []uint64{0}).
				Draw(3, 1, 0, 0)
			return nil
		},
		FnOnResize: func(w, h uint32) error {
			r.resizes = append(r.resizes, vulkan.Extent2D{Width: w, Height: h})
			return nil
		},
		FnShadersChanged: func() error {
			r.mu.Lock()
			r.reloads++
			r.mu.Unlock()
			(*e).Stop()
			return nil
		},
		FnShutdown: func() error {
			if r.pipeline != nil {
				r.pipeline.Release()
			}
			if r.vertices != nil {
				r.vertices.Release()
			}
			return nil
		},
	}
}

type fixture struct {
	drv    *vulkan.NullDriver
	window *platform.HeadlessWindow
	engine *Engine
	game   *recorder
}

func newFixture(t *testing.T, cfg *core.Config, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		drv:    vulkan.NewNullDriver(vulkan.DefaultNullAdapter()),
		window: platform.NewHeadlessWindow(platform.WindowOptions{Caption: t.Name(), Width: 800, Height: 600}),
		game:   &recorder{},
	}
	opts = append([]Option{WithDriver(f.drv), WithWindow(f.window)}, opts...)
	e, err := New(cfg, f.game.game(&f.engine), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.engine = e
	return f
}

func (f *fixture) stopAfter(frames int, each func(frame int)) {
	f.game.onUpdate = func(n int) {
		if each != nil {
			each(n)
		}
		if n == frames {
			f.engine.Stop()
		}
	}
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	if err := f.engine.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := f.engine.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := f.engine.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if n := f.drv.Live(""); n != 0 {
		t.Errorf("%d objects leaked", n)
	}
	if v := f.drv.Violations(); len(v) != 0 {
		t.Errorf("destruction order violations: %v", v)
	}
}

func TestEngineRendersFrames(t *testing.T) {
	f := newFixture(t, testConfig(), WithShaders(testShaders))
	f.stopAfter(5, nil)
	f.run(t)

	if f.game.renders != 5 {
		t.Errorf("renders = %d, want 5", f.game.renders)
	}
	if got := f.drv.Presents(); got != 5 {
		t.Errorf("presents = %d, want 5", got)
	}
	// One upload plus one submission per frame.
	if got := f.drv.Submits(); got != 6 {
		t.Errorf("submits = %d, want 6", got)
	}
	if f.engine.Metrics().Frames() != 5 {
		t.Errorf("metrics counted %d frames", f.engine.Metrics().Frames())
	}
	if want := []vulkan.Extent2D{{Width: 800, Height: 600}}; len(f.game.resizes) != 1 || f.game.resizes[0] != want[0] {
		t.Errorf("resizes = %v", f.game.resizes)
	}
	if f.engine.Stage() != EngineStageUninitialized {
		t.Errorf("stage after shutdown = %d", f.engine.Stage())
	}
}

func TestEngineRecreatesOutOfDateSwapchain(t *testing.T) {
	tests := []struct {
		name     string
		call     string
		presents int
	}{
		{"acquire", "AcquireNextImage", 2},
		{"present", "QueuePresent", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testConfig(), WithShaders(testShaders))
			f.drv.FailNext(tt.call, vulkan.ErrorOutOfDate)
			f.stopAfter(3, nil)
			f.run(t)

			if len(f.game.resizes) != 2 {
				t.Errorf("resizes = %v, want initial size plus one recreation", f.game.resizes)
			}
			if got := f.drv.Presents(); got != tt.presents {
				t.Errorf("presents = %d, want %d", got, tt.presents)
			}
		})
	}
}

func TestEngineFollowsWindowResize(t *testing.T) {
	f := newFixture(t, testConfig(), WithShaders(testShaders))
	f.stopAfter(3, func(n int) {
		if n == 1 {
			f.window.Resize(640, 480)
		}
	})
	f.run(t)

	want := []vulkan.Extent2D{{Width: 800, Height: 600}, {Width: 640, Height: 480}}
	if len(f.game.resizes) != 2 || f.game.resizes[1] != want[1] {
		t.Errorf("resizes = %v, want %v", f.game.resizes, want)
	}
}

func TestEngineWaitsWhileMinimized(t *testing.T) {
	f := newFixture(t, testConfig(), WithShaders(testShaders))
	f.stopAfter(3, func(n int) {
		if n == 1 {
			f.window.Resize(0, 0)
			go func() {
				time.Sleep(20 * time.Millisecond)
				f.window.Resize(320, 240)
			}()
		}
	})
	f.run(t)

	last := f.game.resizes[len(f.game.resizes)-1]
	if last != (vulkan.Extent2D{Width: 320, Height: 240}) {
		t.Errorf("last resize = %v, want 320x240", last)
	}
	if f.game.renders != 3 {
		t.Errorf("renders = %d, want 3", f.game.renders)
	}
}

func TestEngineStopsWhileMinimized(t *testing.T) {
	f := newFixture(t, testConfig(), WithShaders(testShaders))
	f.game.onUpdate = func(n int) {
		if n == 1 {
			f.window.Resize(0, 0)
			go func() {
				time.Sleep(20 * time.Millisecond)
				f.engine.Stop()
			}()
		}
	}
	f.run(t)

	if f.game.renders != 1 {
		t.Errorf("renders = %d, want 1", f.game.renders)
	}
}

func TestEngineStopsWhenWindowCloses(t *testing.T) {
	f := newFixture(t, testConfig(), WithShaders(testShaders))
	f.game.onUpdate = func(n int) {
		if n == 2 {
			f.window.Close()
		}
	}
	f.run(t)

	if got := f.drv.Presents(); got != 2 {
		t.Errorf("presents = %d, want 2", got)
	}
}

func writeSPIRV(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte{0x03, 0x02, 0x23, 0x07}, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestEngineReloadsShaders(t *testing.T) {
	dir := t.TempDir()
	writeSPIRV(t, filepath.Join(dir, "triangle.vert.spv"))
	writeSPIRV(t, filepath.Join(dir, "triangle.frag.spv"))

	cfg := testConfig()
	cfg.Assets.ShaderDir = dir
	cfg.Assets.Watch = true
	f := newFixture(t, cfg)

	deadline := time.Now().Add(5 * time.Second)
	f.game.onUpdate = func(n int) {
		if n == 1 {
			writeSPIRV(t, filepath.Join(dir, "triangle.frag.spv"))
		}
		if time.Now().After(deadline) {
			f.engine.Stop()
		}
		time.Sleep(time.Millisecond)
	}
	f.run(t)

	f.game.mu.Lock()
	defer f.game.mu.Unlock()
	if f.game.reloads == 0 {
		t.Error("shader change never reached the game")
	}
}

func TestEngineInitializeFailureReleasesEverything(t *testing.T) {
	f := newFixture(t, testConfig(), WithShaders(testShaders))
	f.drv.FailNext("CreateSwapchain", vulkan.ErrorInitializationFailed)

	err := f.engine.Initialize()
	if _, ok := core.IsDeviceError(err); !ok {
		t.Fatalf("err = %v, want a device error", err)
	}
	if n := f.drv.Live(""); n != 0 {
		t.Errorf("%d objects leaked", n)
	}
	if f.engine.Stage() != EngineStageUninitialized {
		t.Errorf("stage = %d", f.engine.Stage())
	}
}

func TestEngineMissingShader(t *testing.T) {
	f := newFixture(t, testConfig(), WithShaders(assets.StaticShaders{}))
	if err := f.engine.Initialize(); err == nil {
		t.Fatal("Initialize succeeded without shaders")
	}
	if n := f.drv.Live(""); n != 0 {
		t.Errorf("%d objects leaked", n)
	}
}

func TestEngineRunRequiresInitialize(t *testing.T) {
	e, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
	if err := e.Shutdown(); err != nil {
		t.Errorf("Shutdown of an idle engine: %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Swapchain.FramesInFlight = 0
	if _, err := New(cfg, nil); err == nil {
		t.Error("accepted zero frames in flight")
	}
}

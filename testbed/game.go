package testbed

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vkguard/engine"
	"github.com/spaghettifunk/vkguard/engine/core"
	"github.com/spaghettifunk/vkguard/engine/renderer/vulkan"
)

const (
	vertexShader   = "triangle.vert"
	fragmentShader = "triangle.frag"
	vertexRegion   = "vertices"
)

type Vertex struct {
	Position mgl32.Vec2
	Color    mgl32.Vec3
}

// vertexStride is the packed size of a Vertex: two floats then three.
const vertexStride = 5 * 4

var vertexLayout = vulkan.VertexLayout{
	Stride: vertexStride,
	Attributes: []vulkan.VertexAttribute{
		{Location: 0, Format: vulkan.FormatR32G32Sfloat, Offset: 0},
		{Location: 1, Format: vulkan.FormatR32G32B32Sfloat, Offset: 2 * 4},
	},
}

type TestGame struct {
	*engine.Game
}

type gameState struct {
	engine   *engine.Engine
	vertices []Vertex
	pipeline *vulkan.Pipeline
	buffers  *vulkan.BufferPair
	offset   uint64

	width   uint32
	height  uint32
	elapsed time.Duration
}

func NewTestGame() *TestGame {
	state := &gameState{
		vertices: Triangle(),
	}
	tg := &TestGame{
		Game: &engine.Game{
			State: state,
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShadersChanged = tg.ShadersChanged
	tg.FnShutdown = tg.Shutdown
	return tg
}

// Triangle is an RGB triangle centred on the origin, rotated so it points up.
func Triangle() []Vertex {
	rot := mgl32.Rotate2D(mgl32.DegToRad(-90))
	colors := []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	out := make([]Vertex, 3)
	for i := range out {
		angle := float32(i) * 2 * math.Pi / 3
		p := mgl32.Vec2{0.5 * float32(math.Cos(float64(angle))), 0.5 * float32(math.Sin(float64(angle)))}
		out[i] = Vertex{Position: rot.Mul2x1(p), Color: colors[i]}
	}
	return out
}

// PackVertices lays vertices out as little-endian floats, matching vertexLayout.
func PackVertices(vertices []Vertex) []byte {
	b := make([]byte, 0, len(vertices)*vertexStride)
	for _, v := range vertices {
		for _, f := range []float32{v.Position.X(), v.Position.Y(), v.Color.X(), v.Color.Y(), v.Color.Z()} {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
		}
	}
	return b
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	s := g.state()
	s.engine = e

	data := PackVertices(s.vertices)
	layout, err := vulkan.Preallocate(vulkan.DefaultAlignment, vulkan.Content{
		Name:  vertexRegion,
		Size:  uint64(len(data)),
		Usage: vulkan.BufferUsageVertex,
	})
	if err != nil {
		return err
	}
	if s.buffers, err = layout.Instantiate(e.Device()); err != nil {
		return err
	}
	if s.offset, err = s.buffers.Offset(vertexRegion); err != nil {
		return err
	}
	if err := s.buffers.Stage(vertexRegion, data); err != nil {
		return err
	}
	if err := e.Upload(s.buffers); err != nil {
		return err
	}

	s.pipeline, err = e.CreatePipeline(vertexShader, fragmentShader, vertexLayout)
	return err
}

func (g *TestGame) Update(deltaTime time.Duration) error {
	s := g.state()
	before := s.elapsed / (5 * time.Second)
	s.elapsed += deltaTime
	if s.elapsed/(5*time.Second) != before {
		m := s.engine.Metrics()
		core.LogInfo("%.0f fps, %.2f ms/frame at %dx%d", m.FPS(), m.FrameTime(), s.width, s.height)
	}
	return nil
}

func (g *TestGame) Render(cb *vulkan.CommandBuffer, deltaTime time.Duration) error {
	s := g.state()
	cb.BindPipeline(s.pipeline).
		BindVertexBuffers(0, []*vulkan.Buffer{s.buffers.Device()}, []uint64{s.offset}).
		Draw(uint32(len(s.vertices)), 1, 0, 0)
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	s := g.state()
	s.width, s.height = width, height
	return nil
}

// ShadersChanged rebuilds the pipeline. The old one stays in use when the
// new bytecode does not link.
func (g *TestGame) ShadersChanged() error {
	s := g.state()
	p, err := s.engine.CreatePipeline(vertexShader, fragmentShader, vertexLayout)
	if err != nil {
		core.LogWarn("keeping the previous pipeline: %s", err)
		return nil
	}
	if s.pipeline != nil {
		s.pipeline.Release()
	}
	s.pipeline = p
	return nil
}

func (g *TestGame) Shutdown() error {
	s := g.state()
	if s.pipeline != nil {
		s.pipeline.Release()
		s.pipeline = nil
	}
	if s.buffers != nil {
		s.buffers.Release()
		s.buffers = nil
	}
	return nil
}

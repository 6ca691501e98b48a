package vulkan

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

/**
 * @brief A compiled shader stage ready to be linked into a pipeline.
 */
type ShaderModule struct {
	owned *Owned[*Device]
	/** @brief The entry point the stage starts at. */
	entryPoint string
}

// CreateShaderModule wraps SPIR-V words. The slice is not retained.
func (d *Device) CreateShaderModule(code []uint32, entryPoint string) (*ShaderModule, error) {
	if d.Destroyed() {
		return nil, core.ErrReleased
	}
	if len(code) == 0 {
		return nil, errors.New("shader module: empty bytecode")
	}
	h, res := d.driver.CreateShaderModule(d.handle, code)
	if err := check("vkCreateShaderModule", res); err != nil {
		return nil, err
	}
	return &ShaderModule{
		owned:      d.own("shader module", ShaderManagement, h, d.driver.DestroyShaderModule),
		entryPoint: entryPoint,
	}, nil
}

func (s *ShaderModule) Handle() Handle {
	return s.owned.Handle()
}

func (s *ShaderModule) EntryPoint() string {
	return s.entryPoint
}

func (s *ShaderModule) Release() {
	s.owned.Release()
}

/**
 * @brief Vertex input layout of a pipeline with a single binding.
 */
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

type Pipeline struct {
	owned *Owned[*Device]
}

// CreateGraphicsPipeline links a vertex and a fragment stage for rp. Viewport
// and scissor are dynamic and must be set while recording.
func (d *Device) CreateGraphicsPipeline(rp *RenderPass, vertex, fragment *ShaderModule, layout VertexLayout) (*Pipeline, error) {
	if d.Destroyed() {
		return nil, core.ErrReleased
	}
	h, res := d.driver.CreateGraphicsPipeline(d.handle, PipelineInfo{
		RenderPass:     rp.Handle(),
		VertexShader:   vertex.Handle(),
		FragmentShader: fragment.Handle(),
		VertexEntry:    vertex.entryPoint,
		FragmentEntry:  fragment.entryPoint,
		VertexStride:   layout.Stride,
		Attributes:     append([]VertexAttribute(nil), layout.Attributes...),
	})
	if err := check("vkCreateGraphicsPipelines", res); err != nil {
		return nil, err
	}
	core.LogDebug("Graphics pipeline created.")
	return &Pipeline{owned: d.own("pipeline", PipelineManagement, h, d.driver.DestroyPipeline)}, nil
}

func (p *Pipeline) Handle() Handle {
	if p == nil {
		return NullHandle
	}
	return p.owned.Handle()
}

func (p *Pipeline) Release() {
	p.owned.Release()
}

package engine

import (
	"time"

	"github.com/spaghettifunk/vkguard/engine/renderer/vulkan"
)

// Game is the set of hooks the engine calls while it runs. Nil hooks are
// skipped.
type Game struct {
	State            interface{}
	FnInitialize     Initialize
	FnUpdate         Update
	FnRender         Render
	FnOnResize       OnResize
	FnShadersChanged ShadersChanged
	FnShutdown       Shutdown
}

// Initialize runs once the device, swapchain and render pass exist.
type Initialize func(e *Engine) error
type Update func(deltaTime time.Duration) error

// Render records draw commands into cb. The render pass is already active.
type Render func(cb *vulkan.CommandBuffer, deltaTime time.Duration) error
type OnResize func(width uint32, height uint32) error

// ShadersChanged runs after the shader library reported a change and the
// device went idle. Pipelines built from the old bytecode can be rebuilt here.
type ShadersChanged func() error
type Shutdown func() error

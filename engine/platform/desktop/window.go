// Package desktop provides the GLFW-backed window variant. GLFW covers
// Win32, X11/Wayland and Cocoa, so one variant serves every desktop OS.
package desktop

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/vkguard/engine/core"
	"github.com/spaghettifunk/vkguard/engine/platform"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
	platform.RegisterVariant("glfw", NewGLFWWindow)
}

type glfwWindow struct {
	window  *glfw.Window
	resized atomic.Bool
}

func NewGLFWWindow(opts platform.WindowOptions) (platform.Window, error) {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return nil, &core.PlatformError{Op: "glfw init", Err: err}
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, &core.PlatformError{Op: "glfw reports no vulkan loader"}
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.
	if opts.Resizable {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}

	window, err := glfw.CreateWindow(int(opts.Width), int(opts.Height), opts.Caption, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return nil, &core.PlatformError{Op: "create window", Err: err}
	}

	w := &glfwWindow{window: window}
	window.SetKeyCallback(w.keyCallback)
	window.SetFramebufferSizeCallback(w.framebufferSizeCallback)
	return w, nil
}

func (w *glfwWindow) Show() {
	w.window.Show()
}

func (w *glfwWindow) Flush() {
	glfw.PollEvents()
}

func (w *glfwWindow) Extent() (uint32, uint32) {
	width, height := w.window.GetFramebufferSize()
	return uint32(width), uint32(height)
}

func (w *glfwWindow) Resized() bool {
	return w.resized.Swap(false)
}

func (w *glfwWindow) RequiredExtensions() []string {
	return w.window.GetRequiredInstanceExtensions()
}

func (w *glfwWindow) SurfaceTarget() interface{} {
	return w.window
}

// InstanceProcAddr exposes the loader entry point GLFW resolved.
func (w *glfwWindow) InstanceProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (w *glfwWindow) WaitFor(events []*platform.Event) platform.WaitResult {
	cancel := platform.SubscribeAll(events, glfw.PostEmptyEvent)
	defer cancel()

	if k := platform.FirstSignaled(events); k >= 0 {
		return platform.WaitResult{Kind: platform.WaitEvent, Index: k}
	}
	if w.window.ShouldClose() {
		return platform.WaitResult{Kind: platform.WaitExit}
	}

	glfw.WaitEvents()

	if w.window.ShouldClose() {
		return platform.WaitResult{Kind: platform.WaitExit}
	}
	if k := platform.FirstSignaled(events); k >= 0 {
		return platform.WaitResult{Kind: platform.WaitEvent, Index: k}
	}
	return platform.WaitResult{Kind: platform.WaitContinue}
}

func (w *glfwWindow) Closed() bool {
	return w.window.ShouldClose()
}

func (w *glfwWindow) Close() {
	w.window.SetShouldClose(true)
	glfw.PostEmptyEvent()
}

func (w *glfwWindow) Destroy() error {
	w.window.Destroy()
	glfw.Terminate()
	return nil
}

func (w *glfwWindow) keyCallback(win *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		win.SetShouldClose(true)
	}
}

func (w *glfwWindow) framebufferSizeCallback(win *glfw.Window, width, height int) {
	core.LogDebug("framebuffer resized to %dx%d", width, height)
	w.resized.Store(true)
}

package platform

import (
	"sort"
	"sync"

	"github.com/spaghettifunk/vkguard/engine/core"
)

// Window is the OS window collaborator the renderer talks to.
type Window interface {
	Show()
	// Flush processes pending messages without blocking.
	Flush()
	Extent() (width uint32, height uint32)
	// Resized reports whether the framebuffer size changed since the last call.
	Resized() bool
	RequiredExtensions() []string
	// SurfaceTarget returns the native object a driver turns into a surface.
	SurfaceTarget() interface{}
	// WaitFor blocks until a window message arrives or one of events is signaled.
	WaitFor(events []*Event) WaitResult
	// Closed reports whether the window was asked to close.
	Closed() bool
	Close()
	Destroy() error
}

type WindowOptions struct {
	Caption   string
	Width     uint32
	Height    uint32
	Resizable bool
}

type Constructor func(opts WindowOptions) (Window, error)

var (
	variantsMu sync.RWMutex
	variants   = map[string]Constructor{
		"headless": func(opts WindowOptions) (Window, error) {
			return NewHeadlessWindow(opts), nil
		},
	}
)

// RegisterVariant makes a window implementation selectable by name. Packages
// backed by an OS window system register themselves from init.
func RegisterVariant(name string, ctor Constructor) {
	variantsMu.Lock()
	defer variantsMu.Unlock()
	variants[name] = ctor
}

func Variants() []string {
	variantsMu.RLock()
	defer variantsMu.RUnlock()
	names := make([]string, 0, len(variants))
	for n := range variants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New creates the window variant named in cfg.
func New(cfg *core.Config) (Window, error) {
	variantsMu.RLock()
	ctor, ok := variants[cfg.Platform.Variant]
	variantsMu.RUnlock()
	if !ok {
		return nil, &core.PlatformError{Op: "unknown window variant " + cfg.Platform.Variant}
	}
	return ctor(WindowOptions{
		Caption:   cfg.Application.Name,
		Width:     cfg.Application.Width,
		Height:    cfg.Application.Height,
		Resizable: cfg.Application.Resizable,
	})
}

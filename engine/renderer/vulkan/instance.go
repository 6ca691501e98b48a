package vulkan

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
	"github.com/spaghettifunk/vkguard/engine/platform"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityPerformance
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityPerformance:
		return "PERFORMANCE WARNING"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFORMATION"
	default:
		return "DEBUG"
	}
}

// ClassifySeverity maps report flags to the most severe level they carry.
func ClassifySeverity(flags DebugReportFlags) Severity {
	switch {
	case flags&DebugReportError != 0:
		return SeverityError
	case flags&DebugReportPerformanceWarning != 0:
		return SeverityPerformance
	case flags&DebugReportWarning != 0:
		return SeverityWarning
	case flags&DebugReportInformation != 0:
		return SeverityInfo
	default:
		return SeverityDebug
	}
}

type Diagnostic struct {
	Severity Severity
	// Category is the reporting layer prefix.
	Category string
	Code     int32
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: [%s] Code %d : %s", d.Severity, d.Category, d.Code, d.Message)
}

// DiagnosticSink receives driver diagnostics. Implementations must not panic
// and must not call back into the driver.
type DiagnosticSink interface {
	Diagnostic(d Diagnostic)
}

type DiagnosticFunc func(d Diagnostic)

func (f DiagnosticFunc) Diagnostic(d Diagnostic) { f(d) }

// LogSink forwards diagnostics to the engine logger.
type LogSink struct{}

func (LogSink) Diagnostic(d Diagnostic) {
	switch d.Severity {
	case SeverityError:
		core.LogError("%s", d)
	case SeverityPerformance, SeverityWarning:
		core.LogWarn("%s", d)
	case SeverityInfo:
		core.LogInfo("%s", d)
	default:
		core.LogDebug("%s", d)
	}
}

type InstanceOptions struct {
	ApplicationName string
	// Extensions the window system needs, plus any extra ones.
	Extensions []string
	Layers     []string
	Validation bool
	Sink       DiagnosticSink
}

// Instance is the process-wide driver context. It is destroyed when Release
// has been called and every surface and device created from it is gone.
type Instance struct {
	refCount
	driver Driver
	handle Handle
	debug  Handle
	sink   DiagnosticSink
}

func NewInstance(driver Driver, opts InstanceOptions) (*Instance, error) {
	if opts.Sink == nil {
		opts.Sink = LogSink{}
	}

	extensions := append([]string{"VK_KHR_surface"}, opts.Extensions...)
	portability := false
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		portability = true
	}
	if opts.Validation {
		extensions = append(extensions, "VK_EXT_debug_report")
	}
	extensions = dedupe(extensions)

	available, res := driver.AvailableInstanceExtensions()
	if err := check("vkEnumerateInstanceExtensionProperties", res, Incomplete); err != nil {
		return nil, err
	}
	for _, ext := range extensions {
		if !contains(available, ext) {
			core.LogError("required instance extension is missing: %s", ext)
			return nil, errors.Wrap(core.ErrExtensionNotPresent, ext)
		}
	}

	layers, err := resolveLayers(driver, opts.Layers, opts.Validation)
	if err != nil {
		return nil, err
	}

	for _, ext := range extensions {
		core.LogDebug("instance extension: %s", ext)
	}

	handle, res := driver.CreateInstance(InstanceInfo{
		ApplicationName:    opts.ApplicationName,
		ApplicationVersion: MakeVersion(1, 0, 0),
		EngineName:         "vkguard",
		EngineVersion:      MakeVersion(1, 0, 0),
		APIVersion:         MakeVersion(1, 0, 0),
		Extensions:         extensions,
		Layers:             layers,
		Portability:        portability,
	})
	if err := check("vkCreateInstance", res); err != nil {
		return nil, err
	}

	inst := &Instance{
		driver: driver,
		handle: handle,
		sink:   opts.Sink,
	}
	inst.init(inst.destroy)

	if opts.Validation {
		flags := DebugReportError | DebugReportWarning | DebugReportPerformanceWarning | DebugReportInformation
		dbg, res := driver.CreateDebugCallback(handle, flags, inst.dispatch)
		if err := check("vkCreateDebugReportCallbackEXT", res); err != nil {
			driver.DestroyInstance(handle)
			return nil, err
		}
		inst.debug = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogInfo("Vulkan Instance created.")
	return inst, nil
}

func resolveLayers(driver Driver, required []string, validation bool) ([]string, error) {
	if len(required) == 0 && !validation {
		return nil, nil
	}
	available, res := driver.AvailableLayers()
	if err := check("vkEnumerateInstanceLayerProperties", res, Incomplete); err != nil {
		return nil, err
	}

	layers := make([]string, 0, len(required)+1)
	for _, l := range required {
		core.LogDebug("Searching for layer: %s...", l)
		if !contains(available, l) {
			core.LogError("Required layer is missing: %s", l)
			return nil, errors.Wrap(core.ErrLayerNotPresent, l)
		}
		layers = append(layers, l)
	}
	if validation && !contains(layers, validationLayer) {
		if contains(available, validationLayer) {
			layers = append(layers, validationLayer)
		} else {
			core.LogWarn("validation requested but %s is not installed", validationLayer)
		}
	}
	return layers, nil
}

// dispatch is the driver debug callback. A panicking sink is contained here so
// diagnostics never alter control flow.
func (i *Instance) dispatch(flags DebugReportFlags, layerPrefix string, code int32, message string) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError("diagnostic sink panicked: %v", r)
		}
	}()
	i.sink.Diagnostic(Diagnostic{
		Severity: ClassifySeverity(flags),
		Category: layerPrefix,
		Code:     code,
		Message:  message,
	})
}

func (i *Instance) Driver() Driver {
	return i.driver
}

func (i *Instance) Handle() Handle {
	return i.handle
}

// Release drops the creator's reference.
func (i *Instance) Release() {
	i.release()
}

func (i *Instance) destroy() {
	if i.debug != NullHandle {
		core.LogDebug("Destroying Vulkan debugger...")
		i.driver.DestroyDebugCallback(i.handle, i.debug)
		i.debug = NullHandle
	}
	core.LogDebug("Destroying Vulkan instance...")
	i.driver.DestroyInstance(i.handle)
}

// Surface is a presentable target created from a window. Swapchains keep it
// alive.
type Surface struct {
	refCount
	owned *Owned[*Instance]
}

func (i *Instance) CreateSurface(window platform.Window) (*Surface, error) {
	if i.Destroyed() {
		return nil, core.ErrReleased
	}
	h, err := i.driver.CreateSurface(i.handle, window.SurfaceTarget())
	if err != nil {
		err = &core.PlatformError{Op: "create surface", Err: err}
		core.LogError("%s", err)
		return nil, err
	}
	s := &Surface{}
	s.owned = newOwned("surface", i, h, func(h Handle) {
		core.LogDebug("Destroying Vulkan surface...")
		i.driver.DestroySurface(i.handle, h)
	})
	s.init(s.owned.Release)
	core.LogDebug("Vulkan surface created.")
	return s, nil
}

func (s *Surface) Handle() Handle {
	return s.owned.Handle()
}

func (s *Surface) Instance() *Instance {
	return s.owned.Parent()
}

func (s *Surface) Release() {
	s.release()
}

// CanPresent reports whether family of adapter can present to the surface.
func (s *Surface) CanPresent(adapter *Adapter, family uint32) (bool, error) {
	ok, res := s.Instance().driver.SurfaceSupport(adapter.handle, family, s.Handle())
	if err := check("vkGetPhysicalDeviceSurfaceSupportKHR", res); err != nil {
		return false, err
	}
	return ok, nil
}

// Capabilities takes a fresh snapshot of what the surface supports on adapter.
func (s *Surface) Capabilities(adapter *Adapter) (SurfaceCapabilities, error) {
	caps, res := s.Instance().driver.SurfaceCapabilities(adapter.handle, s.Handle())
	if err := check("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res, Incomplete); err != nil {
		return SurfaceCapabilities{}, err
	}
	return caps, nil
}

func dedupe(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

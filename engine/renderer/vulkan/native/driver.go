// Package native implements the renderer's Driver on top of the system
// Vulkan loader. Importing it registers the "vulkan" driver.
package native

import (
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
	"github.com/spaghettifunk/vkguard/engine/renderer/vulkan"
)

func init() {
	vulkan.RegisterDriver("vulkan", Open)
}

var loadOnce sync.Once
var loadErr error

// Open loads the Vulkan loader through opts.ProcAddr, or the platform default
// when it is nil. The loader is initialized once per process.
func Open(opts vulkan.DriverOptions) (vulkan.Driver, error) {
	loadOnce.Do(func() {
		if opts.ProcAddr != nil {
			vk.SetGetInstanceProcAddr(opts.ProcAddr)
		} else if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			loadErr = errors.Wrap(err, "vulkan loader")
			return
		}
		if err := vk.Init(); err != nil {
			loadErr = errors.Wrap(err, "vulkan loader")
		}
	})
	if loadErr != nil {
		core.LogError("failed to initialize vulkan: %s", loadErr)
		return nil, loadErr
	}
	return &vkDriver{objects: make(map[vulkan.Handle]interface{})}, nil
}

// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
const portabilityEnumerationBit = 0x00000001

type swapchainObject struct {
	handle vk.Swapchain
	images []vulkan.Handle
}

type pipelineObject struct {
	handle vk.Pipeline
	layout vk.PipelineLayout
}

type callbackObject struct {
	handle vk.DebugReportCallback
	id     uint64
}

var _ vulkan.Driver = (*vkDriver)(nil)

// vkDriver maps opaque handles onto goki objects. Every native object lives
// in objects until its destroy call removes it.
type vkDriver struct {
	mu      sync.Mutex
	next    vulkan.Handle
	objects map[vulkan.Handle]interface{}
}

func (d *vkDriver) put(obj interface{}) vulkan.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.objects[d.next] = obj
	return d.next
}

// intern returns the existing handle for obj, if any. Physical devices and
// swapchain images are enumerated more than once but never destroyed.
func (d *vkDriver) intern(obj interface{}) vulkan.Handle {
	d.mu.Lock()
	for h, o := range d.objects {
		if o == obj {
			d.mu.Unlock()
			return h
		}
	}
	d.mu.Unlock()
	return d.put(obj)
}

func (d *vkDriver) take(h vulkan.Handle) interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj := d.objects[h]
	delete(d.objects, h)
	return obj
}

func get[T any](d *vkDriver, h vulkan.Handle) T {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, _ := d.objects[h].(T)
	return obj
}

func getAll[T any](d *vkDriver, hs []vulkan.Handle) []T {
	out := make([]T, len(hs))
	for i, h := range hs {
		out[i] = get[T](d, h)
	}
	return out
}

func (d *vkDriver) Name() string {
	return "vulkan"
}

func (d *vkDriver) AvailableLayers() ([]string, vulkan.Result) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, result(res)
	}
	props := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, props); res != vk.Success {
		return nil, result(res)
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, cString(props[i].LayerName[:]))
	}
	return names, vulkan.Success
}

func (d *vkDriver) AvailableInstanceExtensions() ([]string, vulkan.Result) {
	var count uint32
	if res := vk.EnumerateInstanceExtensionProperties("", &count, nil); res != vk.Success {
		return nil, result(res)
	}
	props := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateInstanceExtensionProperties("", &count, props); res != vk.Success {
		return nil, result(res)
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, cString(props[i].ExtensionName[:]))
	}
	return names, vulkan.Success
}

func (d *vkDriver) CreateInstance(info vulkan.InstanceInfo) (vulkan.Handle, vulkan.Result) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         version(info.APIVersion),
		ApplicationVersion: version(info.ApplicationVersion),
		EngineVersion:      version(info.EngineVersion),
		PApplicationName:   safeString(info.ApplicationName),
		PEngineName:        safeString(info.EngineName),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
		EnabledLayerCount:       uint32(len(info.Layers)),
		PpEnabledLayerNames:     safeStrings(info.Layers),
	}
	if info.Portability {
		createInfo.Flags = vk.InstanceCreateFlags(portabilityEnumerationBit)
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return vulkan.NullHandle, result(res)
	}
	if err := vk.InitInstance(instance); err != nil {
		core.LogError("failed to load instance functions: %s", err)
		vk.DestroyInstance(instance, nil)
		return vulkan.NullHandle, vulkan.ErrorInitializationFailed
	}
	return d.put(instance), vulkan.Success
}

func (d *vkDriver) DestroyInstance(instance vulkan.Handle) {
	if inst, ok := d.take(instance).(vk.Instance); ok {
		vk.DestroyInstance(inst, nil)
	}
}

var (
	callbacksMu sync.RWMutex
	callbacks   = map[uint64]vulkan.DebugCallback{}
	callbackID  uint64
)

// dbgCallbackFunc is the single native entry point for driver diagnostics.
// Messages fan out to every live callback.
func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	callbacksMu.RLock()
	targets := make([]vulkan.DebugCallback, 0, len(callbacks))
	for _, cb := range callbacks {
		targets = append(targets, cb)
	}
	callbacksMu.RUnlock()
	for _, cb := range targets {
		cb(vulkan.DebugReportFlags(flags), pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

func (d *vkDriver) CreateDebugCallback(instance vulkan.Handle, flags vulkan.DebugReportFlags, cb vulkan.DebugCallback) (vulkan.Handle, vulkan.Result) {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(flags),
		PfnCallback: dbgCallbackFunc,
	}

	callbacksMu.Lock()
	callbackID++
	id := callbackID
	callbacks[id] = cb
	callbacksMu.Unlock()

	var dbg vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(get[vk.Instance](d, instance), &debugCreateInfo, nil, &dbg); res != vk.Success {
		callbacksMu.Lock()
		delete(callbacks, id)
		callbacksMu.Unlock()
		return vulkan.NullHandle, result(res)
	}
	return d.put(callbackObject{handle: dbg, id: id}), vulkan.Success
}

func (d *vkDriver) DestroyDebugCallback(instance, callback vulkan.Handle) {
	obj, ok := d.take(callback).(callbackObject)
	if !ok {
		return
	}
	vk.DestroyDebugReportCallback(get[vk.Instance](d, instance), obj.handle, nil)
	callbacksMu.Lock()
	delete(callbacks, obj.id)
	callbacksMu.Unlock()
}

// windowSurfacer is satisfied by *glfw.Window.
type windowSurfacer interface {
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
}

func (d *vkDriver) CreateSurface(instance vulkan.Handle, target interface{}) (vulkan.Handle, error) {
	w, ok := target.(windowSurfacer)
	if !ok {
		return vulkan.NullHandle, errors.Errorf("vulkan: cannot create a surface from %T", target)
	}
	surface, err := w.CreateWindowSurface(get[vk.Instance](d, instance), nil)
	if err != nil {
		return vulkan.NullHandle, errors.Wrap(err, "create window surface")
	}
	if surface == 0 {
		return vulkan.NullHandle, errors.New("window system returned a null surface")
	}
	return d.put(vk.SurfaceFromPointer(surface)), nil
}

func (d *vkDriver) DestroySurface(instance, surface vulkan.Handle) {
	if s, ok := d.take(surface).(vk.Surface); ok {
		vk.DestroySurface(get[vk.Instance](d, instance), s, nil)
	}
}

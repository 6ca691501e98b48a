package vulkan

import (
	"sync/atomic"

	"github.com/spaghettifunk/vkguard/engine/core"
)

// Fence is a CPU-visible completion flag signaled by a queue submission.
type Fence struct {
	owned *Owned[*Device]
	// seen records that a wait or poll observed the signal since the last
	// reset. It outlives the native fence.
	seen atomic.Bool
}

// CreateFence creates an unsignaled fence.
func (d *Device) CreateFence() (*Fence, error) {
	return d.createFence(false)
}

// CreateSignaledFence creates a fence that is already signaled, so that the
// first wait on it returns at once.
func (d *Device) CreateSignaledFence() (*Fence, error) {
	return d.createFence(true)
}

func (d *Device) createFence(signaled bool) (*Fence, error) {
	if d.Destroyed() {
		return nil, core.ErrReleased
	}
	h, res := d.driver.CreateFence(d.handle, signaled)
	if err := check("vkCreateFence", res); err != nil {
		return nil, err
	}
	return &Fence{owned: d.own("fence", SynchronizationManagement, h, d.driver.DestroyFence)}, nil
}

func (f *Fence) Handle() Handle {
	if f == nil {
		return NullHandle
	}
	return f.owned.Handle()
}

// Wait blocks for up to timeout nanoseconds. It reports false when the
// timeout expired first.
func (f *Fence) Wait(timeout uint64) (bool, error) {
	if f.owned.Released() {
		return false, core.ErrReleased
	}
	d := f.owned.Parent()
	res := d.driver.WaitForFence(d.handle, f.owned.Handle(), timeout)
	switch res {
	case Success:
		f.seen.Store(true)
		return true, nil
	case Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return false, nil
	default:
		return false, check("vkWaitForFences", res)
	}
}

// Signaled polls the fence without blocking.
func (f *Fence) Signaled() (bool, error) {
	if f.owned.Released() {
		return false, core.ErrReleased
	}
	d := f.owned.Parent()
	res := d.driver.FenceStatus(d.handle, f.owned.Handle())
	switch res {
	case Success:
		f.seen.Store(true)
		return true, nil
	case NotReady:
		return false, nil
	default:
		return false, check("vkGetFenceStatus", res)
	}
}

func (f *Fence) Reset() error {
	if f.owned.Released() {
		return core.ErrReleased
	}
	d := f.owned.Parent()
	if err := check("vkResetFences", d.driver.ResetFence(d.handle, f.owned.Handle())); err != nil {
		return err
	}
	f.seen.Store(false)
	return nil
}

// completed reports whether the submission guarded by f has finished. A
// released fence counts as finished only if its signal was observed first.
func (f *Fence) completed() (bool, error) {
	if f.owned.Released() {
		if f.seen.Load() {
			return true, nil
		}
		return false, core.ErrReleased
	}
	return f.Signaled()
}

func (f *Fence) Release() {
	f.owned.Release()
}

// QueueFence is a GPU-side ordering token: one submission signals it and
// another waits on it. It is only ever used by identity.
type QueueFence struct {
	owned *Owned[*Device]
}

func (d *Device) CreateQueueFence() (*QueueFence, error) {
	if d.Destroyed() {
		return nil, core.ErrReleased
	}
	h, res := d.driver.CreateSemaphore(d.handle)
	if err := check("vkCreateSemaphore", res); err != nil {
		return nil, err
	}
	return &QueueFence{owned: d.own("semaphore", SynchronizationManagement, h, d.driver.DestroySemaphore)}, nil
}

func (q *QueueFence) Handle() Handle {
	if q == nil {
		return NullHandle
	}
	return q.owned.Handle()
}

func (q *QueueFence) Release() {
	q.owned.Release()
}

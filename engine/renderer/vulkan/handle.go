package vulkan

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vkguard/engine/core"
)

// parent is an object other wrappers keep alive: the Instance, a Device or a
// Surface.
type parent interface {
	retain()
	release()
}

// refCount destroys its owner once the creator and every child have let go.
// The creator's reference is taken on init.
type refCount struct {
	refs      atomic.Int64
	destroyed atomic.Bool
	onZero    func()
}

func (r *refCount) init(onZero func()) {
	r.onZero = onZero
	r.refs.Store(1)
}

func (r *refCount) retain() {
	r.refs.Add(1)
}

func (r *refCount) release() {
	n := r.refs.Add(-1)
	if n == 0 && r.destroyed.CompareAndSwap(false, true) {
		r.onZero()
	}
	if n < 0 {
		core.LogWarn("reference count went negative")
	}
}

// Refs returns the number of live references, including the creator's.
func (r *refCount) Refs() int64 {
	return r.refs.Load()
}

// Destroyed reports whether the native object has been destroyed.
func (r *refCount) Destroyed() bool {
	return r.destroyed.Load()
}

// Owned binds a native handle to the parent that created it. Release issues
// the native destroy exactly once and then drops the parent reference, so a
// parent always outlives its children.
type Owned[P parent] struct {
	id       uuid.UUID
	handle   Handle
	parent   P
	destroy  func(Handle)
	once     sync.Once
	released atomic.Bool
}

func newOwned[P parent](label string, p P, h Handle, destroy func(Handle)) *Owned[P] {
	p.retain()
	return &Owned[P]{
		id:      core.IdentifierAquireNewID(label),
		handle:  h,
		parent:  p,
		destroy: destroy,
	}
}

func (o *Owned[P]) Handle() Handle {
	if o == nil {
		return NullHandle
	}
	return o.handle
}

func (o *Owned[P]) ID() uuid.UUID {
	return o.id
}

func (o *Owned[P]) Parent() P {
	return o.parent
}

func (o *Owned[P]) Released() bool {
	return o.released.Load()
}

// Release is safe to call more than once and from any goroutine.
func (o *Owned[P]) Release() {
	if o == nil {
		return
	}
	o.once.Do(func() {
		o.destroy(o.handle)
		o.released.Store(true)
		core.IdentifierReleaseID(o.id)
		o.parent.release()
	})
}

// cleanup is a stack of undo steps for partially constructed objects.
type cleanup struct {
	steps []func()
}

func (c *cleanup) push(step func()) {
	c.steps = append(c.steps, step)
}

// unwind runs the pending steps in reverse order. It is a no-op after commit.
func (c *cleanup) unwind() {
	for i := len(c.steps) - 1; i >= 0; i-- {
		c.steps[i]()
	}
	c.steps = nil
}

func (c *cleanup) commit() {
	c.steps = nil
}

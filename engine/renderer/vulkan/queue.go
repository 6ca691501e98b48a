package vulkan

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

// Queue is a device queue. Queues are owned by the device and never destroyed
// on their own.
//
// Submissions to one queue from several goroutines must be serialized by the
// caller, for example with Device.Locks().SafeQueueCall.
type Queue struct {
	device *Device
	handle Handle
	family uint32
}

func (q *Queue) Handle() Handle {
	return q.handle
}

func (q *Queue) Family() uint32 {
	return q.family
}

// Wait makes a submission wait on a QueueFence at the given stages.
type Wait struct {
	Fence *QueueFence
	Stage PipelineStage
}

type Submission struct {
	Buffers []*CommandBuffer
	Waits   []Wait
	Signals []*QueueFence
	// Fence is signaled when every buffer has completed. Optional.
	Fence *Fence
}

// Submit sends executable buffers to the queue and marks them pending. On
// failure no buffer changes state. A buffer may appear only once, and every
// wait and signal needs a QueueFence.
func (q *Queue) Submit(s Submission) error {
	if q.device.Destroyed() {
		return core.ErrReleased
	}
	if s.Fence != nil && s.Fence.owned.Released() {
		return errors.Wrap(core.ErrReleased, "submit: fence")
	}
	info := SubmitInfo{
		CommandBuffers: make([]Handle, 0, len(s.Buffers)),
	}
	seen := make(map[*CommandBuffer]struct{}, len(s.Buffers))
	for i, cb := range s.Buffers {
		if cb == nil {
			return errors.Wrapf(core.ErrInvalidState, "submit: buffer %d is nil", i)
		}
		if _, dup := seen[cb]; dup {
			return errors.Wrapf(core.ErrInvalidState, "submit: buffer %d appears twice", i)
		}
		seen[cb] = struct{}{}
		if cb.owned.Released() {
			return errors.Wrapf(core.ErrReleased, "submit: buffer %d", i)
		}
		if cb.state != StateExecutable {
			return errors.Wrapf(core.ErrInvalidState, "submit: buffer %d is %s", i, cb.state)
		}
		if cb.pool.family != q.family {
			return errors.Wrapf(core.ErrInvalidState, "submit: buffer %d belongs to queue family %d, queue is %d", i, cb.pool.family, q.family)
		}
		info.CommandBuffers = append(info.CommandBuffers, cb.Handle())
	}
	for i, w := range s.Waits {
		if w.Fence == nil {
			return errors.Wrapf(core.ErrInvalidState, "submit: wait %d has no queue fence", i)
		}
		if w.Fence.owned.Released() {
			return errors.Wrapf(core.ErrReleased, "submit: wait %d", i)
		}
		info.WaitSemaphores = append(info.WaitSemaphores, w.Fence.Handle())
		info.WaitStages = append(info.WaitStages, w.Stage)
	}
	for i, sig := range s.Signals {
		if sig == nil {
			return errors.Wrapf(core.ErrInvalidState, "submit: signal %d has no queue fence", i)
		}
		if sig.owned.Released() {
			return errors.Wrapf(core.ErrReleased, "submit: signal %d", i)
		}
		info.SignalSemaphores = append(info.SignalSemaphores, sig.Handle())
	}

	if err := check("vkQueueSubmit", q.device.driver.QueueSubmit(q.handle, []SubmitInfo{info}, s.Fence.Handle())); err != nil {
		return err
	}
	if s.Fence != nil {
		s.Fence.seen.Store(false)
	}
	for _, cb := range s.Buffers {
		cb.markPending(s.Fence)
	}
	return nil
}

// SubmitAndWait submits one buffer, blocks until it completes and retires it.
func (q *Queue) SubmitAndWait(cb *CommandBuffer) error {
	fence, err := q.device.CreateFence()
	if err != nil {
		return err
	}
	defer fence.Release()

	if err := q.Submit(Submission{Buffers: []*CommandBuffer{cb}, Fence: fence}); err != nil {
		return err
	}
	if _, err := fence.Wait(InfiniteTimeout); err != nil {
		return err
	}
	cb.Retire()
	return nil
}

func (q *Queue) WaitIdle() error {
	return check("vkQueueWaitIdle", q.device.driver.QueueWaitIdle(q.handle))
}

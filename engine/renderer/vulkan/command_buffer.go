package vulkan

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

type CommandBufferState int

const (
	StateInitial CommandBufferState = iota
	StateRecording
	StateExecutable
	StatePending
	StateInvalid
)

func (s CommandBufferState) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateRecording:
		return "recording"
	case StateExecutable:
		return "executable"
	case StatePending:
		return "pending"
	case StateInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CommandPool is owned by its Device and destroyed with it.
type CommandPool struct {
	device *Device
	handle Handle
	family uint32
}

func (p *CommandPool) Handle() Handle {
	return p.handle
}

func (p *CommandPool) Family() uint32 {
	return p.family
}

// Allocate creates count primary command buffers in the Initial state.
func (p *CommandPool) Allocate(count uint32) ([]*CommandBuffer, error) {
	d := p.device
	if d.Destroyed() {
		return nil, core.ErrReleased
	}
	var handles []Handle
	err := d.locks.SafeCall(CommandBufferManagement, func() error {
		var res Result
		handles, res = d.driver.AllocateCommandBuffers(d.handle, p.handle, count)
		return check("vkAllocateCommandBuffers", res)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*CommandBuffer, len(handles))
	for i, h := range handles {
		out[i] = &CommandBuffer{
			pool: p,
			owned: d.own("command buffer", CommandBufferManagement, h, func(device, h Handle) {
				d.driver.FreeCommandBuffers(device, p.handle, []Handle{h})
			}),
		}
	}
	return out, nil
}

// AllocateCommandBuffer allocates one buffer from the pool of family.
func (d *Device) AllocateCommandBuffer(family uint32) (*CommandBuffer, error) {
	pool := d.CommandPool(family)
	if pool == nil {
		return nil, errors.Wrapf(core.ErrInvalidState, "no command pool for queue family %d", family)
	}
	bufs, err := pool.Allocate(1)
	if err != nil {
		return nil, err
	}
	return bufs[0], nil
}

// CommandBuffer records instructions into a list and hands the whole list to
// the driver on End. Recording methods return the buffer for chaining; a call
// made outside the Recording state is remembered and reported by End.
//
// A command buffer is not safe for concurrent use.
type CommandBuffer struct {
	owned *Owned[*Device]
	pool  *CommandPool

	state        CommandBufferState
	usage        CommandBufferUsage
	cmds         []Command
	err          error
	inRenderPass bool
	// fence of the submission that made the buffer pending, if any.
	fence *Fence
}

func (cb *CommandBuffer) Handle() Handle {
	return cb.owned.Handle()
}

func (cb *CommandBuffer) Pool() *CommandPool {
	return cb.pool
}

func (cb *CommandBuffer) State() CommandBufferState {
	return cb.state
}

// Commands returns a copy of the instructions recorded so far.
func (cb *CommandBuffer) Commands() []Command {
	out := make([]Command, len(cb.cmds))
	copy(out, cb.cmds)
	return out
}

func (cb *CommandBuffer) invalidState(op string) error {
	return errors.Wrapf(core.ErrInvalidState, "%s: command buffer is %s", op, cb.state)
}

func (cb *CommandBuffer) Begin(usage CommandBufferUsage) error {
	if cb.owned.Released() {
		return core.ErrReleased
	}
	if cb.state != StateInitial {
		return cb.invalidState("begin")
	}
	cb.state = StateRecording
	cb.usage = usage
	cb.cmds = cb.cmds[:0]
	cb.err = nil
	cb.inRenderPass = false
	return nil
}

func (cb *CommandBuffer) record(op string, cmd Command) *CommandBuffer {
	if cb.state != StateRecording {
		if cb.err == nil {
			cb.err = cb.invalidState(op)
		}
		return cb
	}
	cb.cmds = append(cb.cmds, cmd)
	return cb
}

func (cb *CommandBuffer) fail(err error) *CommandBuffer {
	if cb.err == nil {
		cb.err = err
	}
	return cb
}

func (cb *CommandBuffer) BindPipeline(p *Pipeline) *CommandBuffer {
	return cb.record("bind pipeline", BindPipelineCmd{Pipeline: p.Handle()})
}

func (cb *CommandBuffer) BindVertexBuffers(firstBinding uint32, buffers []*Buffer, offsets []uint64) *CommandBuffer {
	if len(buffers) != len(offsets) {
		return cb.fail(errors.Errorf("bind vertex buffers: %d buffers but %d offsets", len(buffers), len(offsets)))
	}
	handles := make([]Handle, len(buffers))
	for i, b := range buffers {
		handles[i] = b.Handle()
	}
	return cb.record("bind vertex buffers", BindVertexBuffersCmd{
		FirstBinding: firstBinding,
		Buffers:      handles,
		Offsets:      append([]uint64(nil), offsets...),
	})
}

func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) *CommandBuffer {
	return cb.record("draw", DrawCmd{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
}

func (cb *CommandBuffer) CopyBuffer(src, dst *Buffer, regions ...BufferCopy) *CommandBuffer {
	if len(regions) == 0 {
		size := src.Size()
		if dst.Size() < size {
			size = dst.Size()
		}
		regions = []BufferCopy{{Size: size}}
	}
	return cb.record("copy buffer", CopyBufferCmd{
		Src:     src.Handle(),
		Dst:     dst.Handle(),
		Regions: append([]BufferCopy(nil), regions...),
	})
}

func (cb *CommandBuffer) PipelineBarrier(src, dst PipelineStage, byRegion bool, memory []MemoryBarrier, buffers []BufferBarrier, images []ImageBarrier) *CommandBuffer {
	cmd := PipelineBarrierCmd{SrcStage: src, DstStage: dst, ByRegion: byRegion}
	for _, b := range memory {
		cmd.Memory = append(cmd.Memory, b.Encode())
	}
	for _, b := range buffers {
		cmd.Buffers = append(cmd.Buffers, b.Encode())
	}
	for _, b := range images {
		cmd.Images = append(cmd.Images, b.Encode())
	}
	return cb.record("pipeline barrier", cmd)
}

func (cb *CommandBuffer) BeginRenderPass(rp *RenderPass, fb *Framebuffer, area Rect2D, clear ...ClearColor) *CommandBuffer {
	if cb.state == StateRecording && cb.inRenderPass {
		return cb.fail(errors.Wrap(core.ErrInvalidState, "begin render pass: already inside a render pass"))
	}
	cb.record("begin render pass", BeginRenderPassCmd{
		RenderPass:  rp.Handle(),
		Framebuffer: fb.Handle(),
		Area:        area,
		Clear:       append([]ClearColor(nil), clear...),
	})
	if cb.state == StateRecording {
		cb.inRenderPass = true
	}
	return cb
}

func (cb *CommandBuffer) EndRenderPass() *CommandBuffer {
	if cb.state == StateRecording && !cb.inRenderPass {
		return cb.fail(errors.Wrap(core.ErrInvalidState, "end render pass: no render pass is active"))
	}
	cb.inRenderPass = false
	return cb.record("end render pass", EndRenderPassCmd{})
}

func (cb *CommandBuffer) SetViewport(viewports ...Viewport) *CommandBuffer {
	return cb.record("set viewport", SetViewportCmd{Viewports: append([]Viewport(nil), viewports...)})
}

func (cb *CommandBuffer) SetScissor(scissors ...Rect2D) *CommandBuffer {
	return cb.record("set scissor", SetScissorCmd{Scissors: append([]Rect2D(nil), scissors...)})
}

// End hands the recorded list to the driver and makes the buffer executable.
// A recording error leaves the buffer Invalid.
func (cb *CommandBuffer) End() error {
	if cb.state != StateRecording {
		return cb.invalidState("end")
	}
	if cb.err == nil && cb.inRenderPass {
		cb.err = errors.Wrap(core.ErrInvalidState, "end: render pass still active")
	}
	if cb.err != nil {
		cb.state = StateInvalid
		err := cb.err
		core.LogError("command buffer recording failed: %s", err)
		return err
	}

	d := cb.owned.Parent()
	if err := check("vkEndCommandBuffer", d.driver.RecordCommandBuffer(cb.Handle(), cb.usage, cb.cmds)); err != nil {
		cb.state = StateInvalid
		return err
	}
	cb.state = StateExecutable
	return nil
}

// Reset returns the buffer to Initial. A pending buffer can only be reset once
// the fence of its submission has signaled. The fence may already be released
// if its signal was observed through Wait or Signaled.
func (cb *CommandBuffer) Reset() error {
	if cb.owned.Released() {
		return core.ErrReleased
	}
	switch cb.state {
	case StateRecording:
		return cb.invalidState("reset")
	case StatePending:
		if cb.fence == nil {
			return cb.invalidState("reset")
		}
		done, err := cb.fence.completed()
		if err != nil {
			return err
		}
		if !done {
			return cb.invalidState("reset")
		}
	}

	d := cb.owned.Parent()
	if err := check("vkResetCommandBuffer", d.driver.ResetCommandBuffer(cb.Handle())); err != nil {
		return err
	}
	cb.state = StateInitial
	cb.cmds = cb.cmds[:0]
	cb.err = nil
	cb.fence = nil
	cb.inRenderPass = false
	return nil
}

// Retire marks a pending buffer as finished. One-time buffers become Invalid.
func (cb *CommandBuffer) Retire() {
	if cb.state != StatePending {
		return
	}
	cb.fence = nil
	if cb.usage&UsageOneTimeSubmit != 0 {
		cb.state = StateInvalid
		return
	}
	cb.state = StateExecutable
}

func (cb *CommandBuffer) markPending(fence *Fence) {
	cb.state = StatePending
	cb.fence = fence
}

// Execute submits the buffer alone to queue.
func (cb *CommandBuffer) Execute(queue *Queue, waits []Wait, signals []*QueueFence, fence *Fence) error {
	return queue.Submit(Submission{
		Buffers: []*CommandBuffer{cb},
		Waits:   waits,
		Signals: signals,
		Fence:   fence,
	})
}

// Release frees the native buffer. Releasing a pending buffer waits for the
// device to go idle first.
func (cb *CommandBuffer) Release() {
	cb.owned.Release()
	cb.state = StateInvalid
}

package vulkan

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

func TestCommandBufferLifecycle(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)
	queue := dev.GraphicsQueue()

	cb, err := dev.AllocateCommandBuffer(queue.Family())
	if err != nil {
		t.Fatalf("AllocateCommandBuffer: %v", err)
	}
	defer cb.Release()

	if cb.State() != StateInitial {
		t.Fatalf("new buffer is %s", cb.State())
	}
	if err := cb.End(); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("End from initial: err = %v", err)
	}

	if err := cb.Begin(0); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := cb.Begin(0); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Begin while recording: err = %v", err)
	}
	cb.Draw(3, 1, 0, 0).Draw(6, 1, 3, 0)
	if err := cb.Reset(); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Reset while recording: err = %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if cb.State() != StateExecutable {
		t.Fatalf("after End: %s", cb.State())
	}
	if got := len(drv.Recorded(cb.Handle())); got != 2 {
		t.Errorf("driver recorded %d commands, want 2", got)
	}

	fence, err := dev.CreateFence()
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	defer fence.Release()
	if err := cb.Execute(queue, nil, nil, fence); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if cb.State() != StatePending {
		t.Fatalf("after submit: %s", cb.State())
	}
	if ok, err := fence.Wait(InfiniteTimeout); !ok || err != nil {
		t.Fatalf("fence wait = %v, %v", ok, err)
	}
	if err := cb.Reset(); err != nil {
		t.Fatalf("Reset after fence: %v", err)
	}
	if cb.State() != StateInitial || len(cb.Commands()) != 0 {
		t.Errorf("after Reset: %s with %d commands", cb.State(), len(cb.Commands()))
	}
}

func TestCommandBufferResetPending(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)
	queue := dev.GraphicsQueue()

	t.Run("stalled fence", func(t *testing.T) {
		cb := beginBuffer(t, dev, queue.Family())
		if err := cb.End(); err != nil {
			t.Fatalf("End: %v", err)
		}
		fence, err := dev.CreateFence()
		if err != nil {
			t.Fatalf("CreateFence: %v", err)
		}
		defer fence.Release()

		drv.Stall(true)
		defer drv.Stall(false)
		if err := queue.Submit(Submission{Buffers: []*CommandBuffer{cb}, Fence: fence}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if err := cb.Reset(); !errors.Is(err, core.ErrInvalidState) {
			t.Fatalf("Reset before completion: err = %v", err)
		}
		if ok, _ := fence.Wait(0); ok {
			t.Fatal("fence signaled while stalled")
		}
		drv.Complete()
		if err := cb.Reset(); err != nil {
			t.Fatalf("Reset after completion: %v", err)
		}
	})

	t.Run("fence released after wait", func(t *testing.T) {
		cb := beginBuffer(t, dev, queue.Family())
		if err := cb.End(); err != nil {
			t.Fatalf("End: %v", err)
		}
		fence, err := dev.CreateFence()
		if err != nil {
			t.Fatalf("CreateFence: %v", err)
		}
		if err := queue.Submit(Submission{Buffers: []*CommandBuffer{cb}, Fence: fence}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if ok, err := fence.Wait(InfiniteTimeout); !ok || err != nil {
			t.Fatalf("fence wait = %v, %v", ok, err)
		}
		fence.Release()

		if err := cb.Reset(); err != nil {
			t.Fatalf("Reset: %v", err)
		}
		if err := cb.Begin(0); err != nil {
			t.Fatalf("Begin after Reset: %v", err)
		}
	})

	t.Run("fence released unobserved", func(t *testing.T) {
		cb := beginBuffer(t, dev, queue.Family())
		if err := cb.End(); err != nil {
			t.Fatalf("End: %v", err)
		}
		fence, err := dev.CreateFence()
		if err != nil {
			t.Fatalf("CreateFence: %v", err)
		}
		if err := queue.Submit(Submission{Buffers: []*CommandBuffer{cb}, Fence: fence}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		fence.Release()

		if err := cb.Reset(); !errors.Is(err, core.ErrReleased) {
			t.Fatalf("Reset: err = %v, want ErrReleased", err)
		}
		if cb.State() != StatePending {
			t.Errorf("state = %s, want pending", cb.State())
		}
	})

	t.Run("no fence", func(t *testing.T) {
		cb := beginBuffer(t, dev, queue.Family())
		if err := cb.End(); err != nil {
			t.Fatalf("End: %v", err)
		}
		if err := queue.Submit(Submission{Buffers: []*CommandBuffer{cb}}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if err := cb.Reset(); !errors.Is(err, core.ErrInvalidState) {
			t.Fatalf("Reset without fence: err = %v", err)
		}
		if err := queue.WaitIdle(); err != nil {
			t.Fatalf("WaitIdle: %v", err)
		}
		cb.Retire()
		if cb.State() != StateExecutable {
			t.Errorf("after Retire: %s", cb.State())
		}
	})
}

func TestCommandBufferOneTimeSubmit(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)
	queue := dev.GraphicsQueue()

	cb, err := dev.AllocateCommandBuffer(queue.Family())
	if err != nil {
		t.Fatalf("AllocateCommandBuffer: %v", err)
	}
	defer cb.Release()
	if err := cb.Begin(UsageOneTimeSubmit); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := queue.SubmitAndWait(cb); err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}
	if cb.State() != StateInvalid {
		t.Errorf("one-time buffer after completion: %s", cb.State())
	}
	if err := queue.Submit(Submission{Buffers: []*CommandBuffer{cb}}); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("resubmit: err = %v", err)
	}
	if err := cb.Reset(); err != nil {
		t.Fatalf("Reset from invalid: %v", err)
	}
	if cb.State() != StateInitial {
		t.Errorf("after Reset: %s", cb.State())
	}
	if drv.Live(KindFence) != 0 {
		t.Error("transient fence leaked")
	}
}

func TestCommandBufferStickyError(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)
	family := dev.GraphicsQueue().Family()

	tests := []struct {
		name   string
		record func(cb *CommandBuffer)
	}{
		{"end render pass without begin", func(cb *CommandBuffer) { cb.EndRenderPass() }},
		{"nested render pass", func(cb *CommandBuffer) {
			cb.BeginRenderPass(nil, nil, Rect2D{}).BeginRenderPass(nil, nil, Rect2D{})
		}},
		{"render pass left open", func(cb *CommandBuffer) { cb.BeginRenderPass(nil, nil, Rect2D{}) }},
		{"mismatched vertex offsets", func(cb *CommandBuffer) { cb.BindVertexBuffers(0, []*Buffer{nil}, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := beginBuffer(t, dev, family)
			tt.record(cb)
			cb.Draw(3, 1, 0, 0)
			if err := cb.End(); err == nil {
				t.Fatal("End succeeded")
			}
			if cb.State() != StateInvalid {
				t.Errorf("state = %s, want invalid", cb.State())
			}
			if drv.Recorded(cb.Handle()) != nil {
				t.Error("failed recording reached the driver")
			}
		})
	}
}

func TestRecordOutsideRecording(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)

	cb, err := dev.AllocateCommandBuffer(dev.GraphicsQueue().Family())
	if err != nil {
		t.Fatalf("AllocateCommandBuffer: %v", err)
	}
	defer cb.Release()

	cb.Draw(3, 1, 0, 0)
	if len(cb.Commands()) != 0 {
		t.Error("command recorded outside the recording state")
	}
	// Begin starts a fresh recording.
	if err := cb.Begin(0); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := cb.End(); err != nil {
		t.Errorf("End: %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)

	graphics := beginBuffer(t, dev, dev.GraphicsQueue().Family())
	if err := graphics.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	transfer := beginBuffer(t, dev, dev.TransferQueue().Family())
	if err := transfer.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	err := dev.GraphicsQueue().Submit(Submission{Buffers: []*CommandBuffer{graphics, transfer}})
	if !errors.Is(err, core.ErrInvalidState) {
		t.Fatalf("cross-family submit: err = %v", err)
	}
	if graphics.State() != StateExecutable || transfer.State() != StateExecutable {
		t.Error("a rejected submission changed buffer state")
	}
	if drv.Submits() != 0 {
		t.Error("rejected submission reached the driver")
	}

	released, err := dev.CreateQueueFence()
	if err != nil {
		t.Fatalf("CreateQueueFence: %v", err)
	}
	released.Release()
	malformed := []struct {
		name string
		s    Submission
		want error
	}{
		{"nil wait", Submission{Buffers: []*CommandBuffer{graphics}, Waits: []Wait{{Stage: StageVertexInput}}}, core.ErrInvalidState},
		{"nil signal", Submission{Buffers: []*CommandBuffer{graphics}, Signals: []*QueueFence{nil}}, core.ErrInvalidState},
		{"released signal", Submission{Buffers: []*CommandBuffer{graphics}, Signals: []*QueueFence{released}}, core.ErrReleased},
		{"duplicate buffer", Submission{Buffers: []*CommandBuffer{graphics, graphics}}, core.ErrInvalidState},
	}
	for _, tt := range malformed {
		if err := dev.GraphicsQueue().Submit(tt.s); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
	if graphics.State() != StateExecutable || drv.Submits() != 0 {
		t.Errorf("malformed submissions left buffer %s after %d driver submits", graphics.State(), drv.Submits())
	}

	drv.FailNext("QueueSubmit", ErrorDeviceLost)
	err = dev.GraphicsQueue().Submit(Submission{Buffers: []*CommandBuffer{graphics}})
	if _, ok := core.IsDeviceError(err); !ok {
		t.Fatalf("driver failure: err = %v, want device error", err)
	}
	if graphics.State() != StateExecutable {
		t.Errorf("failed submit left buffer %s", graphics.State())
	}
}

func TestQueueFenceOrdering(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)

	upload := beginBuffer(t, dev, dev.TransferQueue().Family())
	if err := upload.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	draw := beginBuffer(t, dev, dev.GraphicsQueue().Family())
	if err := draw.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	done, err := dev.CreateQueueFence()
	if err != nil {
		t.Fatalf("CreateQueueFence: %v", err)
	}
	defer done.Release()

	if err := upload.Execute(dev.TransferQueue(), nil, []*QueueFence{done}, nil); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := draw.Execute(dev.GraphicsQueue(), []Wait{{Fence: done, Stage: StageVertexInput}}, nil, nil); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if drv.Submits() != 2 {
		t.Errorf("submits = %d, want 2", drv.Submits())
	}
}

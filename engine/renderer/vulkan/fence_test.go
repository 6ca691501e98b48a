package vulkan

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkguard/engine/core"
)

func TestFence(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)

	signaled, err := dev.CreateSignaledFence()
	if err != nil {
		t.Fatalf("CreateSignaledFence: %v", err)
	}
	defer signaled.Release()
	if ok, err := signaled.Wait(0); !ok || err != nil {
		t.Errorf("wait on signaled fence = %v, %v", ok, err)
	}
	if err := signaled.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ok, _ := signaled.Signaled(); ok {
		t.Error("fence still signaled after reset")
	}

	fence, err := dev.CreateFence()
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	if ok, err := fence.Wait(1000); ok || err != nil {
		t.Errorf("wait on unsignaled fence = %v, %v; want a timeout", ok, err)
	}
	fence.Release()
	if _, err := fence.Wait(0); !errors.Is(err, core.ErrReleased) {
		t.Errorf("wait after release: err = %v", err)
	}
	if err := fence.Reset(); !errors.Is(err, core.ErrReleased) {
		t.Errorf("reset after release: err = %v", err)
	}
}

func TestConcurrentRelease(t *testing.T) {
	drv := NewNullDriver(DefaultNullAdapter())
	_, dev := newTestDevice(t, drv)

	fences := make([]*Fence, 32)
	for i := range fences {
		f, err := dev.CreateFence()
		if err != nil {
			t.Fatalf("CreateFence: %v", err)
		}
		fences[i] = f
	}

	var wg sync.WaitGroup
	for _, f := range fences {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(f *Fence) {
				defer wg.Done()
				f.Release()
			}(f)
		}
	}
	wg.Wait()

	if drv.Live(KindFence) != 0 {
		t.Errorf("%d fences live", drv.Live(KindFence))
	}
	if dev.Refs() != 1 {
		t.Errorf("device refs = %d, want 1", dev.Refs())
	}
	if v := drv.Violations(); len(v) != 0 {
		t.Errorf("violations: %v", v)
	}
}

func TestLockPoolQueueCall(t *testing.T) {
	lp := NewLockPool()
	lp.SetQueueFamily(0)

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = lp.SafeQueueCall(0, func() error { counter++; return nil })
		}()
		go func() {
			defer wg.Done()
			_ = lp.SafeCall(BufferManagement, func() error {
				return lp.SafeQueueCall(1, func() error { return nil })
			})
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

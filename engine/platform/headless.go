package platform

import (
	"sync"
)

// HeadlessTarget is the surface target of a headless window. Only the null
// driver can turn it into a surface.
type HeadlessTarget struct {
	Caption string
}

// HeadlessWindow is a window without an OS backing. Messages are injected
// with Post and Close, which makes it usable from tests and CI.
type HeadlessWindow struct {
	mu       sync.Mutex
	width    uint32
	height   uint32
	visible  bool
	closed   bool
	resized  bool
	messages int
	wake     chan struct{}
	target   *HeadlessTarget
}

func NewHeadlessWindow(opts WindowOptions) *HeadlessWindow {
	return &HeadlessWindow{
		width:  opts.Width,
		height: opts.Height,
		wake:   make(chan struct{}, 1),
		target: &HeadlessTarget{Caption: opts.Caption},
	}
}

func (w *HeadlessWindow) Show() {
	w.mu.Lock()
	w.visible = true
	w.mu.Unlock()
}

func (w *HeadlessWindow) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

func (w *HeadlessWindow) Flush() {
	w.mu.Lock()
	w.messages = 0
	w.mu.Unlock()
}

func (w *HeadlessWindow) Extent() (uint32, uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *HeadlessWindow) Resized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.resized
	w.resized = false
	return r
}

// Resize simulates the OS resizing the window.
func (w *HeadlessWindow) Resize(width, height uint32) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.resized = true
	w.messages++
	w.mu.Unlock()
	w.signal()
}

// Post queues a message that makes the next wait return WaitContinue.
func (w *HeadlessWindow) Post() {
	w.mu.Lock()
	w.messages++
	w.mu.Unlock()
	w.signal()
}

func (w *HeadlessWindow) RequiredExtensions() []string {
	return nil
}

func (w *HeadlessWindow) SurfaceTarget() interface{} {
	return w.target
}

func (w *HeadlessWindow) WaitFor(events []*Event) WaitResult {
	cancel := SubscribeAll(events, w.signal)
	defer cancel()

	for {
		if k := FirstSignaled(events); k >= 0 {
			return WaitResult{Kind: WaitEvent, Index: k}
		}
		w.mu.Lock()
		closed, pending := w.closed, w.messages
		if pending > 0 {
			w.messages--
		}
		w.mu.Unlock()
		if closed {
			return WaitResult{Kind: WaitExit}
		}
		if pending > 0 {
			return WaitResult{Kind: WaitContinue}
		}
		<-w.wake
	}
}

func (w *HeadlessWindow) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.signal()
}

func (w *HeadlessWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *HeadlessWindow) Destroy() error {
	w.Close()
	return nil
}

func (w *HeadlessWindow) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

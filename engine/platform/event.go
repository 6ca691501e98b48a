package platform

import "sync"

// Event is a binary signal that can be set from any goroutine and waited on
// by Window.WaitFor together with the window's message queue.
type Event struct {
	mu        sync.Mutex
	signaled  bool
	autoReset bool
	wakers    map[int]func()
	nextWaker int
}

// NewEvent creates an unsignaled event. An auto-reset event returns to the
// unsignaled state as soon as a wait reports it.
func NewEvent(autoReset bool) *Event {
	return &Event{
		autoReset: autoReset,
		wakers:    make(map[int]func()),
	}
}

func (e *Event) Set() {
	e.mu.Lock()
	e.signaled = true
	wakers := make([]func(), 0, len(e.wakers))
	for _, w := range e.wakers {
		wakers = append(wakers, w)
	}
	e.mu.Unlock()

	for _, w := range wakers {
		w()
	}
}

func (e *Event) Reset() {
	e.mu.Lock()
	e.signaled = false
	e.mu.Unlock()
}

func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signaled
}

// consume reports whether the event is signaled, resetting it if auto-reset.
func (e *Event) consume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.signaled {
		return false
	}
	if e.autoReset {
		e.signaled = false
	}
	return true
}

func (e *Event) subscribe(wake func()) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextWaker
	e.nextWaker++
	e.wakers[id] = wake
	return id
}

func (e *Event) unsubscribe(id int) {
	e.mu.Lock()
	delete(e.wakers, id)
	e.mu.Unlock()
}

// WaitKind tags the outcome of Window.WaitFor.
type WaitKind int

const (
	// The window was asked to close.
	WaitExit WaitKind = iota
	// Messages were processed; nothing else happened.
	WaitContinue
	// One of the events passed to WaitFor is signaled.
	WaitEvent
)

type WaitResult struct {
	Kind WaitKind
	// Index of the signaled event, valid when Kind == WaitEvent.
	Index int
}

func (r WaitResult) String() string {
	switch r.Kind {
	case WaitExit:
		return "exit"
	case WaitContinue:
		return "continue"
	default:
		return "event"
	}
}

// FirstSignaled returns the lowest index of a signaled event, or -1. Auto-reset
// events are reset when reported.
func FirstSignaled(events []*Event) int {
	for i, e := range events {
		if e != nil && e.consume() {
			return i
		}
	}
	return -1
}

// SubscribeAll registers wake on every event and returns the matching cancel
// func. Window variants use it to interrupt their message wait.
func SubscribeAll(events []*Event, wake func()) func() {
	ids := make([]int, len(events))
	for i, e := range events {
		if e != nil {
			ids[i] = e.subscribe(wake)
		}
	}
	return func() {
		for i, e := range events {
			if e != nil {
				e.unsubscribe(ids[i])
			}
		}
	}
}

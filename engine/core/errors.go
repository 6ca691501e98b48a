package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// DeviceError reports a native driver call that returned a non-success result.
// Code carries the driver's result value verbatim.
type DeviceError struct {
	Op   string
	Code int32
	Name string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s failed: %s (%d)", e.Op, e.Name, e.Code)
}

// Is lets out-of-date presentation results match ErrSwapchainOutOfDate.
func (e *DeviceError) Is(target error) bool {
	if target == ErrSwapchainOutOfDate {
		return e.Code == ResultErrorOutOfDate || e.Code == ResultSuboptimal
	}
	if t, ok := target.(*DeviceError); ok {
		return t.Code == e.Code && (t.Op == "" || t.Op == e.Op)
	}
	return false
}

// Raw result values shared by every driver implementation.
const (
	ResultSuccess        int32 = 0
	ResultNotReady       int32 = 1
	ResultTimeout        int32 = 2
	ResultSuboptimal     int32 = 1000001003
	ResultErrorOutOfDate int32 = -1000001004
)

// GenericError is a logical precondition failure.
type GenericError struct {
	Reason string
}

func (e *GenericError) Error() string {
	return e.Reason
}

// PlatformError wraps a failure of the window system or OS signalling.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	if e.Err == nil {
		return "platform: " + e.Op
	}
	return fmt.Sprintf("platform: %s: %s", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

var (
	ErrNoAdapter              = &GenericError{Reason: "no suitable adapter found"}
	ErrNoGraphicsQueue        = &GenericError{Reason: "adapter exposes no graphics queue family"}
	ErrSurfaceNotSupported    = &GenericError{Reason: "surface does not support presentation on the selected queue family"}
	ErrUnsupportedFormat      = &GenericError{Reason: "no 32-bit sRGB surface format available"}
	ErrUnsupportedPresentMode = &GenericError{Reason: "neither FIFO nor mailbox present mode available"}
	ErrMemoryTypeNotFound     = &GenericError{Reason: "required memory type not found"}
	ErrExtensionNotPresent    = &GenericError{Reason: "required extension not present"}
	ErrLayerNotPresent        = &GenericError{Reason: "required layer not present"}
	ErrInvalidState           = &GenericError{Reason: "operation not valid in the current state"}
	ErrReleased               = &GenericError{Reason: "handle already released"}

	ErrSwapchainOutOfDate = errors.New("swapchain out of date, recreation required")
	ErrUnknown            = errors.New("unknown")
)

// IsDeviceError reports whether err carries a *DeviceError and returns it.
func IsDeviceError(err error) (*DeviceError, bool) {
	var de *DeviceError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

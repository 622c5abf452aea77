package gpucore

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacity marks a recoverable resource limit: a texture larger than
	// the device supports, too many attachments, or an atlas overflow.
	ErrCapacity = errors.New("gpucore: capacity exceeded")

	// ErrUnknownProgram is returned when binding an unregistered program.
	ErrUnknownProgram = errors.New("gpucore: unknown program")

	// ErrNoFramebuffer is returned when drawing with no framebuffer bound.
	ErrNoFramebuffer = errors.New("gpucore: no framebuffer bound")

	// ErrUnknownTexture is returned for a texture ID the adapter does not own.
	ErrUnknownTexture = errors.New("gpucore: unknown texture")

	// ErrDeviceLost is returned by adapters whose device is unusable.
	ErrDeviceLost = errors.New("gpucore: device lost")
)

// DeviceError reports a failed device operation. Device errors are fatal
// for the frame in which they occur.
type DeviceError struct {
	// Op is the operation that failed, for example "draw" or "readback".
	Op string

	// Program is the program being drawn, if any.
	Program string

	Err error
}

func (e *DeviceError) Error() string {
	if e.Program != "" {
		return fmt.Sprintf("gpucore: %s %s: %v", e.Op, e.Program, e.Err)
	}
	return fmt.Sprintf("gpucore: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// deviceErr wraps err in a DeviceError unless it already is one or it is a
// capacity error.
func deviceErr(op, program string, err error) error {
	if err == nil {
		return nil
	}
	var de *DeviceError
	if errors.As(err, &de) || errors.Is(err, ErrCapacity) {
		return err
	}
	return &DeviceError{Op: op, Program: program, Err: err}
}

// IsCapacity reports whether err is a recoverable capacity problem.
func IsCapacity(err error) bool {
	return errors.Is(err, ErrCapacity)
}

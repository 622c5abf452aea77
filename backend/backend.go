package backend

import (
	"errors"

	"github.com/gogpu/dpix/gpucore"
)

// Backend name constants.
const (
	// BackendSoftware is the CPU device that runs the reference kernels.
	BackendSoftware = "software"
	// BackendWGPU is the Pure Go GPU device (gogpu/wgpu).
	BackendWGPU = "wgpu"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or cannot open a device.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Config configures a device at open time.
type Config struct {
	// Workers bounds the goroutines of CPU devices; zero means GOMAXPROCS.
	Workers int

	// Limits overrides the reported device limits when non-zero. Tests use
	// it to force small atlases.
	Limits gpucore.Limits
}

// Factory opens a device adapter.
type Factory func(cfg Config) (gpucore.Adapter, error)

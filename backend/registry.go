package backend

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/dpix/gpucore"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	backendPriority = []string{BackendWGPU, BackendSoftware}
)

// Register registers a device factory under name. Backend packages call
// it from init. A factory registered under an existing name replaces it.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend. It is intended for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether a backend is registered under name.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open opens a device of the named backend.
func Open(name string, cfg Config) (gpucore.Adapter, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotAvailable, name)
	}
	a, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", name, err)
	}
	gpucore.Logger().Info("backend: device opened", "backend", name, "device", a.Name())
	return a, nil
}

// Default opens the best available device. Backends are tried in priority
// order; a backend that fails to open is logged and skipped.
func Default(cfg Config) (gpucore.Adapter, error) {
	var errs []error
	for _, name := range backendPriority {
		if !IsRegistered(name) {
			continue
		}
		a, err := Open(name, cfg)
		if err == nil {
			return a, nil
		}
		gpucore.Logger().Warn("backend: device unavailable", "backend", name, "err", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrBackendNotAvailable
	}
	return nil, errors.Join(append([]error{ErrBackendNotAvailable}, errs...)...)
}

// MustDefault opens the default device or panics.
func MustDefault(cfg Config) gpucore.Adapter {
	a, err := Default(cfg)
	if err != nil {
		panic(err)
	}
	return a
}

// Package backend selects the device that executes the line pipeline.
//
// Device packages register a factory on import:
//
//	import _ "github.com/gogpu/dpix/backend/software"
//	import _ "github.com/gogpu/dpix/backend/wgpu"
//
// # Backend Selection
//
// Use Default to open the best available device, or Open to request one
// by name:
//
//	dev, err := backend.Default(backend.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Destroy()
//
//	dev, err = backend.Open(backend.BackendSoftware, backend.Config{Workers: 4})
//
// # Available Backends
//
//   - "wgpu": compute shaders through gogpu/wgpu (Vulkan)
//   - "software": CPU reference kernels (always available)
package backend

// Package gpucore is the device layer of the line pipeline.
//
// It defines the [Adapter] interface implemented by the software and WebGPU
// backends, a registry of named programs ([ProgramLayout]) with a small
// binding API ([Program]) in the spirit of a shader manager, and
// [Framebuffer], a set of same-sized RGBA32F color attachments that programs
// draw into.
//
// # Execution Model
//
// A program is a data-parallel kernel. Drawing a program with count N runs
// N invocations; invocation i reads any bound input texture and writes
// either texel i of every active draw buffer (full-screen passes) or
// arbitrary texels (scatter passes such as the segment atlas). Adapters
// execute draws in submission order. Only readbacks synchronize with the
// host.
//
// # Binding Discipline
//
// At most one framebuffer is bound at a time. Binding a framebuffer while
// another is bound, or unbinding one that is not bound, is a programming
// error and panics.
//
// # Errors
//
// Capacity problems wrap [ErrCapacity] and are recoverable: callers log
// them and degrade. Every other adapter failure is reported as a
// [*DeviceError] and must abort the frame.
package gpucore

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements gpucore.Adapter with compute shaders on
// gogpu/wgpu's HAL. Textures are storage buffers of RGBA32F texels and
// every program is a WGSL compute shader with one invocation per draw
// index.
//
// Importing the package registers it as the "wgpu" backend.
package wgpu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dpix/backend"
	"github.com/gogpu/dpix/gpucore"
)

// defaultMaxTextureSize keeps the largest atlas within the default storage
// binding size: 2048*2048 texels of 16 bytes is 64 MiB.
const defaultMaxTextureSize = 2048

// waitTimeout bounds a readback wait before the device is declared lost.
const waitTimeout = 5 * time.Second

func init() {
	backend.Register(backend.BackendWGPU, func(cfg backend.Config) (gpucore.Adapter, error) {
		return Open(gputypes.BackendVulkan, WithLimits(cfg.Limits))
	})
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLimits overrides the reported limits. Zero fields keep the defaults.
func WithLimits(l gpucore.Limits) Option {
	return func(a *Adapter) {
		if l.MaxTextureSize > 0 {
			a.limits.MaxTextureSize = l.MaxTextureSize
		}
		if l.MaxColorAttachments > 0 {
			a.limits.MaxColorAttachments = l.MaxColorAttachments
		}
	}
}

// WithSPIRV compiles shaders to SPIR-V with naga before handing them to
// the device, for drivers without a WGSL front end.
func WithSPIRV() Option {
	return func(a *Adapter) { a.spirv = true }
}

// texture is a storage buffer holding width*height texels.
type texture struct {
	label         string
	width, height int
	buf           hal.Buffer
	size          uint64
}

// transient holds resources used by one submission. They are released
// once the queue reports the submission complete.
type transient struct {
	index   uint64
	cmd     hal.CommandBuffer
	buffers []hal.Buffer
	groups  []hal.BindGroup
}

// Adapter is a HAL compute device.
type Adapter struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool
	name     string

	limits     gpucore.Limits
	maxBinding uint64
	spirv      bool

	textures  map[gpucore.TextureID]*texture
	nextID    gpucore.TextureID
	pipelines map[string]*pipeline

	submitted uint64
	pending   []transient
	lost      bool
}

func newAdapter(opts []Option) *Adapter {
	a := &Adapter{
		limits: gpucore.Limits{
			MaxTextureSize:      defaultMaxTextureSize,
			MaxColorAttachments: int(gputypes.DefaultLimits().MaxStorageBuffersPerShaderStage),
		},
		maxBinding: gputypes.DefaultLimits().MaxStorageBufferBindingSize,
		textures:   make(map[gpucore.TextureID]*texture),
		pipelines:  make(map[string]*pipeline),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open creates an instance of the given HAL backend and opens its first
// GPU adapter, preferring discrete and integrated GPUs.
func Open(kind gputypes.Backend, opts ...Option) (*Adapter, error) {
	b, ok := hal.GetBackend(kind)
	if !ok {
		return nil, fmt.Errorf("%w: hal backend %v", backend.ErrBackendNotAvailable, kind)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no GPU adapters found", backend.ErrBackendNotAvailable)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	dev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	a := newAdapter(opts)
	a.instance = instance
	a.device = dev.Device
	a.queue = dev.Queue
	a.name = "wgpu (" + selected.Info.Name + ")"
	gpucore.Logger().Debug("wgpu: device opened", "adapter", selected.Info.Name, "type", selected.Info.DeviceType)
	return a, nil
}

// NewAdapterFromProvider runs the pipeline on a device owned by someone
// else, for example a gogpu window. The provider must also expose its HAL
// objects through HalDevice() any and HalQueue() any. Destroy leaves the
// shared device open.
func NewAdapterFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Adapter, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, errors.New("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, errors.New("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, errors.New("wgpu: provider HalQueue is not hal.Queue")
	}
	a := newAdapter(opts)
	a.device = device
	a.queue = queue
	a.external = true
	info := provider.AdapterInfo()
	a.name = "wgpu (shared)"
	if info.Name != "" {
		a.name = "wgpu (shared " + info.Name + ")"
	}
	if info.Type == gpucontext.AdapterTypeSoftware {
		gpucore.Logger().Warn("wgpu: shared device is a software adapter; the software backend is usually faster", "adapter", info.Name)
	}
	return a, nil
}

// Name implements gpucore.Adapter.
func (a *Adapter) Name() string {
	return a.name
}

// Limits implements gpucore.Adapter.
func (a *Adapter) Limits() gpucore.Limits {
	return a.limits
}

// NumTextures returns the number of live textures.
func (a *Adapter) NumTextures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.textures)
}

// halErr converts a HAL failure into a gpucore error. A lost device stays
// lost.
func (a *Adapter) halErr(op string, err error) error {
	switch {
	case errors.Is(err, hal.ErrDeviceLost):
		a.lost = true
		return fmt.Errorf("%w: %s: %v", gpucore.ErrDeviceLost, op, err)
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return fmt.Errorf("%w: %s: %v", gpucore.ErrCapacity, op, err)
	}
	return fmt.Errorf("wgpu: %s: %w", op, err)
}

func (a *Adapter) check() error {
	if a.lost || a.device == nil {
		return gpucore.ErrDeviceLost
	}
	return nil
}

// CreateTexture implements gpucore.Adapter.
func (a *Adapter) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if desc.Width > a.limits.MaxTextureSize || desc.Height > a.limits.MaxTextureSize {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q: %dx%d", gpucore.ErrCapacity, desc.Label, desc.Width, desc.Height)
	}
	size := uint64(desc.Texels()) * gpucore.TexelSize
	if size > a.maxBinding {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q: %d bytes exceeds storage binding size %d",
			gpucore.ErrCapacity, desc.Label, size, a.maxBinding)
	}
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, a.halErr("create texture "+desc.Label, err)
	}
	a.nextID++
	a.textures[a.nextID] = &texture{label: desc.Label, width: desc.Width, height: desc.Height, buf: buf, size: size}

	// New buffers are not guaranteed to be zeroed.
	if err := a.submit("clear "+desc.Label, func(enc hal.CommandEncoder) {
		enc.ClearBuffer(buf, 0, size)
	}, transient{}); err != nil {
		a.destroyTexture(a.nextID)
		return gpucore.InvalidID, err
	}
	return a.nextID, nil
}

// DestroyTexture implements gpucore.Adapter. The buffer is released once
// every submission that may use it has completed.
func (a *Adapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyTexture(id)
}

func (a *Adapter) destroyTexture(id gpucore.TextureID) {
	t, ok := a.textures[id]
	if !ok {
		return
	}
	delete(a.textures, id)
	a.pending = append(a.pending, transient{index: a.submitted, buffers: []hal.Buffer{t.buf}})
	a.collect()
}

func (a *Adapter) texture(id gpucore.TextureID) (*texture, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	t, ok := a.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	return t, nil
}

// WriteTexture implements gpucore.Adapter. The data goes through a staging
// buffer copied in submission order, so earlier draws still read the old
// contents.
func (a *Adapter) WriteTexture(id gpucore.TextureID, data []float32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, err := a.texture(id)
	if err != nil {
		return err
	}
	desc := gpucore.TextureDesc{Label: t.label, Width: t.width, Height: t.height}
	if err := gpucore.CheckTextureData(&desc, data); err != nil {
		return err
	}
	return a.upload(t, floatBytes(data))
}

// ClearTexture implements gpucore.Adapter.
func (a *Adapter) ClearTexture(id gpucore.TextureID, v [4]float32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, err := a.texture(id)
	if err != nil {
		return err
	}
	if v == [4]float32{} {
		return a.submit("clear "+t.label, func(enc hal.CommandEncoder) {
			enc.ClearBuffer(t.buf, 0, t.size)
		}, transient{})
	}
	fill := make([]float32, t.width*t.height*4)
	for i := 0; i < len(fill); i += 4 {
		copy(fill[i:i+4], v[:])
	}
	return a.upload(t, floatBytes(fill))
}

func (a *Adapter) upload(t *texture, data []byte) error {
	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: t.label + "_upload",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageMapWrite,
	})
	if err != nil {
		return a.halErr("create staging buffer", err)
	}
	if err := a.queue.WriteBuffer(staging, 0, data); err != nil {
		a.device.DestroyBuffer(staging)
		return a.halErr("write staging buffer", err)
	}
	return a.submit("upload "+t.label, func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(staging, t.buf, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: t.size}})
	}, transient{buffers: []hal.Buffer{staging}})
}

// ReadTexture implements gpucore.Adapter.
func (a *Adapter) ReadTexture(ctx context.Context, id gpucore.TextureID) (*gpucore.Texels, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, err := a.texture(id)
	if err != nil {
		return nil, err
	}
	out := gpucore.NewTexels(t.width, t.height)
	if err := a.readback(ctx, t, 0, out.Pix); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadTexel implements gpucore.Adapter.
func (a *Adapter) ReadTexel(ctx context.Context, id gpucore.TextureID, x, y int) ([4]float32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var v [4]float32
	t, err := a.texture(id)
	if err != nil {
		return v, err
	}
	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return v, fmt.Errorf("wgpu: texel (%d,%d) outside %dx%d", x, y, t.width, t.height)
	}
	off := uint64(y*t.width+x) * gpucore.TexelSize
	if err := a.readback(ctx, t, off, v[:]); err != nil {
		return v, err
	}
	return v, nil
}

// readback copies len(dst) floats starting at byte offset off of t into
// dst, waiting for every earlier submission.
func (a *Adapter) readback(ctx context.Context, t *texture, off uint64, dst []float32) error {
	size := uint64(len(dst)) * 4
	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: t.label + "_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return a.halErr("create readback buffer", err)
	}
	err = a.submit("readback "+t.label, func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(t.buf, staging, []hal.BufferCopy{{SrcOffset: off, DstOffset: 0, Size: size}})
	}, transient{})
	if err != nil {
		a.device.DestroyBuffer(staging)
		return err
	}
	if err := a.wait(ctx); err != nil {
		// The copy may still be running.
		a.pending = append(a.pending, transient{index: a.submitted, buffers: []hal.Buffer{staging}})
		return err
	}
	defer a.device.DestroyBuffer(staging)

	m, err := a.device.MapBuffer(staging, 0, size)
	if err != nil {
		return a.halErr("map readback buffer", err)
	}
	copy(dst, unsafe.Slice((*float32)(m.Ptr), len(dst)))
	if err := a.device.UnmapBuffer(staging); err != nil {
		return a.halErr("unmap readback buffer", err)
	}
	return nil
}

// submit records one command buffer and queues it. res is released when
// the submission completes.
func (a *Adapter) submit(label string, record func(enc hal.CommandEncoder), res transient) error {
	enc, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		a.release(res)
		return a.halErr("create command encoder", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		a.release(res)
		return a.halErr("begin encoding", err)
	}
	record(enc)
	cmd, err := enc.EndEncoding()
	if err != nil {
		a.release(res)
		return a.halErr("end encoding", err)
	}
	idx, err := a.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		a.device.FreeCommandBuffer(cmd)
		a.release(res)
		return a.halErr("submit "+label, err)
	}
	a.submitted = max(a.submitted, idx)
	res.index = idx
	res.cmd = cmd
	a.pending = append(a.pending, res)
	a.collect()
	return nil
}

// collect releases the resources of completed submissions.
func (a *Adapter) collect() {
	done := a.queue.PollCompleted()
	kept := a.pending[:0]
	for _, res := range a.pending {
		if res.index <= done {
			a.release(res)
			continue
		}
		kept = append(kept, res)
	}
	clear(a.pending[len(kept):])
	a.pending = kept
}

func (a *Adapter) release(res transient) {
	for _, bg := range res.groups {
		a.device.DestroyBindGroup(bg)
	}
	for _, buf := range res.buffers {
		a.device.DestroyBuffer(buf)
	}
	if res.cmd != nil {
		a.device.FreeCommandBuffer(res.cmd)
	}
}

// wait blocks until every submission has completed. A device that does
// not finish within waitTimeout is treated as lost.
func (a *Adapter) wait(ctx context.Context) error {
	deadline := time.Now().Add(waitTimeout)
	delay := 50 * time.Microsecond
	for a.queue.PollCompleted() < a.submitted {
		if time.Now().After(deadline) {
			a.lost = true
			return fmt.Errorf("%w: submission %d not complete after %v", gpucore.ErrDeviceLost, a.submitted, waitTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, 5*time.Millisecond)
	}
	a.collect()
	return nil
}

// Destroy implements gpucore.Adapter. A shared device is left open.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.device == nil {
		return
	}
	if !a.lost {
		if err := a.device.WaitIdle(); err != nil {
			gpucore.Logger().Warn("wgpu: wait idle on destroy", "err", err)
		}
	}
	for _, res := range a.pending {
		a.release(res)
	}
	a.pending = nil
	for id, t := range a.textures {
		a.device.DestroyBuffer(t.buf)
		delete(a.textures, id)
	}
	for name, p := range a.pipelines {
		p.destroy(a.device)
		delete(a.pipelines, name)
	}
	if !a.external {
		a.device.Destroy()
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.queue = nil
	a.instance = nil
}

// floatBytes views data as bytes without copying.
func floatBytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4) //nolint:gosec // float32 slice reinterpreted as bytes
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/dpix/backend"
	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/programs"
)

func newNoopAdapter(t *testing.T, opts ...Option) *Adapter {
	t.Helper()
	a, err := Open(gputypes.BackendEmpty, opts...)
	if err != nil {
		t.Fatalf("Open(noop) error = %v", err)
	}
	t.Cleanup(a.Destroy)
	return a
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendWGPU) {
		t.Fatal("wgpu backend not registered on import")
	}
}

func TestOpenNoop(t *testing.T) {
	a := newNoopAdapter(t)
	if a.Name() == "" {
		t.Error("empty adapter name")
	}
	l := a.Limits()
	if l.MaxTextureSize != defaultMaxTextureSize {
		t.Errorf("MaxTextureSize = %d, want %d", l.MaxTextureSize, defaultMaxTextureSize)
	}
	if l.MaxColorAttachments < 5 {
		t.Errorf("MaxColorAttachments = %d, atlas needs 5", l.MaxColorAttachments)
	}
}

func TestWithLimits(t *testing.T) {
	a := newNoopAdapter(t, WithLimits(gpucore.Limits{MaxTextureSize: 64}))
	if got := a.Limits(); got.MaxTextureSize != 64 || got.MaxColorAttachments == 0 {
		t.Errorf("Limits() = %+v, want overridden size only", got)
	}
}

func TestTextureLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newNoopAdapter(t, WithLimits(gpucore.Limits{MaxTextureSize: 64}))

	id, err := a.CreateTexture(&gpucore.TextureDesc{Label: "t", Width: 4, Height: 2})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if a.NumTextures() != 1 {
		t.Errorf("NumTextures() = %d, want 1", a.NumTextures())
	}
	if err := a.WriteTexture(id, make([]float32, 4*2*4)); err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}
	if err := a.WriteTexture(id, []float32{1}); err == nil {
		t.Error("short upload accepted")
	}
	if err := a.ClearTexture(id, [4]float32{1, 0, 0, 1}); err != nil {
		t.Fatalf("ClearTexture() error = %v", err)
	}

	tex, err := a.ReadTexture(ctx, id)
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	if tex.Width != 4 || tex.Height != 2 || len(tex.Pix) != 32 {
		t.Errorf("ReadTexture() = %dx%d with %d floats", tex.Width, tex.Height, len(tex.Pix))
	}
	if _, err := a.ReadTexel(ctx, id, 3, 1); err != nil {
		t.Errorf("ReadTexel() error = %v", err)
	}
	if _, err := a.ReadTexel(ctx, id, 4, 0); err == nil {
		t.Error("ReadTexel() outside the texture succeeded")
	}

	a.DestroyTexture(id)
	if a.NumTextures() != 0 {
		t.Errorf("NumTextures() after destroy = %d", a.NumTextures())
	}
	if _, err := a.ReadTexture(ctx, id); !errors.Is(err, gpucore.ErrUnknownTexture) {
		t.Errorf("ReadTexture(destroyed) error = %v, want ErrUnknownTexture", err)
	}
	if len(a.pending) != 0 {
		t.Errorf("%d submissions still pending on a synchronous queue", len(a.pending))
	}
}

func TestCreateTextureCapacity(t *testing.T) {
	a := newNoopAdapter(t, WithLimits(gpucore.Limits{MaxTextureSize: 64}))
	_, err := a.CreateTexture(&gpucore.TextureDesc{Label: "big", Width: 65, Height: 1})
	if !gpucore.IsCapacity(err) {
		t.Errorf("oversized texture error = %v, want capacity error", err)
	}

	b := newNoopAdapter(t, WithLimits(gpucore.Limits{MaxTextureSize: 1 << 16}))
	b.maxBinding = 1024
	_, err = b.CreateTexture(&gpucore.TextureDesc{Label: "wide", Width: 128, Height: 1})
	if !gpucore.IsCapacity(err) {
		t.Errorf("texture over the binding size error = %v, want capacity error", err)
	}
}

func TestReadTextureCanceled(t *testing.T) {
	a := newNoopAdapter(t)
	id, err := a.CreateTexture(&gpucore.TextureDesc{Label: "t", Width: 1, Height: 1})
	if err != nil {
		t.Fatal(err)
	}
	// Pretend a submission is still in flight.
	a.submitted += 10
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.ReadTexture(ctx, id); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadTexture() error = %v, want context.Canceled", err)
	}
}

func TestDispatchEveryProgram(t *testing.T) {
	a := newNoopAdapter(t)
	for _, l := range programs.Layouts {
		t.Run(l.Name, func(t *testing.T) {
			fb := gpucore.NewFramebuffer(a, l.Name)
			defer fb.Destroy()
			if err := fb.Init(l.Targets, 8, 8); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			input := gpucore.NewFramebuffer(a, l.Name+"_in")
			defer input.Destroy()
			if err := input.Init(1, 8, 8); err != nil {
				t.Fatalf("Init(input) error = %v", err)
			}

			p, err := gpucore.BindProgram(a, l.Name)
			if err != nil {
				t.Fatalf("BindProgram() error = %v", err)
			}
			for _, name := range l.Textures {
				p.BindNamedTexture(name, input.ColorTexture(0))
			}
			fb.Bind()
			err = p.Draw(64)
			fb.Unbind()
			if err != nil {
				t.Fatalf("Draw() error = %v", err)
			}
			if _, ok := a.pipelines[l.Name]; !ok {
				t.Errorf("pipeline %s not cached", l.Name)
			}
		})
	}
}

func TestDispatchRejectsFeedback(t *testing.T) {
	a := newNoopAdapter(t)
	fb := gpucore.NewFramebuffer(a, "sum")
	defer fb.Destroy()
	if err := fb.Init(1, 4, 4); err != nil {
		t.Fatal(err)
	}
	l, _ := gpucore.LookupProgram(programs.ClipBufferSum)
	err := a.Dispatch(&gpucore.DrawCall{
		Layout:   l,
		Uniforms: make([]float32, l.UniformSlots()*4),
		Textures: []gpucore.TextureID{fb.ColorTexture(0)},
		Targets:  []gpucore.TextureID{fb.ColorTexture(0)},
		Width:    4,
		Height:   4,
		Count:    16,
	})
	if err == nil {
		t.Error("draw reading its own target succeeded")
	}
}

func TestPackUniforms(t *testing.T) {
	l, ok := gpucore.LookupProgram(programs.ClipBufferSum)
	if !ok {
		t.Fatal("clip_buffer_sum not registered")
	}
	call := &gpucore.DrawCall{
		Layout:   l,
		Uniforms: []float32{4, 0, 0, 0, 10, 0, 0, 0},
		Width:    16,
		Height:   2,
		Count:    32,
	}
	buf := packUniforms(call, []*texture{{width: 16, height: 2}})
	if want := headerBytes + 2*16; len(buf) != want {
		t.Fatalf("len = %d, want %d", len(buf), want)
	}
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }
	if u32(0) != 32 || u32(4) != 16 || u32(8) != 2 {
		t.Errorf("header = (%d, %d, %d), want (32, 16, 2)", u32(0), u32(4), u32(8))
	}
	if u32(16) != 16 || u32(20) != 2 {
		t.Errorf("input 0 dims = (%d, %d), want (16, 2)", u32(16), u32(20))
	}
	if got := math.Float32frombits(u32(headerBytes)); got != 4 {
		t.Errorf("step_size = %v, want 4", got)
	}
	if got := math.Float32frombits(u32(headerBytes + 16)); got != 10 {
		t.Errorf("total_segments = %v, want 10", got)
	}
}

func TestWorkgroups(t *testing.T) {
	limit := gputypes.DefaultLimits().MaxComputeWorkgroupsPerDimension
	tests := []struct {
		n      int
		wx, wy uint32
	}{
		{1, 1, 1},
		{64, 1, 1},
		{65, 2, 1},
		{int(limit) * 64, limit, 1},
		{int(limit)*64 + 1, limit, 2},
	}
	for _, tt := range tests {
		x, y := workgroups(tt.n)
		if x != tt.wx || y != tt.wy {
			t.Errorf("workgroups(%d) = (%d, %d), want (%d, %d)", tt.n, x, y, tt.wx, tt.wy)
		}
	}
}

func TestHalErr(t *testing.T) {
	a := newNoopAdapter(t)
	if err := a.halErr("alloc", hal.ErrDeviceOutOfMemory); !gpucore.IsCapacity(err) {
		t.Errorf("out of memory maps to %v, want capacity error", err)
	}
	if a.lost {
		t.Fatal("out of memory marked the device lost")
	}
	if err := a.halErr("submit", hal.ErrDeviceLost); !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Errorf("device lost maps to %v", err)
	}
	if _, err := a.CreateTexture(&gpucore.TextureDesc{Label: "t", Width: 1, Height: 1}); !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Errorf("CreateTexture() on a lost device error = %v", err)
	}
}

func TestDestroy(t *testing.T) {
	a, err := Open(gputypes.BackendEmpty)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.CreateTexture(&gpucore.TextureDesc{Label: "t", Width: 1, Height: 1}); err != nil {
		t.Fatal(err)
	}
	a.Destroy()
	a.Destroy()
	if a.NumTextures() != 0 {
		t.Errorf("NumTextures() after Destroy = %d", a.NumTextures())
	}
	if _, err := a.CreateTexture(&gpucore.TextureDesc{Label: "t", Width: 1, Height: 1}); !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Errorf("CreateTexture() after Destroy error = %v", err)
	}
}

// plainProvider is a DeviceProvider without HAL accessors.
type plainProvider struct{}

func (plainProvider) Device() gpucontext.Device             { return nil }
func (plainProvider) Queue() gpucontext.Queue               { return nil }
func (plainProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (plainProvider) Adapter() gpucontext.Adapter           { return nil }
func (plainProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown} }

type halProvider struct {
	plainProvider
	device hal.Device
	queue  hal.Queue
}

func (p halProvider) Device() gpucontext.Device { return p.device }
func (p halProvider) Queue() gpucontext.Queue   { return p.queue }
func (p halProvider) HalDevice() any            { return p.device }
func (p halProvider) HalQueue() any             { return p.queue }
func (p halProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "Noop Adapter", Type: gpucontext.AdapterTypeSoftware}
}

func TestNewAdapterFromProvider(t *testing.T) {
	owner := newNoopAdapter(t)

	a, err := NewAdapterFromProvider(halProvider{device: owner.device, queue: owner.queue})
	if err != nil {
		t.Fatalf("NewAdapterFromProvider() error = %v", err)
	}
	if _, err := a.CreateTexture(&gpucore.TextureDesc{Label: "t", Width: 2, Height: 2}); err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	a.Destroy()
	if _, err := owner.CreateTexture(&gpucore.TextureDesc{Label: "t", Width: 2, Height: 2}); err != nil {
		t.Errorf("owner unusable after shared adapter Destroy: %v", err)
	}

	if a.Name() != "wgpu (shared Noop Adapter)" {
		t.Errorf("Name() = %q", a.Name())
	}

	if _, err := NewAdapterFromProvider(plainProvider{}); err == nil {
		t.Error("provider without HAL accessors accepted")
	}
	if _, err := NewAdapterFromProvider(halProvider{}); err == nil {
		t.Error("provider with nil device accepted")
	}
}

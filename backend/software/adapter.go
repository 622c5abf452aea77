// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software implements gpucore.Adapter on the CPU. Draw calls run
// the reference kernels of internal/kernels over a worker pool.
//
// Importing the package registers it as the "software" backend.
package software

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/dpix/backend"
	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/kernels"
	"github.com/gogpu/dpix/internal/parallel"
)

// minChunk is the smallest invocation range handed to one worker.
const minChunk = 256

func init() {
	backend.Register(backend.BackendSoftware, func(cfg backend.Config) (gpucore.Adapter, error) {
		return NewAdapter(cfg), nil
	})
}

// Adapter is the CPU device.
type Adapter struct {
	mu       sync.Mutex
	limits   gpucore.Limits
	pool     *parallel.WorkerPool
	textures map[gpucore.TextureID]*gpucore.Texels
	labels   map[gpucore.TextureID]string
	nextID   gpucore.TextureID
	lost     bool

	dispatches map[string]int
}

// NewAdapter creates a CPU device.
func NewAdapter(cfg backend.Config) *Adapter {
	limits := cfg.Limits
	if limits.MaxTextureSize == 0 {
		limits.MaxTextureSize = gpucore.DefaultLimits().MaxTextureSize
	}
	if limits.MaxColorAttachments == 0 {
		limits.MaxColorAttachments = gpucore.DefaultLimits().MaxColorAttachments
	}
	return &Adapter{
		limits:     limits,
		pool:       parallel.NewWorkerPool(cfg.Workers),
		textures:   make(map[gpucore.TextureID]*gpucore.Texels),
		labels:     make(map[gpucore.TextureID]string),
		dispatches: make(map[string]int),
	}
}

// Name implements gpucore.Adapter.
func (a *Adapter) Name() string {
	return fmt.Sprintf("software (%d workers)", a.pool.Workers())
}

// Limits implements gpucore.Adapter.
func (a *Adapter) Limits() gpucore.Limits {
	return a.limits
}

// Lose marks the device lost. Every later operation fails with
// gpucore.ErrDeviceLost.
func (a *Adapter) Lose() {
	a.mu.Lock()
	a.lost = true
	a.mu.Unlock()
}

// Dispatches returns how many draws of program have run.
func (a *Adapter) Dispatches(program string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dispatches[program]
}

// NumTextures returns the number of live textures.
func (a *Adapter) NumTextures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.textures)
}

// CreateTexture implements gpucore.Adapter.
func (a *Adapter) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lost {
		return gpucore.InvalidID, gpucore.ErrDeviceLost
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("software: texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if desc.Width > a.limits.MaxTextureSize || desc.Height > a.limits.MaxTextureSize {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q: %dx%d", gpucore.ErrCapacity, desc.Label, desc.Width, desc.Height)
	}
	a.nextID++
	a.textures[a.nextID] = gpucore.NewTexels(desc.Width, desc.Height)
	a.labels[a.nextID] = desc.Label
	return a.nextID, nil
}

// DestroyTexture implements gpucore.Adapter.
func (a *Adapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.textures, id)
	delete(a.labels, id)
}

func (a *Adapter) texture(id gpucore.TextureID) (*gpucore.Texels, error) {
	if a.lost {
		return nil, gpucore.ErrDeviceLost
	}
	t, ok := a.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	return t, nil
}

// WriteTexture implements gpucore.Adapter.
func (a *Adapter) WriteTexture(id gpucore.TextureID, data []float32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, err := a.texture(id)
	if err != nil {
		return err
	}
	desc := gpucore.TextureDesc{Label: a.labels[id], Width: t.Width, Height: t.Height}
	if err := gpucore.CheckTextureData(&desc, data); err != nil {
		return err
	}
	copy(t.Pix, data)
	return nil
}

// ClearTexture implements gpucore.Adapter.
func (a *Adapter) ClearTexture(id gpucore.TextureID, v [4]float32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, err := a.texture(id)
	if err != nil {
		return err
	}
	t.Fill(v)
	return nil
}

// ReadTexture implements gpucore.Adapter. The returned image is a copy.
func (a *Adapter) ReadTexture(ctx context.Context, id gpucore.TextureID) (*gpucore.Texels, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	t, err := a.texture(id)
	if err != nil {
		return nil, err
	}
	out := gpucore.NewTexels(t.Width, t.Height)
	copy(out.Pix, t.Pix)
	return out, nil
}

// ReadTexel implements gpucore.Adapter.
func (a *Adapter) ReadTexel(ctx context.Context, id gpucore.TextureID, x, y int) ([4]float32, error) {
	if err := ctx.Err(); err != nil {
		return [4]float32{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	t, err := a.texture(id)
	if err != nil {
		return [4]float32{}, err
	}
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return [4]float32{}, fmt.Errorf("software: texel (%d,%d) outside %dx%d", x, y, t.Width, t.Height)
	}
	return t.At(x, y), nil
}

// Dispatch implements gpucore.Adapter. The draw runs to completion before
// Dispatch returns.
func (a *Adapter) Dispatch(call *gpucore.DrawCall) error {
	k, err := kernels.Lookup(call.Layout.Name)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	in := make([]*gpucore.Texels, len(call.Textures))
	for i, id := range call.Textures {
		if in[i], err = a.texture(id); err != nil {
			return fmt.Errorf("input %s: %w", call.Layout.Textures[i], err)
		}
	}
	out := make([]*gpucore.Texels, len(call.Targets))
	for i, id := range call.Targets {
		if out[i], err = a.texture(id); err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
		if out[i].Width != call.Width || out[i].Height != call.Height {
			return fmt.Errorf("software: target %d is %dx%d, draw is %dx%d",
				i, out[i].Width, out[i].Height, call.Width, call.Height)
		}
		for j, src := range call.Textures {
			if src == id {
				return fmt.Errorf("software: %s reads %s while drawing into it",
					call.Layout.Name, call.Layout.Textures[j])
			}
		}
	}

	a.dispatches[call.Layout.Name]++
	a.pool.Range(call.Count, minChunk, k(call, in, out))
	return nil
}

// Destroy implements gpucore.Adapter.
func (a *Adapter) Destroy() {
	a.pool.Close()
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.textures)
	clear(a.labels)
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dpix/gpucore"
)

// pipeline is the compiled compute pipeline of one program.
type pipeline struct {
	layout     *gpucore.ProgramLayout
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

func (p *pipeline) destroy(d hal.Device) {
	if p.pipeline != nil {
		d.DestroyComputePipeline(p.pipeline)
	}
	if p.pipeLayout != nil {
		d.DestroyPipelineLayout(p.pipeLayout)
	}
	if p.bindLayout != nil {
		d.DestroyBindGroupLayout(p.bindLayout)
	}
	if p.module != nil {
		d.DestroyShaderModule(p.module)
	}
}

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("wgpu: SPIR-V size %d is not a multiple of 4", len(spirvBytes))
	}
	// SPIR-V words are little-endian.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// pipelineFor returns the cached pipeline of l, building it on first use.
func (a *Adapter) pipelineFor(l *gpucore.ProgramLayout) (*pipeline, error) {
	if p, ok := a.pipelines[l.Name]; ok {
		return p, nil
	}
	storage := len(l.Textures) + l.Targets
	if maxStorage := int(gputypes.DefaultLimits().MaxStorageBuffersPerShaderStage); storage > maxStorage {
		return nil, fmt.Errorf("%w: program %s binds %d storage buffers, device allows %d",
			gpucore.ErrCapacity, l.Name, storage, maxStorage)
	}

	src, err := ShaderSource(l.Name)
	if err != nil {
		return nil, err
	}
	shader := hal.ShaderSource{WGSL: src}
	if a.spirv {
		words, err := CompileSPIRV(src)
		if err != nil {
			return nil, fmt.Errorf("program %s: %w", l.Name, err)
		}
		shader = hal.ShaderSource{SPIRV: words}
	}

	p := &pipeline{layout: l}
	p.module, err = a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: l.Name, Source: shader})
	if err != nil {
		return nil, a.halErr("create shader module "+l.Name, err)
	}

	entries := make([]gputypes.BindGroupLayoutEntry, 0, 1+storage)
	entries = append(entries, gputypes.BindGroupLayoutEntry{
		Binding: 0, Visibility: gputypes.ShaderStageCompute,
		Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	})
	for i := range l.Textures {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding: uint32(1 + i), Visibility: gputypes.ShaderStageCompute, //nolint:gosec // bounded by maxInputs
			Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		})
	}
	for j := range l.Targets {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding: uint32(1 + len(l.Textures) + j), Visibility: gputypes.ShaderStageCompute, //nolint:gosec // bounded by storage limit
			Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		})
	}
	p.bindLayout, err = a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: l.Name + "_bind_layout", Entries: entries})
	if err != nil {
		p.destroy(a.device)
		return nil, a.halErr("create bind group layout "+l.Name, err)
	}
	p.pipeLayout, err = a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: l.Name + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.destroy(a.device)
		return nil, a.halErr("create pipeline layout "+l.Name, err)
	}
	p.pipeline, err = a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: l.Name, Layout: p.pipeLayout,
		Compute: hal.ComputeState{Module: p.module, EntryPoint: "main"},
	})
	if err != nil {
		p.destroy(a.device)
		return nil, a.halErr("create compute pipeline "+l.Name, err)
	}
	a.pipelines[l.Name] = p
	gpucore.Logger().Debug("wgpu: pipeline created", "program", l.Name, "spirv", a.spirv)
	return p, nil
}

// packUniforms lays out the uniform buffer: the draw header, the size of
// every input, then the program's vec4 slots.
func packUniforms(call *gpucore.DrawCall, inputs []*texture) []byte {
	slots := uniformSlots(call.Layout)
	buf := make([]byte, headerBytes+slots*16)
	binary.LittleEndian.PutUint32(buf[0:], uint32(call.Count))  //nolint:gosec // draw counts fit uint32
	binary.LittleEndian.PutUint32(buf[4:], uint32(call.Width))  //nolint:gosec // texture sizes fit uint32
	binary.LittleEndian.PutUint32(buf[8:], uint32(call.Height)) //nolint:gosec // texture sizes fit uint32
	for i, t := range inputs {
		off := 16 + i*16
		binary.LittleEndian.PutUint32(buf[off:], uint32(t.width))    //nolint:gosec // texture sizes fit uint32
		binary.LittleEndian.PutUint32(buf[off+4:], uint32(t.height)) //nolint:gosec // texture sizes fit uint32
	}
	for i, f := range call.Uniforms {
		binary.LittleEndian.PutUint32(buf[headerBytes+i*4:], math.Float32bits(f))
	}
	return buf
}

// workgroups splits n invocations into a grid that respects the per
// dimension dispatch limit.
func workgroups(n int) (x, y uint32) {
	groups := (n + workgroupSize - 1) / workgroupSize
	limit := int(gputypes.DefaultLimits().MaxComputeWorkgroupsPerDimension)
	if groups <= limit {
		return uint32(groups), 1 //nolint:gosec // bounded by limit
	}
	rows := (groups + limit - 1) / limit
	return uint32(limit), uint32(rows) //nolint:gosec // bounded by limit
}

// Dispatch implements gpucore.Adapter. The draw is queued; it completes
// before any later readback returns.
func (a *Adapter) Dispatch(call *gpucore.DrawCall) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return err
	}

	inputs := make([]*texture, len(call.Textures))
	for i, id := range call.Textures {
		t, err := a.texture(id)
		if err != nil {
			return fmt.Errorf("input %s: %w", call.Layout.Textures[i], err)
		}
		inputs[i] = t
	}
	targets := make([]*texture, len(call.Targets))
	for j, id := range call.Targets {
		t, err := a.texture(id)
		if err != nil {
			return fmt.Errorf("target %d: %w", j, err)
		}
		if t.width != call.Width || t.height != call.Height {
			return fmt.Errorf("wgpu: target %d is %dx%d, draw is %dx%d", j, t.width, t.height, call.Width, call.Height)
		}
		for i, src := range call.Textures {
			if src == id {
				return fmt.Errorf("wgpu: %s reads %s while drawing into it", call.Layout.Name, call.Layout.Textures[i])
			}
		}
		targets[j] = t
	}

	p, err := a.pipelineFor(call.Layout)
	if err != nil {
		return err
	}

	params := packUniforms(call, inputs)
	ub, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: call.Layout.Name + "_params",
		Size:  uint64(len(params)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return a.halErr("create uniform buffer", err)
	}
	if err := a.queue.WriteBuffer(ub, 0, params); err != nil {
		a.device.DestroyBuffer(ub)
		return a.halErr("write uniform buffer", err)
	}

	entries := make([]gputypes.BindGroupEntry, 0, 1+len(inputs)+len(targets))
	entries = append(entries, gputypes.BindGroupEntry{
		Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: uint64(len(params))},
	})
	for i, t := range append(inputs, targets...) {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(1 + i), //nolint:gosec // bounded by storage limit
			Resource: gputypes.BufferBinding{Buffer: t.buf.NativeHandle(), Offset: 0, Size: t.size},
		})
	}
	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{Label: call.Layout.Name + "_bind", Layout: p.bindLayout, Entries: entries})
	if err != nil {
		a.device.DestroyBuffer(ub)
		return a.halErr("create bind group", err)
	}

	gx, gy := workgroups(call.Count)
	return a.submit(call.Layout.Name, func(enc hal.CommandEncoder) {
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: call.Layout.Name})
		pass.SetPipeline(p.pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(gx, gy, 1)
		pass.End()
	}, transient{buffers: []hal.Buffer{ub}, groups: []hal.BindGroup{bg}})
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"strings"

	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/kernels"
	"github.com/gogpu/dpix/internal/programs"
)

// workgroupSize is the invocation count of one compute workgroup.
const workgroupSize = 64

// maxInputs bounds the input textures of a program; the uniform header
// carries the size of each.
const maxInputs = 8

// headerBytes is the size of the uniform header: (count, width, height, 0)
// followed by one (width, height, 0, 0) entry per input.
const headerBytes = 16 + maxInputs*16

// programBodies holds the kernel of each program. Every body defines
// run(i), called once per invocation below params.count.
var programBodies = map[string]string{
	programs.ClipBuffer:         clipBufferWGSL,
	programs.ClipBufferSum:      clipBufferSumWGSL,
	programs.SegmentAtlas:       atlasCommonWGSL + segmentAtlasWGSL,
	programs.SegmentAtlasPrio:   atlasCommonWGSL + focusWGSL + segmentAtlasPriorityWGSL,
	programs.BilateralFilter:    filterCommonWGSL + bilateralWGSL,
	programs.MedianFilter:       filterCommonWGSL + medianWGSL,
	programs.SmoothAndThreshold: filterCommonWGSL + smoothAndThresholdWGSL,
}

// ShaderSource returns the WGSL compute shader of a registered program.
func ShaderSource(name string) (string, error) {
	l, ok := gpucore.LookupProgram(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", gpucore.ErrUnknownProgram, name)
	}
	body, ok := programBodies[name]
	if !ok {
		return "", fmt.Errorf("wgpu: no shader for program %s", name)
	}
	if len(l.Textures) > maxInputs {
		return "", fmt.Errorf("wgpu: program %s has %d inputs, at most %d supported", name, len(l.Textures), maxInputs)
	}

	var b strings.Builder
	writePrelude(&b, l)
	b.WriteString(body)
	b.WriteString(mainWGSL)
	return b.String(), nil
}

// uniformSlots is the length of the uniform slot array. WGSL has no empty
// arrays, so programs without uniforms still get one slot.
func uniformSlots(l *gpucore.ProgramLayout) int {
	return max(l.UniformSlots(), 1)
}

// writePrelude emits the bindings of l plus one accessor per uniform and
// input texture.
func writePrelude(b *strings.Builder, l *gpucore.ProgramLayout) {
	fmt.Fprintf(b, "// %s\n\n", l.Name)
	fmt.Fprintf(b, "struct Params {\n    count: u32,\n    width: u32,\n    height: u32,\n    pad: u32,\n")
	fmt.Fprintf(b, "    dims: array<vec4<u32>, %d>,\n", maxInputs)
	fmt.Fprintf(b, "    s: array<vec4<f32>, %d>,\n}\n\n", uniformSlots(l))
	b.WriteString("@group(0) @binding(0) var<uniform> params: Params;\n")
	for i := range l.Textures {
		fmt.Fprintf(b, "@group(0) @binding(%d) var<storage, read> in%d: array<vec4<f32>>;\n", 1+i, i)
	}
	for j := range l.Targets {
		fmt.Fprintf(b, "@group(0) @binding(%d) var<storage, read_write> out%d: array<vec4<f32>>;\n", 1+len(l.Textures)+j, j)
	}
	b.WriteString("\n")

	for _, u := range l.Uniforms {
		off, _, _ := l.UniformOffset(u.Name)
		switch u.Kind {
		case gpucore.Float:
			fmt.Fprintf(b, "fn u_%s() -> f32 { return params.s[%d].x; }\n", u.Name, off)
		case gpucore.Vec2:
			fmt.Fprintf(b, "fn u_%s() -> vec2<f32> { return params.s[%d].xy; }\n", u.Name, off)
		case gpucore.Vec3:
			fmt.Fprintf(b, "fn u_%s() -> vec3<f32> { return params.s[%d].xyz; }\n", u.Name, off)
		case gpucore.Vec4:
			fmt.Fprintf(b, "fn u_%s() -> vec4<f32> { return params.s[%d]; }\n", u.Name, off)
		case gpucore.Mat4:
			// Row-major: row r lives in slot off+r.
			fmt.Fprintf(b, "fn u_%s(v: vec4<f32>) -> vec4<f32> {\n", u.Name)
			fmt.Fprintf(b, "    return vec4<f32>(dot(params.s[%d], v), dot(params.s[%d], v), dot(params.s[%d], v), dot(params.s[%d], v));\n}\n",
				off, off+1, off+2, off+3)
		}
	}

	for i, name := range l.Textures {
		fmt.Fprintf(b, `
fn size_%[1]s() -> vec2<i32> {
    return vec2<i32>(params.dims[%[2]d].xy);
}
fn tex_%[1]s(i: u32) -> vec4<f32> {
    if (i >= arrayLength(&in%[2]d)) {
        return vec4<f32>(0.0);
    }
    return in%[2]d[i];
}
fn tex2_%[1]s(x: i32, y: i32) -> vec4<f32> {
    let d = size_%[1]s();
    if (x < 0 || y < 0 || x >= d.x || y >= d.y) {
        return vec4<f32>(0.0);
    }
    return tex_%[1]s(u32(y * d.x + x));
}
`, name, i)
	}
	b.WriteString("\n")
}

// mainWGSL flattens a 2D dispatch into the invocation index.
const mainWGSL = `
@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) gid: vec3<u32>, @builtin(num_workgroups) groups: vec3<u32>) {
    let i = gid.x + gid.y * groups.x * 64u;
    if (i >= params.count) {
        return;
    }
    run(i);
}
`

const clipBufferWGSL = `
struct Clipped {
    c0: vec4<f32>,
    c1: vec4<f32>,
    l: vec4<f32>,
}

fn plane_dist(p: vec4<f32>, k: u32) -> f32 {
    switch k {
        case 0u: { return p.w + p.x; }
        case 1u: { return p.w - p.x; }
        case 2u: { return p.w + p.y; }
        case 3u: { return p.w - p.y; }
        case 4u: { return p.w + p.z; }
        default: { return p.w - p.z; }
    }
}

fn to_viewport(p: vec4<f32>) -> vec3<f32> {
    let vp = u_viewport();
    let n = p.xyz / p.w;
    return vec3<f32>(vp.x + (n.x * 0.5 + 0.5) * vp.z, vp.y + (n.y * 0.5 + 0.5) * vp.w, n.z * 0.5 + 0.5);
}

fn sample_count(length_px: f32) -> f32 {
    let spacing = u_sample_step();
    if (length_px <= 0.0 || spacing <= 0.0) {
        return 0.0;
    }
    return min(ceil(length_px / spacing), u_max_segment_length());
}

fn clip_one(i: u32) -> Clipped {
    var r: Clipped;
    let a = tex_vert0_tex(i);
    let b = tex_vert1_tex(i);
    if (b.w > 0.5) {
        let n0 = tex_face_normal0_tex(i).xyz;
        let n1 = tex_face_normal1_tex(i).xyz;
        let e = u_view_pos() - (a.xyz + b.xyz) * 0.5;
        if (dot(n0, e) * dot(n1, e) > 0.0) {
            return r;
        }
    }

    let p0 = u_view_projection(vec4<f32>(a.xyz, 1.0));
    let p1 = u_view_projection(vec4<f32>(b.xyz, 1.0));
    var t0 = 0.0;
    var t1 = 1.0;
    for (var k = 0u; k < 6u; k++) {
        let d0 = plane_dist(p0, k);
        let d1 = plane_dist(p1, k);
        if (d0 < 0.0 && d1 < 0.0) {
            return r;
        }
        if (d0 < 0.0) {
            t0 = max(t0, d0 / (d0 - d1));
        } else if (d1 < 0.0) {
            t1 = min(t1, d0 / (d0 - d1));
        }
    }
    if (t0 > t1) {
        return r;
    }

    let q0 = p0 + (p1 - p0) * t0;
    let q1 = p0 + (p1 - p0) * t1;
    if (q0.w <= 1e-12 || q1.w <= 1e-12) {
        return r;
    }
    let s0 = to_viewport(q0);
    let s1 = to_viewport(q1);
    let length_px = distance(s0.xy, s1.xy);
    r.c0 = vec4<f32>(s0, t0);
    r.c1 = vec4<f32>(s1, t1);
    r.l = vec4<f32>(sample_count(length_px), length_px, 0.0, 0.0);
    return r;
}

fn run(i: u32) {
    var r: Clipped;
    if (f32(i) < u_total_segments()) {
        r = clip_one(i);
    }
    out0[i] = r.c0;
    out1[i] = r.c1;
    out2[i] = r.l;
}
`

const clipBufferSumWGSL = `
fn run(i: u32) {
    var v = tex_last_pass_buf(i);
    let stride = u32(u_step_size());
    if (f32(i) < u_total_segments() && i >= stride) {
        v.x += tex_last_pass_buf(i - stride).x;
    }
    out0[i] = v;
}
`

// atlasCommonWGSL locates the sample run of a segment. The lengths and
// offsets textures carry the sample count and the inclusive prefix sum.
const atlasCommonWGSL = `
struct Run {
    valid: bool,
    count: u32,
    start_x: u32,
    row: u32,
    c0: vec4<f32>,
    c1: vec4<f32>,
}

fn locate(s: u32) -> Run {
    var r: Run;
    let wrap = u32(u_atlas_width());
    if (f32(s) >= u_total_segments() || wrap == 0u) {
        return r;
    }
    let count = u32(tex_segment_lengths(s).x);
    if (count == 0u) {
        return r;
    }
    let start = u32(tex_offset_buffer(s).x) - count;
    r.start_x = start % wrap;
    r.row = start / wrap;
    if (r.row >= params.height) {
        return r;
    }
    r.valid = true;
    r.count = count;
    r.c0 = tex_clip_vert_0_buffer(s);
    r.c1 = tex_clip_vert_1_buffer(s);
    return r;
}

fn sample_pos(r: Run, k: u32) -> vec3<f32> {
    let t = (f32(k) + 0.5) / f32(r.count);
    return r.c0.xyz + (r.c1.xyz - r.c0.xyz) * t;
}

fn atlas_index(r: Run, k: u32) -> u32 {
    return r.row * params.width + r.start_x + k;
}
`

const segmentAtlasWGSL = `
fn depth_visibility(p: vec3<f32>) -> f32 {
    let sz = size_depth_buffer();
    if (sz.x == 0 || sz.y == 0) {
        return 1.0;
    }
    let ks = u_kernel_scale();
    let c = p.xy * u_reference_scale();
    let bias = u_depth_bias();
    var passed = 0.0;
    for (var dy = -1; dy <= 1; dy++) {
        for (var dx = -1; dx <= 1; dx++) {
            let tx = clamp(i32(floor(c.x + f32(dx) * ks.x)), 0, sz.x - 1);
            let ty = clamp(i32(floor(c.y + f32(dy) * ks.y)), 0, sz.y - 1);
            if (p.z <= tex2_depth_buffer(tx, ty).x + bias) {
                passed += 1.0;
            }
        }
    }
    return passed / 9.0;
}

fn run(s: u32) {
    let r = locate(s);
    if (!r.valid) {
        return;
    }
    for (var k = 0u; k < r.count; k++) {
        let vis = depth_visibility(sample_pos(r, k));
        out0[atlas_index(r, k)] = vec4<f32>(vis, f32(s), f32(k), 1.0);
    }
}
`

// focusWGSL evaluates the focus transfer ramp (v1, v2, near, far).
const focusWGSL = `
fn ramp(t: vec4<f32>, f: f32) -> f32 {
    if (t.z > t.w || f < t.z) {
        return t.x;
    }
    if (f > t.w) {
        return t.y;
    }
    if (t.w == t.z) {
        return t.x;
    }
    return t.x + (t.y - t.x) * (f - t.z) / (t.w - t.z);
}

fn focus_factor(p: vec2<f32>) -> f32 {
    let focus = u_focus();
    if (focus.w <= 0.5 || focus.z <= 0.0) {
        return 1.0;
    }
    let d = distance(p, focus.xy) / focus.z;
    return clamp(1.0 - ramp(u_transfer_focus(), d), 0.0, 1.0);
}
`

var segmentAtlasPriorityWGSL = fmt.Sprintf(`
fn run(s: u32) {
    let r = locate(s);
    if (!r.valid) {
        return;
    }
    let path_priority = tex_path_start_end_ptrs(s).z;
    let sz = size_priority_buffer();
    let rs = u_reference_scale();
    for (var k = 0u; k < r.count; k++) {
        let p = sample_pos(r, k);
        let px = clamp(i32(floor(p.x * rs.x)), 0, max(sz.x - 1, 0));
        let py = clamp(i32(floor(p.y * rs.y)), 0, max(sz.y - 1, 0));
        var v = 0.0;
        if (path_priority >= tex2_priority_buffer(px, py).x - %g) {
            let vis = tex2_visibility_buffer(i32(r.start_x + k), i32(r.row)).x;
            v = vis * focus_factor(p.xy);
        }
        out0[atlas_index(r, k)] = vec4<f32>(v, f32(s), f32(k), 1.0);
    }
}
`, kernels.PriorityTolerance)

// filterCommonWGSL carries the smoothing constants of internal/kernels.
var filterCommonWGSL = fmt.Sprintf(`
const SMOOTH_HALF: i32 = %d;
const RANGE_SIGMA: f32 = %g;
const MEDIAN_RADIUS: i32 = %d;
const THRESHOLD: f32 = %g;

fn smooth_weight(j: i32) -> f32 {
    var w = array<f32, %d>(%s);
    return w[j];
}

// neighbor returns (value, 1) for a same-segment sample dx away, else 0.
fn neighbor(x: i32, y: i32, dx: i32, seg: f32) -> vec2<f32> {
    let n = tex2_source_buffer(x + dx, y);
    if (n.w <= 0.0 || n.y != seg) {
        return vec2<f32>(0.0);
    }
    return vec2<f32>(n.x, 1.0);
}

fn smooth_at(x: i32, y: i32, seg: f32) -> f32 {
    var sum = 0.0;
    var norm = 0.0;
    for (var j = 0; j <= 2 * SMOOTH_HALF; j++) {
        let n = neighbor(x, y, j - SMOOTH_HALF, seg);
        let w = smooth_weight(j) * n.y;
        sum += w * n.x;
        norm += w;
    }
    if (norm == 0.0) {
        return 0.0;
    }
    return sum / norm;
}

fn run(i: u32) {
    let c = tex_source_buffer(i);
    if (c.w <= 0.0) {
        out0[i] = vec4<f32>(0.0);
        return;
    }
    let x = i32(i %% params.width);
    let y = i32(i / params.width);
    out0[i] = vec4<f32>(filter_value(x, y, c), c.yzw);
}
`, len(smoothWeights())/2, kernels.RangeSigma, kernels.MedianRadius, kernels.ThresholdLevel,
	len(smoothWeights()), weightList(smoothWeights()))

const bilateralWGSL = `
fn filter_value(x: i32, y: i32, c: vec4<f32>) -> f32 {
    var sum = 0.0;
    var norm = 0.0;
    let two_range_sq = 2.0 * RANGE_SIGMA * RANGE_SIGMA;
    for (var j = 0; j <= 2 * SMOOTH_HALF; j++) {
        let n = neighbor(x, y, j - SMOOTH_HALF, c.y);
        if (n.y == 0.0) {
            continue;
        }
        let d = n.x - c.x;
        let w = smooth_weight(j) * exp(-d * d / two_range_sq);
        sum += w * n.x;
        norm += w;
    }
    return sum / norm;
}
`

var medianWGSL = fmt.Sprintf(`
fn filter_value(x: i32, y: i32, c: vec4<f32>) -> f32 {
    var vals: array<f32, %d>;
    var n = 0;
    for (var dx = -MEDIAN_RADIUS; dx <= MEDIAN_RADIUS; dx++) {
        let v = neighbor(x, y, dx, c.y);
        if (v.y == 0.0) {
            continue;
        }
        var j = n;
        while (j > 0 && vals[j - 1] > v.x) {
            vals[j] = vals[j - 1];
            j--;
        }
        vals[j] = v.x;
        n++;
    }
    return vals[n / 2];
}
`, 2*kernels.MedianRadius+1)

const smoothAndThresholdWGSL = `
fn filter_value(x: i32, y: i32, c: vec4<f32>) -> f32 {
    let overshoot = i32(round(u_overshoot_offset()));
    for (var dx = -overshoot; dx <= overshoot; dx++) {
        if (dx != 0 && neighbor(x, y, dx, c.y).y == 0.0) {
            continue;
        }
        if (smooth_at(x + dx, y, c.y) >= THRESHOLD) {
            return 1.0;
        }
    }
    return 0.0;
}
`

func smoothWeights() []float32 {
	return kernels.GaussianWeights(kernels.SmoothSigma)
}

func weightList(w []float32) string {
	parts := make([]string, len(w))
	for i, v := range w {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ", ")
}

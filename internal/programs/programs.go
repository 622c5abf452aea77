// Package programs declares the named programs of the segment atlas
// pipeline. Every device backend implements each of them; the atlas binds
// them by name.
package programs

import "github.com/gogpu/dpix/gpucore"

// Program names.
const (
	ClipBuffer         = "clip_buffer"
	ClipBufferSum      = "clip_buffer_sum"
	SegmentAtlas       = "segment_atlas"
	SegmentAtlasPrio   = "segment_atlas_priority"
	BilateralFilter    = "bilateral_filter_atlas"
	MedianFilter       = "median_filter_atlas"
	SmoothAndThreshold = "smooth_and_threshold_atlas"
)

// Layouts lists every program in registration order.
var Layouts = []gpucore.ProgramLayout{
	{
		Name: ClipBuffer,
		Uniforms: []gpucore.Uniform{
			{Name: "view_projection", Kind: gpucore.Mat4},
			{Name: "viewport", Kind: gpucore.Vec4},
			{Name: "view_pos", Kind: gpucore.Vec3},
			{Name: "sample_step", Kind: gpucore.Float},
			{Name: "max_segment_length", Kind: gpucore.Float},
			{Name: "total_segments", Kind: gpucore.Float},
		},
		Textures: []string{"vert0_tex", "vert1_tex", "face_normal0_tex", "face_normal1_tex"},
		Targets:  3,
	},
	{
		Name: ClipBufferSum,
		Uniforms: []gpucore.Uniform{
			{Name: "step_size", Kind: gpucore.Float},
			{Name: "total_segments", Kind: gpucore.Float},
		},
		Textures: []string{"last_pass_buf"},
		Targets:  1,
	},
	{
		Name:     SegmentAtlas,
		Uniforms: atlasUniforms(),
		Textures: []string{"depth_buffer", "clip_vert_0_buffer", "clip_vert_1_buffer", "segment_lengths", "offset_buffer"},
		Targets:  1,
		Scatter:  true,
	},
	{
		Name: SegmentAtlasPrio,
		Uniforms: append(atlasUniforms(),
			gpucore.Uniform{Name: "focus", Kind: gpucore.Vec4},
			gpucore.Uniform{Name: "transfer_focus", Kind: gpucore.Vec4},
		),
		Textures: []string{
			"priority_buffer", "clip_vert_0_buffer", "clip_vert_1_buffer", "segment_lengths",
			"offset_buffer", "path_start_end_ptrs", "visibility_buffer",
		},
		Targets: 1,
		Scatter: true,
	},
	{
		Name:     BilateralFilter,
		Textures: []string{"source_buffer"},
		Targets:  1,
	},
	{
		Name:     MedianFilter,
		Textures: []string{"source_buffer"},
		Targets:  1,
	},
	{
		Name:     SmoothAndThreshold,
		Uniforms: []gpucore.Uniform{{Name: "overshoot_offset", Kind: gpucore.Float}},
		Textures: []string{"source_buffer"},
		Targets:  1,
	},
}

// atlasUniforms are shared by both atlas rasterization programs.
func atlasUniforms() []gpucore.Uniform {
	return []gpucore.Uniform{
		{Name: "atlas_width", Kind: gpucore.Float},
		{Name: "total_segments", Kind: gpucore.Float},
		{Name: "depth_bias", Kind: gpucore.Float},
		{Name: "kernel_scale", Kind: gpucore.Vec2},
		{Name: "reference_scale", Kind: gpucore.Vec2},
	}
}

func init() {
	for _, l := range Layouts {
		gpucore.MustRegisterProgram(l)
	}
}

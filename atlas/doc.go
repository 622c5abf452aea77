// Package atlas lays out per-sample line visibility in a fixed-size 2D
// texture, the segment atlas.
//
// Every frame, SegmentAtlas.Draw runs a short pipeline of named programs on
// a gpucore.Adapter:
//
//  1. path vertex textures: world-space endpoints of every segment of the
//     scene's sorted path list, rebuilt only when the scene changes
//  2. clip_buffer: clip each segment to the view and count its samples
//  3. clip_buffer_sum: inclusive prefix sum of the counts, giving each
//     segment a contiguous run of atlas texels
//  4. segment_atlas: depth test every sample into the visibility atlas
//  5. segment_atlas_priority: optional priority test into the priority
//     atlas
//  6. optional filters that smooth an atlas along its rows
//
// The only readback is one texel per frame: the total sample count.
//
// Capacity problems degrade the frame and are logged as warnings. Device
// errors abort the frame and poison the atlas: every later call returns
// the same error.
package atlas

package atlas

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"
	"golang.org/x/image/bmp"

	"github.com/gogpu/dpix/gpucore"
)

// DumpNextFrame writes the intermediate buffers of the next successful
// frame to dir as BMP images.
func (a *SegmentAtlas) DumpNextFrame(dir string) {
	a.dumpDir = dir
}

// dump writes every pipeline buffer of the current frame.
func (a *SegmentAtlas) dump(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	buffers := []struct {
		name string
		id   gpucore.TextureID
	}{
		{"path_vert0", a.pathFB.ColorTexture(attVert0)},
		{"path_vert1", a.pathFB.ColorTexture(attVert1)},
		{"path_start_end", a.PathStartEndBuffer()},
		{"clip_vert0", a.ClipBuffer(0)},
		{"clip_vert1", a.ClipBuffer(1)},
		{"segment_lengths", a.SegmentLengths()},
		{"offsets", a.OffsetBuffer()},
		{"atlas_visibility", a.atlasFB[Visibility].ColorTexture(0)},
		{"atlas_priority", a.atlasFB[Priority].ColorTexture(0)},
	}
	for w, fb := range a.filteredFB {
		if fb != nil && a.filterState[w] == FilterCurrent {
			buffers = append(buffers, struct {
				name string
				id   gpucore.TextureID
			}{"atlas_" + Which(w).String() + "_filtered", fb.ColorTexture(0)})
		}
	}

	for _, b := range buffers {
		if b.id == gpucore.InvalidID {
			continue
		}
		t, err := a.adapter.ReadTexture(ctx, b.id)
		if err != nil {
			return fmt.Errorf("dump %s: %w", b.name, err)
		}
		if err := writeBMP(filepath.Join(dir, b.name+".bmp"), texelImage(t)); err != nil {
			return fmt.Errorf("dump %s: %w", b.name, err)
		}
	}
	gpucore.Logger().Info("atlas: dumped frame buffers", "dir", dir, "count", len(buffers))
	return nil
}

// texelImage maps RGB channels to 8 bits, each scaled by its largest
// magnitude in t. Row 0 of t is the bottom of the image.
func texelImage(t *gpucore.Texels) *image.NRGBA {
	var scale [3]float32
	for i := 0; i < len(t.Pix); i += 4 {
		for c := range scale {
			scale[c] = max(scale[c], math32.Abs(t.Pix[i+c]))
		}
	}
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := range t.Height {
		for x := range t.Width {
			v := t.At(x, y)
			var px [3]uint8
			for c := range px {
				if scale[c] > 0 {
					px[c] = uint8(math32.Abs(v[c]) / scale[c] * 255)
				}
			}
			img.SetNRGBA(x, t.Height-1-y, color.NRGBA{R: px[0], G: px[1], B: px[2], A: 255})
		}
	}
	return img
}

func writeBMP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

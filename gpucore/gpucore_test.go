package gpucore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// recordingAdapter keeps textures in memory and records draw calls.
type recordingAdapter struct {
	limits   Limits
	next     TextureID
	textures map[TextureID]*Texels
	calls    []*DrawCall
	created  int
	failDraw error
}

func newRecordingAdapter() *recordingAdapter {
	return &recordingAdapter{
		limits:   Limits{MaxTextureSize: 64, MaxColorAttachments: 4},
		textures: make(map[TextureID]*Texels),
	}
}

func (a *recordingAdapter) Name() string   { return "recording" }
func (a *recordingAdapter) Limits() Limits { return a.limits }

func (a *recordingAdapter) CreateTexture(desc *TextureDesc) (TextureID, error) {
	a.next++
	a.created++
	a.textures[a.next] = NewTexels(desc.Width, desc.Height)
	return a.next, nil
}

func (a *recordingAdapter) DestroyTexture(id TextureID) { delete(a.textures, id) }

func (a *recordingAdapter) WriteTexture(id TextureID, data []float32) error {
	t, ok := a.textures[id]
	if !ok {
		return ErrUnknownTexture
	}
	copy(t.Pix, data)
	return nil
}

func (a *recordingAdapter) ClearTexture(id TextureID, v [4]float32) error {
	t, ok := a.textures[id]
	if !ok {
		return ErrUnknownTexture
	}
	t.Fill(v)
	return nil
}

func (a *recordingAdapter) ReadTexture(_ context.Context, id TextureID) (*Texels, error) {
	t, ok := a.textures[id]
	if !ok {
		return nil, ErrUnknownTexture
	}
	return t, nil
}

func (a *recordingAdapter) ReadTexel(_ context.Context, id TextureID, x, y int) ([4]float32, error) {
	t, ok := a.textures[id]
	if !ok {
		return [4]float32{}, ErrUnknownTexture
	}
	return t.At(x, y), nil
}

func (a *recordingAdapter) Dispatch(call *DrawCall) error {
	if a.failDraw != nil {
		return a.failDraw
	}
	a.calls = append(a.calls, call)
	return nil
}

func (a *recordingAdapter) Destroy() {}

func init() {
	MustRegisterProgram(ProgramLayout{
		Name: "test_program",
		Uniforms: []Uniform{
			{Name: "scale", Kind: Float},
			{Name: "xform", Kind: Mat4},
			{Name: "color", Kind: Vec4},
		},
		Textures: []string{"src"},
		Targets:  2,
	})
}

func TestRegisterProgram_Errors(t *testing.T) {
	tests := []struct {
		name   string
		layout ProgramLayout
		want   string
	}{
		{"duplicate", ProgramLayout{Name: "test_program", Targets: 1}, "already registered"},
		{"no name", ProgramLayout{Targets: 1}, "without name"},
		{"no targets", ProgramLayout{Name: "p0"}, "at least one target"},
		{"scatter with two targets", ProgramLayout{Name: "p1", Targets: 2, Scatter: true}, "one target"},
		{"duplicate uniform", ProgramLayout{Name: "p2", Targets: 1, Uniforms: []Uniform{{"a", Float}, {"a", Vec4}}}, "duplicate uniform"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RegisterProgram(tt.layout)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("RegisterProgram() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestProgramLayout_Packing(t *testing.T) {
	l, ok := LookupProgram("test_program")
	if !ok {
		t.Fatal("test_program not registered")
	}
	if got := l.UniformSlots(); got != 6 {
		t.Errorf("UniformSlots() = %d, want 6", got)
	}
	for _, tt := range []struct {
		name string
		off  int
	}{{"scale", 0}, {"xform", 1}, {"color", 5}} {
		off, _, ok := l.UniformOffset(tt.name)
		if !ok || off != tt.off {
			t.Errorf("UniformOffset(%q) = %d, %v; want %d", tt.name, off, ok, tt.off)
		}
	}
	if l.TextureIndex("src") != 0 || l.TextureIndex("nope") != -1 {
		t.Error("TextureIndex mismatch")
	}
}

func TestProgram_Draw(t *testing.T) {
	a := newRecordingAdapter()
	fb := NewFramebuffer(a, "fb")
	if err := fb.Init(2, 4, 4); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer fb.Destroy()

	p, err := BindProgram(a, "test_program")
	if err != nil {
		t.Fatalf("BindProgram() error = %v", err)
	}
	xform := [16]float32{1, 2, 3, 4}
	p.SetUniform1f("scale", 2.5)
	p.SetUniformMatrix4fv("xform", xform)
	p.SetUniform4fv("color", [4]float32{0, 0, 1, 1})
	p.BindNamedTexture("src", fb.ColorTexture(0))

	fb.Bind()
	err = p.Draw(16)
	fb.Unbind()
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(a.calls) != 1 {
		t.Fatalf("got %d draw calls, want 1", len(a.calls))
	}
	call := a.calls[0]
	if call.Count != 16 || call.Width != 4 || call.Height != 4 {
		t.Errorf("call = count %d size %dx%d", call.Count, call.Width, call.Height)
	}
	if call.Float("scale") != 2.5 {
		t.Errorf("Float(scale) = %v, want 2.5", call.Float("scale"))
	}
	if call.Mat4("xform") != xform {
		t.Errorf("Mat4(xform) = %v", call.Mat4("xform"))
	}
	if call.Vec4("color") != [4]float32{0, 0, 1, 1} {
		t.Errorf("Vec4(color) = %v", call.Vec4("color"))
	}
	if call.Texture("src") != fb.ColorTexture(0) {
		t.Error("texture binding lost")
	}
	if len(call.Targets) != 2 {
		t.Errorf("targets = %d, want 2", len(call.Targets))
	}
}

func TestProgram_DrawErrors(t *testing.T) {
	a := newRecordingAdapter()
	fb := NewFramebuffer(a, "fb")
	if err := fb.Init(2, 4, 4); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer fb.Destroy()

	if _, err := BindProgram(a, "missing"); !errors.Is(err, ErrUnknownProgram) {
		t.Errorf("BindProgram(missing) error = %v, want ErrUnknownProgram", err)
	}

	p, _ := BindProgram(a, "test_program")
	p.BindNamedTexture("src", fb.ColorTexture(0))
	if err := p.Draw(1); !errors.Is(err, ErrNoFramebuffer) {
		t.Errorf("Draw() unbound error = %v, want ErrNoFramebuffer", err)
	}

	fb.Bind()
	defer fb.Unbind()

	fb.DrawBuffer(1)
	var de *DeviceError
	if err := p.Draw(1); !errors.As(err, &de) || de.Op != "draw" {
		t.Errorf("Draw() with one active buffer error = %v, want draw DeviceError", err)
	}
	fb.DrawToAllBuffers()

	bad, _ := BindProgram(a, "test_program")
	bad.SetUniform1f("nope", 1)
	bad.SetUniform4fv("scale", [4]float32{})
	if err := bad.Draw(1); err == nil || !strings.Contains(err.Error(), `no uniform "nope"`) {
		t.Errorf("Draw() error = %v, want unknown uniform", err)
	}

	unbound, _ := BindProgram(a, "test_program")
	if err := unbound.Draw(1); err == nil || !strings.Contains(err.Error(), "not bound") {
		t.Errorf("Draw() error = %v, want unbound texture", err)
	}

	a.failDraw = errors.New("boom")
	if err := p.Draw(1); !errors.As(err, &de) || de.Program != "test_program" {
		t.Errorf("Draw() error = %v, want DeviceError from adapter", err)
	}
}

func TestFramebuffer_InitReuse(t *testing.T) {
	a := newRecordingAdapter()
	fb := NewFramebuffer(a, "fb")
	defer fb.Destroy()

	if err := fb.Init(3, 8, 8); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	first := fb.ColorTexture(0)
	if err := fb.Init(3, 8, 8); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if fb.ColorTexture(0) != first || a.created != 3 {
		t.Error("Init with the same shape must keep the textures")
	}
	if err := fb.Init(3, 16, 8); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if fb.ColorTexture(0) == first || len(a.textures) != 3 {
		t.Errorf("resize should replace textures, live = %d", len(a.textures))
	}
}

func TestFramebuffer_Capacity(t *testing.T) {
	a := newRecordingAdapter()
	fb := NewFramebuffer(a, "fb")
	tests := []struct {
		name         string
		n, w, h      int
		wantCapacity bool
	}{
		{"too wide", 1, 65, 1, true},
		{"too tall", 1, 1, 65, true},
		{"too many attachments", 5, 4, 4, true},
		{"zero size", 1, 0, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fb.Init(tt.n, tt.w, tt.h)
			if err == nil {
				t.Fatal("Init() should fail")
			}
			if IsCapacity(err) != tt.wantCapacity {
				t.Errorf("IsCapacity(%v) = %v, want %v", err, IsCapacity(err), tt.wantCapacity)
			}
			if fb.Initialized() {
				t.Error("failed Init must not allocate")
			}
		})
	}
}

func TestFramebuffer_BindGuard(t *testing.T) {
	a := newRecordingAdapter()
	f1 := NewFramebuffer(a, "one")
	f2 := NewFramebuffer(a, "two")

	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		fn()
	}

	f1.Bind()
	if Bound() != f1 || !f1.IsBound() {
		t.Error("f1 should be bound")
	}
	mustPanic("nested bind", f2.Bind)
	mustPanic("rebind", f1.Bind)
	mustPanic("unbind other", f2.Unbind)
	f1.Unbind()
	mustPanic("double unbind", f1.Unbind)

	f2.Bind()
	f2.Destroy()
	if Bound() != nil {
		t.Error("Destroy should release the binding")
	}
}

func TestFramebuffer_ClearUploadRead(t *testing.T) {
	a := newRecordingAdapter()
	fb := NewFramebuffer(a, "fb")
	if err := fb.Init(2, 2, 2); err != nil {
		t.Fatal(err)
	}
	defer fb.Destroy()

	fb.DrawBuffer(1)
	if err := fb.Clear([4]float32{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	v, err := fb.ReadTexel(ctx, 1, 1, 1)
	if err != nil || v != [4]float32{1, 2, 3, 4} {
		t.Errorf("ReadTexel(1) = %v, %v", v, err)
	}
	v, _ = fb.ReadTexel(ctx, 0, 1, 1)
	if v != [4]float32{} {
		t.Errorf("inactive attachment was cleared: %v", v)
	}

	data := make([]float32, 16)
	data[4] = 7
	if err := fb.Upload(0, data); err != nil {
		t.Fatal(err)
	}
	img, err := fb.ReadTexture(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if img.At(1, 0)[0] != 7 {
		t.Errorf("uploaded texel = %v, want 7", img.At(1, 0))
	}
	if _, err := fb.ReadTexel(ctx, 5, 0, 0); err == nil {
		t.Error("ReadTexel of a missing attachment should fail")
	}
}

func TestDeviceError(t *testing.T) {
	base := errors.New("lost")
	err := deviceErr("draw", "clip_buffer", base)
	var de *DeviceError
	if !errors.As(err, &de) || !errors.Is(err, base) {
		t.Fatalf("deviceErr() = %v", err)
	}
	if got := err.Error(); got != "gpucore: draw clip_buffer: lost" {
		t.Errorf("Error() = %q", got)
	}
	if again := deviceErr("readback", "", err); again != err {
		t.Error("DeviceError must not be wrapped twice")
	}
	capErr := deviceErr("init", "", ErrCapacity)
	if !IsCapacity(capErr) || errors.As(capErr, &de) {
		t.Error("capacity errors stay capacity errors")
	}
	if deviceErr("x", "", nil) != nil {
		t.Error("nil stays nil")
	}
}

func TestTexels(t *testing.T) {
	img := NewTexels(3, 2)
	img.Set(2, 1, [4]float32{1, 2, 3, 4})
	img.Set(3, 0, [4]float32{9, 9, 9, 9})
	if img.At(2, 1) != [4]float32{1, 2, 3, 4} || img.Index(5) != img.At(2, 1) {
		t.Error("Set/At mismatch")
	}
	if img.At(-1, 0) != [4]float32{} || img.Index(6) != [4]float32{} {
		t.Error("out-of-range reads must be zero")
	}
	desc := &TextureDesc{Width: 3, Height: 2}
	if err := CheckTextureData(desc, img.Pix); err != nil {
		t.Errorf("CheckTextureData() = %v", err)
	}
	if err := CheckTextureData(desc, img.Pix[:4]); err == nil {
		t.Error("short data should fail")
	}
}

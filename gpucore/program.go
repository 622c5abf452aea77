package gpucore

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// UniformKind is the type of a program uniform.
type UniformKind uint8

// Uniform kinds. Every uniform occupies whole vec4 slots.
const (
	Float UniformKind = iota
	Vec2
	Vec3
	Vec4
	Mat4
)

func (k UniformKind) slots() int {
	if k == Mat4 {
		return 4
	}
	return 1
}

func (k UniformKind) components() int {
	switch k {
	case Float:
		return 1
	case Vec2:
		return 2
	case Vec3:
		return 3
	case Vec4:
		return 4
	default:
		return 16
	}
}

// Uniform declares one program uniform.
type Uniform struct {
	Name string
	Kind UniformKind
}

// ProgramLayout declares the interface of a named program: its uniforms
// (packed into vec4 slots in declaration order), its input textures (in
// binding order), and the number of draw buffers it writes.
type ProgramLayout struct {
	Name     string
	Uniforms []Uniform
	Textures []string

	// Targets is the number of draw buffers written per invocation.
	Targets int

	// Scatter programs write arbitrary texels of their single target
	// instead of texel i for invocation i.
	Scatter bool

	offsets []int
	slots   int
}

func (l *ProgramLayout) build() error {
	if l.Name == "" {
		return fmt.Errorf("gpucore: program without name")
	}
	if l.Targets < 1 {
		return fmt.Errorf("gpucore: program %s: needs at least one target", l.Name)
	}
	if l.Scatter && l.Targets != 1 {
		return fmt.Errorf("gpucore: program %s: scatter programs have one target", l.Name)
	}
	l.offsets = make([]int, len(l.Uniforms))
	l.slots = 0
	seen := make(map[string]bool)
	for i, u := range l.Uniforms {
		if seen[u.Name] {
			return fmt.Errorf("gpucore: program %s: duplicate uniform %q", l.Name, u.Name)
		}
		seen[u.Name] = true
		l.offsets[i] = l.slots
		l.slots += u.Kind.slots()
	}
	return nil
}

// UniformSlots returns the number of vec4 slots of packed uniform data.
func (l *ProgramLayout) UniformSlots() int {
	return l.slots
}

// UniformOffset returns the slot index of a uniform.
func (l *ProgramLayout) UniformOffset(name string) (int, UniformKind, bool) {
	for i, u := range l.Uniforms {
		if u.Name == name {
			return l.offsets[i], u.Kind, true
		}
	}
	return 0, 0, false
}

// TextureIndex returns the binding index of a named texture, or -1.
func (l *ProgramLayout) TextureIndex(name string) int {
	return slices.Index(l.Textures, name)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*ProgramLayout)
)

// RegisterProgram adds a program layout to the registry.
func RegisterProgram(l ProgramLayout) error {
	if err := l.build(); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[l.Name]; ok {
		return fmt.Errorf("gpucore: program %s already registered", l.Name)
	}
	registry[l.Name] = &l
	return nil
}

// MustRegisterProgram is like RegisterProgram but panics on error. It is
// intended for package initialization.
func MustRegisterProgram(l ProgramLayout) {
	if err := RegisterProgram(l); err != nil {
		panic(err)
	}
}

// LookupProgram returns a registered layout.
func LookupProgram(name string) (*ProgramLayout, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	l, ok := registry[name]
	return l, ok
}

// Programs returns the names of all registered programs, sorted.
func Programs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DrawCall is one program execution handed to an adapter.
type DrawCall struct {
	Layout *ProgramLayout

	// Uniforms holds UniformSlots()*4 floats.
	Uniforms []float32

	// Textures are the inputs in layout order.
	Textures []TextureID

	// Targets are the active draw buffers, all Width x Height.
	Targets       []TextureID
	Width, Height int

	// Count is the number of invocations.
	Count int
}

// Float returns a scalar uniform.
func (c *DrawCall) Float(name string) float32 {
	off, _, ok := c.Layout.UniformOffset(name)
	if !ok {
		return 0
	}
	return c.Uniforms[off*4]
}

// Vec4 returns the slot of a vector uniform; unused components are zero.
func (c *DrawCall) Vec4(name string) [4]float32 {
	var v [4]float32
	off, _, ok := c.Layout.UniformOffset(name)
	if ok {
		copy(v[:], c.Uniforms[off*4:off*4+4])
	}
	return v
}

// Mat4 returns a row-major matrix uniform.
func (c *DrawCall) Mat4(name string) [16]float32 {
	var m [16]float32
	off, _, ok := c.Layout.UniformOffset(name)
	if ok {
		copy(m[:], c.Uniforms[off*4:off*4+16])
	}
	return m
}

// Texture returns the input texture bound to name.
func (c *DrawCall) Texture(name string) TextureID {
	i := c.Layout.TextureIndex(name)
	if i < 0 || i >= len(c.Textures) {
		return InvalidID
	}
	return c.Textures[i]
}

// Program is a bound program: uniforms and textures set by name, then
// drawn into the currently bound framebuffer.
type Program struct {
	adapter  Adapter
	layout   *ProgramLayout
	uniforms []float32
	textures []TextureID
	err      error
}

// BindProgram prepares the named program for drawing on a.
func BindProgram(a Adapter, name string) (*Program, error) {
	l, ok := LookupProgram(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, name)
	}
	return &Program{
		adapter:  a,
		layout:   l,
		uniforms: make([]float32, l.slots*4),
		textures: make([]TextureID, len(l.Textures)),
	}, nil
}

// Name returns the program name.
func (p *Program) Name() string {
	return p.layout.Name
}

func (p *Program) set(name string, kind UniformKind, v []float32) {
	off, k, ok := p.layout.UniformOffset(name)
	if !ok {
		p.fail(fmt.Errorf("no uniform %q", name))
		return
	}
	if k != kind {
		p.fail(fmt.Errorf("uniform %q has %d components, set with %d", name, k.components(), kind.components()))
		return
	}
	copy(p.uniforms[off*4:], v)
}

func (p *Program) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// SetUniform1f sets a float uniform.
func (p *Program) SetUniform1f(name string, v float32) {
	p.set(name, Float, []float32{v})
}

// SetUniform2f sets a vec2 uniform.
func (p *Program) SetUniform2f(name string, x, y float32) {
	p.set(name, Vec2, []float32{x, y})
}

// SetUniform3fv sets a vec3 uniform.
func (p *Program) SetUniform3fv(name string, v [3]float32) {
	p.set(name, Vec3, v[:])
}

// SetUniform4fv sets a vec4 uniform.
func (p *Program) SetUniform4fv(name string, v [4]float32) {
	p.set(name, Vec4, v[:])
}

// SetUniformMatrix4fv sets a row-major mat4 uniform.
func (p *Program) SetUniformMatrix4fv(name string, m [16]float32) {
	p.set(name, Mat4, m[:])
}

// BindNamedTexture binds an input texture.
func (p *Program) BindNamedTexture(name string, id TextureID) {
	i := p.layout.TextureIndex(name)
	if i < 0 {
		p.fail(fmt.Errorf("no texture %q", name))
		return
	}
	p.textures[i] = id
}

// Draw runs count invocations into the active draw buffers of the bound
// framebuffer. Binding mistakes recorded by the setters are reported here.
func (p *Program) Draw(count int) error {
	if p.err != nil {
		return &DeviceError{Op: "bind", Program: p.layout.Name, Err: p.err}
	}
	fb := Bound()
	if fb == nil {
		return &DeviceError{Op: "draw", Program: p.layout.Name, Err: ErrNoFramebuffer}
	}
	targets := fb.activeTargets()
	if len(targets) != p.layout.Targets {
		return &DeviceError{
			Op:      "draw",
			Program: p.layout.Name,
			Err:     fmt.Errorf("program writes %d targets, framebuffer %s has %d active", p.layout.Targets, fb.label, len(targets)),
		}
	}
	for i, id := range p.textures {
		if id == InvalidID {
			return &DeviceError{Op: "draw", Program: p.layout.Name, Err: fmt.Errorf("texture %q not bound", p.layout.Textures[i])}
		}
	}
	if count <= 0 {
		return nil
	}
	call := &DrawCall{
		Layout:   p.layout,
		Uniforms: slices.Clone(p.uniforms),
		Textures: slices.Clone(p.textures),
		Targets:  targets,
		Width:    fb.width,
		Height:   fb.height,
		Count:    count,
	}
	Logger().Debug("gpucore: draw", "program", p.layout.Name, "count", count, "framebuffer", fb.label)
	return deviceErr("draw", p.layout.Name, p.adapter.Dispatch(call))
}

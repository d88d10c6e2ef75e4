package raster

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"

	"github.com/Faultbox/md2anim/internal/engine/pipeline"
	"github.com/Faultbox/md2anim/internal/engine/renderer"
	"github.com/Faultbox/md2anim/internal/engine/texture"
)

// Backend renders frames in memory. Output is rendered at Supersample times
// the requested size and downscaled by Image.
type Backend struct {
	width       int
	height      int
	supersample int
	background  color.NRGBA

	fb   *FrameBuffer
	view mgl32.Mat4
	proj mgl32.Mat4

	textures map[uint32]*image.NRGBA
	nextID   uint32
	frames   int
}

var _ renderer.FrameTarget = (*Backend)(nil)

// New creates a backend for a width x height image. supersample below 1 is
// treated as 1.
func New(width, height, supersample int) *Backend {
	b := &Backend{
		supersample: max(supersample, 1),
		background:  color.NRGBA{A: 255},
		view:        mgl32.Ident4(),
		textures:    make(map[uint32]*image.NRGBA),
		nextID:      1,
	}
	b.Resize(width, height)
	return b
}

// SetBackground sets the clear colour.
func (b *Backend) SetBackground(c color.NRGBA) {
	b.background = c
}

// Resize reallocates the frame buffer.
func (b *Backend) Resize(width, height int) {
	b.width, b.height = max(width, 1), max(height, 1)
	b.fb = NewFrameBuffer(b.width*b.supersample, b.height*b.supersample)
	b.proj = renderer.Projection(b.width, b.height)
}

// BeginFrame clears the buffers and sets the camera.
func (b *Backend) BeginFrame(view mgl32.Mat4) {
	b.view = view
	b.fb.Clear(b.background)
}

// EndFrame finishes the frame.
func (b *Backend) EndFrame() {
	b.frames++
}

// Frames returns the number of completed frames.
func (b *Backend) Frames() int {
	return b.frames
}

// Draw rasterizes one instance frame. Triangles with a vertex behind the
// camera are dropped, as are debug lines with an end outside the depth range.
func (b *Backend) Draw(model mgl32.Mat4, _ mgl32.Vec3, f *pipeline.Frame) {
	mvp := b.proj.Mul4(b.view).Mul4(model)
	tex := b.textures[f.Texture]
	w, h := b.fb.Width, b.fb.Height

	n := f.VertexCount()
	for base := 0; base+3 <= n; base += 3 {
		var tri [3]screenVertex
		visible := true
		for k := 0; k < 3; k++ {
			i := base + k
			pos := mgl32.Vec3{f.Positions[3*i], f.Positions[3*i+1], f.Positions[3*i+2]}
			x, y, z, ok := project(mvp.Mul4x1(pos.Vec4(1)), w, h)
			if !ok {
				visible = false
				break
			}
			tri[k] = screenVertex{
				x: x, y: y, z: z,
				color: mgl32.Vec3{f.Colors[3*i], f.Colors[3*i+1], f.Colors[3*i+2]},
				uv:    mgl32.Vec2{f.TexCoords[2*i], f.TexCoords[2*i+1]},
			}
		}
		if visible {
			rasterizeTriangle(b.fb, tri, tex)
		}
	}

	for _, l := range f.Lines {
		fx, fy, fz, ok1 := project(mvp.Mul4x1(l.From.Vec4(1)), w, h)
		tx, ty, tz, ok2 := project(mvp.Mul4x1(l.To.Vec4(1)), w, h)
		if !ok1 || !ok2 || !inDepth(fz) || !inDepth(tz) {
			continue
		}
		rasterizeLine(b.fb,
			screenVertex{x: fx, y: fy, z: fz, color: l.FromColor},
			screenVertex{x: tx, y: ty, z: tz, color: l.ToColor})
	}
}

func inDepth(z float32) bool {
	return z >= -1 && z <= 1
}

// LoadTexture decodes and filters a skin and keeps it in memory.
func (b *Backend) LoadTexture(path string, filter texture.Filter) (renderer.Texture, error) {
	img, err := texture.Load(path)
	if err != nil {
		return renderer.Texture{}, err
	}
	return b.AddTexture(texture.Apply(img, filter)), nil
}

// AddTexture registers an already decoded image.
func (b *Backend) AddTexture(img *image.NRGBA) renderer.Texture {
	id := b.nextID
	b.nextID++
	b.textures[id] = img
	return renderer.Texture{ID: id, Width: img.Rect.Dx(), Height: img.Rect.Dy()}
}

// SetTexture registers img under a caller-chosen id, replacing any texture
// already using it. Snapshots use it to mirror another backend's skin ids.
func (b *Backend) SetTexture(id uint32, img *image.NRGBA) {
	b.textures[id] = img
	if id >= b.nextID {
		b.nextID = id + 1
	}
}

// UnloadTexture forgets a texture. Unknown ids are ignored.
func (b *Backend) UnloadTexture(id uint32) {
	delete(b.textures, id)
}

// IsTexture reports whether id names a loaded texture.
func (b *Backend) IsTexture(id uint32) bool {
	_, ok := b.textures[id]
	return ok
}

// Image returns a copy of the last frame at the requested size.
func (b *Backend) Image() *image.NRGBA {
	src := b.fb.Image()
	dst := image.NewNRGBA(image.Rect(0, 0, b.width, b.height))
	if b.supersample == 1 {
		copy(dst.Pix, src.Pix)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// EncodeWebP writes the last frame as lossless WebP.
func (b *Backend) EncodeWebP(w io.Writer) error {
	if err := nativewebp.Encode(w, b.Image(), nil); err != nil {
		return fmt.Errorf("encoding webp: %w", err)
	}
	return nil
}

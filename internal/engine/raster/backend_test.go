package raster

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/md2anim/internal/engine/pipeline"
)

var lookForward = mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})

// quadFrame returns a square of half-size s at depth z facing the camera,
// with every vertex coloured c.
func quadFrame(s, z, c float32) *pipeline.Frame {
	corners := [][3]float32{{-s, -s, z}, {s, -s, z}, {s, s, z}, {-s, -s, z}, {s, s, z}, {-s, s, z}}
	f := &pipeline.Frame{}
	for _, p := range corners {
		f.Positions = append(f.Positions, p[0], p[1], p[2])
		f.Normals = append(f.Normals, 0, 0, 1)
		f.Colors = append(f.Colors, c, c, c)
		f.TexCoords = append(f.TexCoords, 0, 0)
	}
	return f
}

func centre(img *image.NRGBA) color.NRGBA {
	return img.NRGBAAt(img.Rect.Dx()/2, img.Rect.Dy()/2)
}

func TestBackend_DrawsTriangles(t *testing.T) {
	b := New(32, 32, 1)
	b.BeginFrame(lookForward)
	b.Draw(mgl32.Ident4(), mgl32.Vec3{}, quadFrame(10, -50, 1))
	b.EndFrame()

	img := b.Image()
	if got := centre(img); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("centre = %v, want white", got)
	}
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("corner = %v, want background", got)
	}
	if b.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", b.Frames())
	}
}

func TestBackend_DepthTest(t *testing.T) {
	near := quadFrame(5, -40, 0) // ambient only
	far := quadFrame(10, -60, 1)
	want := clamp255(255 * Ambient)

	for _, order := range [][]*pipeline.Frame{{near, far}, {far, near}} {
		b := New(32, 32, 1)
		b.BeginFrame(lookForward)
		for _, f := range order {
			b.Draw(mgl32.Ident4(), mgl32.Vec3{}, f)
		}
		if got := centre(b.Image()); got.R != want {
			t.Errorf("centre = %v, want near quad shade %d", got, want)
		}
	}
}

func TestBackend_BehindCameraDropped(t *testing.T) {
	b := New(16, 16, 1)
	b.BeginFrame(lookForward)
	b.Draw(mgl32.Ident4(), mgl32.Vec3{}, quadFrame(10, 50, 1))
	if got := centre(b.Image()); got.R != 0 {
		t.Errorf("centre = %v, want background", got)
	}
}

func TestBackend_ModelMatrix(t *testing.T) {
	b := New(32, 32, 1)
	b.BeginFrame(lookForward)
	b.Draw(mgl32.Translate3D(0, 0, -50), mgl32.Vec3{}, quadFrame(10, 0, 1))
	if got := centre(b.Image()); got.R != 255 {
		t.Errorf("centre = %v, want quad moved in front of camera", got)
	}
}

func TestBackend_Textures(t *testing.T) {
	b := New(32, 32, 2)
	red := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	red.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})

	tex := b.AddTexture(red)
	if !b.IsTexture(tex.ID) || tex.Width != 1 {
		t.Fatalf("texture %+v not registered", tex)
	}
	if b.IsTexture(0) {
		t.Error("id 0 should never be a texture")
	}

	f := quadFrame(10, -50, 1)
	f.Texture = tex.ID
	b.BeginFrame(lookForward)
	b.Draw(mgl32.Ident4(), mgl32.Vec3{}, f)
	if got := centre(b.Image()); got.R < 250 || got.G > 5 || got.B > 5 {
		t.Errorf("centre = %v, want red", got)
	}

	b.UnloadTexture(tex.ID)
	if b.IsTexture(tex.ID) {
		t.Error("texture still registered after unload")
	}
	if _, err := b.LoadTexture("missing.png", nil); err == nil {
		t.Error("expected error loading missing texture")
	}
}

func TestBackend_Lines(t *testing.T) {
	b := New(32, 32, 1)
	f := &pipeline.Frame{Lines: []pipeline.Line{{
		From: mgl32.Vec3{-10, 0, -50}, To: mgl32.Vec3{10, 0, -50},
		FromColor: mgl32.Vec3{0, 1, 0}, ToColor: mgl32.Vec3{0, 1, 0},
	}}}
	b.BeginFrame(lookForward)
	b.Draw(mgl32.Ident4(), mgl32.Vec3{}, f)

	img := b.Image()
	found := false
	for y := 14; y <= 17 && !found; y++ {
		if img.NRGBAAt(16, y).G == 255 {
			found = true
		}
	}
	if !found {
		t.Error("line not drawn through the centre")
	}
}

func TestBackend_LinesOutsideDepthRangeDropped(t *testing.T) {
	b := New(64, 64, 1)
	// The far end sits between the eye and the near plane.
	f := &pipeline.Frame{Lines: []pipeline.Line{{
		From: mgl32.Vec3{0, 0, -5}, To: mgl32.Vec3{1, 0, -2e-6},
		FromColor: mgl32.Vec3{1, 1, 1}, ToColor: mgl32.Vec3{1, 1, 1},
	}}}
	b.BeginFrame(mgl32.Ident4())
	b.Draw(mgl32.Ident4(), mgl32.Vec3{}, f)

	img := b.Image()
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			t.Fatalf("pixel %d drawn by a line crossing the near plane", i/4)
		}
	}
}

func TestRasterizeLine_ClipsToBuffer(t *testing.T) {
	fb := NewFrameBuffer(16, 16)
	white := mgl32.Vec3{1, 1, 1}
	// Unclipped this would step two million times.
	rasterizeLine(fb,
		screenVertex{x: -1e6, y: 8, z: 0, color: white},
		screenVertex{x: 1e6, y: 8, z: 0, color: white})

	img := fb.Image()
	for x := 0; x < 16; x++ {
		if img.NRGBAAt(x, 8).R != 255 {
			t.Errorf("pixel (%d, 8) not drawn", x)
		}
	}
}

func TestClipLine(t *testing.T) {
	v := func(x, y float32) screenVertex { return screenVertex{x: x, y: y} }
	tests := []struct {
		name   string
		a, b   screenVertex
		ok     bool
		ax, bx float32
	}{
		{"inside", v(2, 2), v(10, 10), true, 2, 10},
		{"crosses both sides", v(-10, 5), v(30, 5), true, 0, 16},
		{"left of buffer", v(-10, 5), v(-1, 5), false, 0, 0},
		{"below buffer", v(5, 20), v(6, 40), false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b, ok := clipLine(tt.a, tt.b, 16, 16)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (a.x != tt.ax || b.x != tt.bx) {
				t.Errorf("clipped x = %v..%v, want %v..%v", a.x, b.x, tt.ax, tt.bx)
			}
		})
	}

	// Depth and colour follow the clip.
	a, _, _ := clipLine(
		screenVertex{x: -8, y: 0, z: -1, color: mgl32.Vec3{0, 0, 0}},
		screenVertex{x: 8, y: 0, z: 1, color: mgl32.Vec3{1, 1, 1}}, 16, 16)
	if a.z != 0 || a.color != (mgl32.Vec3{0.5, 0.5, 0.5}) {
		t.Errorf("clipped start = z %v colour %v, want 0 and grey", a.z, a.color)
	}
}

func TestBackend_EncodeWebP(t *testing.T) {
	b := New(16, 16, 1)
	b.BeginFrame(lookForward)
	b.Draw(mgl32.Ident4(), mgl32.Vec3{}, quadFrame(10, -50, 1))

	var buf bytes.Buffer
	if err := b.EncodeWebP(&buf); err != nil {
		t.Fatalf("EncodeWebP: %v", err)
	}
	data := buf.Bytes()
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		t.Errorf("output is not a WebP container: % x", data[:min(len(data), 12)])
	}
}

func TestBackend_SetTexture(t *testing.T) {
	b := New(8, 8, 1)
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))

	b.SetTexture(7, img)
	if !b.IsTexture(7) {
		t.Fatal("texture 7 not registered")
	}
	if tex := b.AddTexture(img); tex.ID <= 7 {
		t.Errorf("AddTexture after SetTexture(7) returned id %d", tex.ID)
	}
}

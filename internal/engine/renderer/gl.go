package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/md2anim/internal/engine/pipeline"
	"github.com/Faultbox/md2anim/internal/engine/texture"
	"github.com/Faultbox/md2anim/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

// GL draws frames with the OpenGL 2.1 fixed-function pipeline and client-side
// vertex arrays.
type GL struct {
	config Config
	light  mgl32.Vec3 // world space, for the marker
}

var _ FrameTarget = (*GL)(nil)

// NewGL initializes OpenGL and sets up lighting and fog.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func NewGL(cfg Config) (*GL, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	r := &GL{config: cfg}
	r.setupState()
	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

func (r *GL) setupState() {
	gl.ClearColor(0, 0, 0, 1)
	gl.Enable(gl.LINE_SMOOTH)
	gl.Enable(gl.DEPTH_TEST)

	materialDiffuse := [4]float32{0.6, 0.6, 0.4, 1}
	materialSpecular := [4]float32{0.3, 0, 0.3, 1}
	materialAmbient := [4]float32{0.7, 0.7, 0.7, 1}
	lightDiffuse := [4]float32{1, 1, 1, 1}
	lightSpecular := [4]float32{0.5, 0.5, 0.5, 1}
	lightAmbient := [4]float32{0.8, 0.8, 0.2, 1}

	gl.Lightfv(gl.LIGHT0, gl.DIFFUSE, &lightDiffuse[0])
	gl.Lightfv(gl.LIGHT0, gl.SPECULAR, &lightSpecular[0])
	gl.Lightfv(gl.LIGHT0, gl.AMBIENT, &lightAmbient[0])

	gl.Enable(gl.COLOR_MATERIAL)
	gl.Materialfv(gl.FRONT, gl.DIFFUSE, &materialDiffuse[0])
	gl.Materialfv(gl.FRONT, gl.SPECULAR, &materialSpecular[0])
	gl.Materialfv(gl.FRONT, gl.AMBIENT, &materialAmbient[0])
	gl.Materialf(gl.FRONT, gl.SHININESS, 5)

	gl.ShadeModel(gl.SMOOTH)
	gl.Enable(gl.LIGHTING)
	gl.Enable(gl.LIGHT0)

	fog := [4]float32{0, 0, 0, 1}
	gl.Fogi(gl.FOG_MODE, gl.LINEAR)
	gl.Fogfv(gl.FOG_COLOR, &fog[0])
	gl.Fogf(gl.FOG_DENSITY, 0.01)
	gl.Fogf(gl.FOG_START, NearPlane)
	gl.Fogf(gl.FOG_END, FarPlane)
	gl.Hint(gl.FOG_HINT, gl.FASTEST)
	gl.Enable(gl.FOG)
}

// Resize updates the viewport and projection.
func (r *GL) Resize(width, height int) {
	if height <= 0 {
		height = 1
	}
	r.config.Width = width
	r.config.Height = height

	gl.Viewport(0, 0, int32(width), int32(height))
	gl.Hint(gl.PERSPECTIVE_CORRECTION_HINT, gl.NICEST)

	proj := Projection(width, height)
	gl.MatrixMode(gl.PROJECTION)
	gl.LoadMatrixf(&proj[0])
	gl.MatrixMode(gl.MODELVIEW)

	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// ReadPixels returns the back buffer as bottom-up RGBA rows.
func (r *GL) ReadPixels() (pixels []byte, width, height int) {
	width, height = r.config.Width, r.config.Height
	pixels = make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, width, height
}

// SetLight records the world light position drawn by EndFrame.
func (r *GL) SetLight(p mgl32.Vec3) {
	r.light = p
}

// BeginFrame clears the screen and loads the camera.
func (r *GL) BeginFrame(view mgl32.Mat4) {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadMatrixf(&view[0])
	gl.Enable(gl.LIGHTING)
	gl.Enable(gl.DEPTH_TEST)
}

// EndFrame draws the light marker.
func (r *GL) EndFrame() {
	const size = 10

	gl.PushAttrib(gl.ALL_ATTRIB_BITS)
	gl.Disable(gl.LIGHTING)
	gl.Disable(gl.TEXTURE_2D)
	gl.Color3f(1, 1, 1)
	gl.Begin(gl.LINES)
	for axis := 0; axis < 3; axis++ {
		var d mgl32.Vec3
		d[axis] = size
		a, b := r.light.Sub(d), r.light.Add(d)
		gl.Vertex3f(a[0], a[1], a[2])
		gl.Vertex3f(b[0], b[1], b[2])
	}
	gl.End()
	gl.PopAttrib()
}

// Draw renders one instance frame.
func (r *GL) Draw(model mgl32.Mat4, light mgl32.Vec3, f *pipeline.Frame) {
	gl.PushMatrix()
	gl.MultMatrixf(&model[0])

	lightPos := light.Vec4(1)
	gl.Lightfv(gl.LIGHT0, gl.POSITION, &lightPos[0])

	if len(f.Lines) > 0 {
		drawLines(f.Lines)
	}
	if f.VertexCount() > 0 {
		drawTriangles(f)
	}

	gl.PopMatrix()
}

func drawTriangles(f *pipeline.Frame) {
	gl.PushAttrib(gl.ALL_ATTRIB_BITS)

	gl.Enable(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, f.Texture)

	gl.EnableClientState(gl.TEXTURE_COORD_ARRAY)
	gl.EnableClientState(gl.COLOR_ARRAY)
	gl.EnableClientState(gl.NORMAL_ARRAY)
	gl.EnableClientState(gl.VERTEX_ARRAY)

	gl.TexCoordPointer(2, gl.FLOAT, 0, gl.Ptr(f.TexCoords))
	gl.ColorPointer(3, gl.FLOAT, 0, gl.Ptr(f.Colors))
	gl.NormalPointer(gl.FLOAT, 0, gl.Ptr(f.Normals))
	gl.VertexPointer(3, gl.FLOAT, 0, gl.Ptr(f.Positions))

	gl.DrawArrays(gl.TRIANGLES, 0, int32(f.VertexCount()))

	gl.DisableClientState(gl.VERTEX_ARRAY)
	gl.DisableClientState(gl.NORMAL_ARRAY)
	gl.DisableClientState(gl.COLOR_ARRAY)
	gl.DisableClientState(gl.TEXTURE_COORD_ARRAY)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.PopAttrib()
}

func drawLines(lines []pipeline.Line) {
	gl.PushAttrib(gl.ALL_ATTRIB_BITS)
	gl.Disable(gl.LIGHTING)
	gl.Disable(gl.TEXTURE_2D)
	gl.Enable(gl.LINE_SMOOTH)
	gl.LineWidth(3)

	gl.Begin(gl.LINES)
	for _, l := range lines {
		gl.Color3f(l.FromColor[0], l.FromColor[1], l.FromColor[2])
		gl.Vertex3f(l.From[0], l.From[1], l.From[2])
		gl.Color3f(l.ToColor[0], l.ToColor[1], l.ToColor[2])
		gl.Vertex3f(l.To[0], l.To[1], l.To[2])
	}
	gl.End()

	gl.PopAttrib()
}

// LoadTexture decodes, filters and uploads a skin.
func (r *GL) LoadTexture(path string, filter texture.Filter) (Texture, error) {
	img, err := texture.Load(path)
	if err != nil {
		return Texture{}, err
	}
	img = texture.Apply(img, filter)
	w, h := img.Rect.Dx(), img.Rect.Dy()

	var id uint32
	gl.GenTextures(1, &id)
	if id == 0 {
		return Texture{}, fmt.Errorf("glGenTextures failed for %s: error 0x%x", path, gl.GetError())
	}

	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &id)
		return Texture{}, fmt.Errorf("uploading %s: GL error 0x%x", path, code)
	}

	logger.Debug("texture loaded",
		zap.String("path", path),
		zap.Uint32("id", id),
		zap.Int("width", w),
		zap.Int("height", h),
	)
	return Texture{ID: id, Width: w, Height: h}, nil
}

// UnloadTexture deletes a texture. Unknown ids are ignored.
func (r *GL) UnloadTexture(id uint32) {
	if !r.IsTexture(id) {
		return
	}
	gl.DeleteTextures(1, &id)
}

// IsTexture reports whether id names a live texture.
func (r *GL) IsTexture(id uint32) bool {
	return id != 0 && gl.IsTexture(id)
}

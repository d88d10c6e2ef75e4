// Package renderer defines the graphics backend boundary and its OpenGL
// implementation.
package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/md2anim/internal/engine/pipeline"
	"github.com/Faultbox/md2anim/internal/engine/texture"
)

// Texture is an uploaded skin. ID 0 means no texture.
type Texture struct {
	ID     uint32
	Width  int
	Height int
}

// TextureLoader uploads and releases skins.
type TextureLoader interface {
	LoadTexture(path string, filter texture.Filter) (Texture, error)
	UnloadTexture(id uint32)
	IsTexture(id uint32) bool
}

// Backend draws pipeline frames. model places the frame in the world; light
// is the light position in model space.
type Backend interface {
	TextureLoader
	Draw(model mgl32.Mat4, light mgl32.Vec3, frame *pipeline.Frame)
}

// FrameTarget is a backend that renders whole frames from a camera.
type FrameTarget interface {
	Backend
	BeginFrame(view mgl32.Mat4)
	EndFrame()
	Resize(width, height int)
}

// Projection constants shared by all backends.
const (
	FieldOfView = 30.0 // degrees, vertical
	NearPlane   = 1.0
	FarPlane    = 1000.0
)

// Projection returns the perspective matrix for a viewport.
func Projection(width, height int) mgl32.Mat4 {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return mgl32.Perspective(mgl32.DegToRad(FieldOfView), aspect, NearPlane, FarPlane)
}

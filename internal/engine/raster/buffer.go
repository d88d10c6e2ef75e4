// Package raster is a headless software implementation of the graphics
// backend. It rasterizes pipeline frames into an NRGBA image with a z-buffer.
package raster

import (
	"image"
	"image/color"
	"math"
)

// FrameBuffer holds the rendering target as flat slices for cache locality.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // RGBA interleaved, len = W*H*4
	ZBuf   []float32 // NDC depth per pixel, smaller is nearer
}

// NewFrameBuffer allocates a frame buffer cleared to transparent black.
func NewFrameBuffer(w, h int) *FrameBuffer {
	fb := &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, w*h*4),
		ZBuf:   make([]float32, w*h),
	}
	fb.Clear(color.NRGBA{})
	return fb
}

// Clear fills the colour buffer with bg and resets depth to +Inf.
func (fb *FrameBuffer) Clear(bg color.NRGBA) {
	for i := 0; i < len(fb.Color); i += 4 {
		fb.Color[i] = bg.R
		fb.Color[i+1] = bg.G
		fb.Color[i+2] = bg.B
		fb.Color[i+3] = bg.A
	}
	inf := float32(math.Inf(1))
	for i := range fb.ZBuf {
		fb.ZBuf[i] = inf
	}
}

// Image wraps the colour buffer without copying.
func (fb *FrameBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    fb.Color,
		Stride: fb.Width * 4,
		Rect:   image.Rect(0, 0, fb.Width, fb.Height),
	}
}

// plot writes a fragment if it passes the depth test.
func (fb *FrameBuffer) plot(x, y int, z float32, r, g, b, a uint8) bool {
	if x < 0 || y < 0 || x >= fb.Width || y >= fb.Height {
		return false
	}
	i := y*fb.Width + x
	if z >= fb.ZBuf[i] {
		return false
	}
	fb.ZBuf[i] = z
	p := fb.Color[i*4 : i*4+4 : i*4+4]
	p[0], p[1], p[2], p[3] = r, g, b, a
	return true
}

func clamp255(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

package raster

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/md2anim/internal/engine/texture"
)

// Ambient is the minimum shade applied to vertex colours so unlit faces stay
// visible.
const Ambient = 0.2

// screenVertex is a vertex after projection and viewport mapping.
type screenVertex struct {
	x, y, z float32
	color   mgl32.Vec3
	uv      mgl32.Vec2
}

// project maps a clip-space position to the viewport. The boolean is false
// when the vertex is behind the near plane.
func project(clip mgl32.Vec4, w, h int) (x, y, z float32, ok bool) {
	if clip[3] <= 1e-6 {
		return 0, 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip[3])
	x = (ndc[0] + 1) * 0.5 * float32(w)
	y = (1 - ndc[1]) * 0.5 * float32(h)
	return x, y, ndc[2], true
}

func shade(c float32) float32 {
	if c < 0 {
		c = 0
	} else if c > 1 {
		c = 1
	}
	return Ambient + (1-Ambient)*c
}

// rasterizeTriangle fills a triangle with barycentric colour and texture
// interpolation. Texels with alpha below 8 are discarded. tex may be nil.
func rasterizeTriangle(fb *FrameBuffer, v [3]screenVertex, tex *image.NRGBA) {
	x0, y0 := v[0].x, v[0].y
	x1, y1 := v[1].x, v[1].y
	x2, y2 := v[2].x, v[2].y

	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1 / det

	minX := int(math.Floor(float64(min(x0, x1, x2))))
	maxX := int(math.Ceil(float64(max(x0, x1, x2))))
	minY := int(math.Floor(float64(min(y0, y1, y2))))
	maxY := int(math.Ceil(float64(max(y0, y1, y2))))
	minX = max(minX, 0)
	minY = max(minY, 0)
	maxX = min(maxX, fb.Width-1)
	maxY = min(maxY, fb.Height-1)
	if minX > maxX || minY > maxY {
		return
	}

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	for sy := minY; sy <= maxY; sy++ {
		py := float32(sy) + 0.5 - y2
		for sx := minX; sx <= maxX; sx++ {
			px := float32(sx) + 0.5 - x2
			w0 := (dy12*px + dx21*py) * invDet
			w1 := (dy20*px + dx02*py) * invDet
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*v[0].z + w1*v[1].z + w2*v[2].z
			if z < -1 || z > 1 {
				continue
			}

			c := v[0].color.Mul(w0).Add(v[1].color.Mul(w1)).Add(v[2].color.Mul(w2))
			r, g, b, a := float32(255), float32(255), float32(255), uint8(255)
			if tex != nil {
				uv := v[0].uv.Mul(w0).Add(v[1].uv.Mul(w1)).Add(v[2].uv.Mul(w2))
				t := texture.Sample(tex, uv[0], uv[1])
				if t.A < 8 {
					continue
				}
				r, g, b, a = float32(t.R), float32(t.G), float32(t.B), t.A
			}

			fb.plot(sx, sy, z,
				clamp255(r*shade(c[0])),
				clamp255(g*shade(c[1])),
				clamp255(b*shade(c[2])),
				a)
		}
	}
}

// clipLine clips ab to the rectangle [0,w]x[0,h], interpolating depth and
// colour. The boolean is false when nothing of the segment is inside.
func clipLine(a, b screenVertex, w, h int) (screenVertex, screenVertex, bool) {
	dx, dy := b.x-a.x, b.y-a.y
	t0, t1 := float32(0), float32(1)
	edges := [4][2]float32{
		{-dx, a.x},
		{dx, float32(w) - a.x},
		{-dy, a.y},
		{dy, float32(h) - a.y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			t0 = max(t0, r)
		} else {
			t1 = min(t1, r)
		}
		if t0 > t1 {
			return a, b, false
		}
	}
	return lerpVertex(a, b, t0), lerpVertex(a, b, t1), true
}

func lerpVertex(a, b screenVertex, t float32) screenVertex {
	return screenVertex{
		x:     a.x + (b.x-a.x)*t,
		y:     a.y + (b.y-a.y)*t,
		z:     a.z + (b.z-a.z)*t,
		color: a.color.Add(b.color.Sub(a.color).Mul(t)),
	}
}

// rasterizeLine draws a depth-tested line with interpolated colour. The
// segment is clipped to the frame buffer first, so the step count is bounded
// by its size.
func rasterizeLine(fb *FrameBuffer, a, b screenVertex) {
	a, b, ok := clipLine(a, b, fb.Width, fb.Height)
	if !ok {
		return
	}
	dx, dy := b.x-a.x, b.y-a.y
	steps := int(math.Ceil(math.Max(math.Abs(float64(dx)), math.Abs(float64(dy)))))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float32(i) / float32(steps)
		x := a.x + dx*t
		y := a.y + dy*t
		z := a.z + (b.z-a.z)*t
		c := a.color.Add(b.color.Sub(a.color).Mul(t))
		fb.plot(int(x), int(y), z, clamp255(c[0]*255), clamp255(c[1]*255), clamp255(c[2]*255), 255)
	}
}

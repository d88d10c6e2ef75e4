// Package pipeline turns a keyframe model pose into flat triangle buffers:
// vertex decompression, frame interpolation, cel-shading, optional debug
// overlays and recursive midpoint subdivision.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/md2anim/pkg/formats"
)

// ArrowLength is the length of debug overlay lines in model units.
const ArrowLength = 3

// Pipeline errors.
var (
	ErrFrameOutOfRange = errors.New("pipeline: frame index out of range")

	errVertexIndex   = errors.New("invalid vertex index")
	errTexCoordIndex = errors.New("invalid texture coordinate index")
	errNormalIndex   = errors.New("invalid normal index")
)

// Overlay colours.
var (
	black  = mgl32.Vec3{0, 0, 0}
	white  = mgl32.Vec3{1, 1, 1}
	violet = mgl32.Vec3{1, 0, 1}
	green  = mgl32.Vec3{0, 1, 0}

	// Rotates the view vector so its overlay line is visible from the camera.
	viewOverlayRotation = mgl32.HomogRotate3DY(mgl32.DegToRad(90))
)

// Line is a debug overlay segment with a colour at each end.
type Line struct {
	From, To           mgl32.Vec3
	FromColor, ToColor mgl32.Vec3
}

// Frame holds the buffers for one draw call. Positions, Normals and Colors
// hold xyz triples, TexCoords holds uv pairs, all with the same vertex count.
type Frame struct {
	Positions []float32
	Normals   []float32
	Colors    []float32
	TexCoords []float32
	Lines     []Line
	Texture   uint32

	Triangles int // source triangles submitted
	Skipped   int // source triangles dropped for bad indices
}

// VertexCount returns the number of vertices in the buffers.
func (f *Frame) VertexCount() int {
	return len(f.Positions) / 3
}

func (f *Frame) reset() {
	f.Positions = f.Positions[:0]
	f.Normals = f.Normals[:0]
	f.Colors = f.Colors[:0]
	f.TexCoords = f.TexCoords[:0]
	f.Lines = f.Lines[:0]
	f.Texture = 0
	f.Triangles = 0
	f.Skipped = 0
}

// Input is one instance's pose in model space.
type Input struct {
	Model         *formats.MD2
	Current       int     // absolute frame interpolated from
	Next          int     // absolute frame interpolated towards
	Interpolation float32 // fraction in [0, 1)
	Light         mgl32.Vec3
	View          mgl32.Vec3
	Texture       uint32
}

type corner struct {
	position mgl32.Vec3
	normal   mgl32.Vec3
	color    mgl32.Vec3
	uv       mgl32.Vec2
}

// Pipeline builds frames. The returned frame's buffers are reused by the next
// Build call, so a Pipeline must not be shared between goroutines.
type Pipeline struct {
	log   *zap.Logger
	frame Frame
}

// New creates a pipeline. A nil logger disables logging.
func New(log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{log: log}
}

// Build resolves every triangle of the input pose. Triangles with an out of
// range vertex, texture coordinate or normal index are skipped and counted.
func (p *Pipeline) Build(in Input, s Settings) (*Frame, error) {
	m := in.Model
	if in.Current < 0 || in.Current >= len(m.Frames) {
		return nil, fmt.Errorf("%w: current %d of %d", ErrFrameOutOfRange, in.Current, len(m.Frames))
	}
	if in.Next < 0 || in.Next >= len(m.Frames) {
		return nil, fmt.Errorf("%w: next %d of %d", ErrFrameOutOfRange, in.Next, len(m.Frames))
	}
	depth := s.Depth()
	if err := checkDepth(depth); err != nil {
		return nil, err
	}

	f := &p.frame
	f.reset()
	f.Texture = in.Texture

	cur := &m.Frames[in.Current]
	next := &m.Frames[in.Next]

	var corners [3]corner
	for ti := range m.Triangles {
		tri := &m.Triangles[ti]

		var err error
		for j := 0; j < 3 && err == nil; j++ {
			corners[j], err = p.resolve(m, in, s, cur, next, tri.VertexIDs[j], tri.TexCoordIDs[j])
		}
		if err != nil {
			f.Skipped++
			p.log.Debug("skipping triangle",
				zap.Int("triangle", ti),
				zap.Error(err))
			continue
		}

		if s.DebugVectors() {
			for j := range corners {
				p.overlay(f, in, s, &corners[j])
			}
		}

		d := depth
		if degenerate(corners[0].position, corners[1].position, corners[2].position) {
			d = 0
		}
		f.TexCoords, _ = Subdivide2(d, f.TexCoords, corners[0].uv, corners[1].uv, corners[2].uv)
		f.Colors, _ = Subdivide3(d, f.Colors, corners[0].color, corners[1].color, corners[2].color)
		f.Normals, _ = Subdivide3(d, f.Normals, corners[0].normal, corners[1].normal, corners[2].normal)
		f.Positions, _ = Subdivide3(d, f.Positions, corners[0].position, corners[1].position, corners[2].position)
		f.Triangles++
	}

	return f, nil
}

func (p *Pipeline) resolve(m *formats.MD2, in Input, s Settings, cur, next *formats.MD2Frame, vi, ti int16) (corner, error) {
	var c corner

	if int(vi) < 0 || int(vi) >= len(cur.Vertices) || int(vi) >= len(next.Vertices) {
		return c, fmt.Errorf("%w: %d", errVertexIndex, vi)
	}
	if int(ti) < 0 || int(ti) >= len(m.TexCoords) {
		return c, fmt.Errorf("%w: %d", errTexCoordIndex, ti)
	}

	tc := m.TexCoords[ti]
	w, h := m.SkinSize()
	if w > 0 && h > 0 {
		c.uv = mgl32.Vec2{float32(tc.S) / float32(w), float32(tc.T) / float32(h)}
	}

	n, ok := formats.NormalAt(int(cur.Vertices[vi].NormalIndex))
	if !ok {
		return c, fmt.Errorf("%w: %d", errNormalIndex, cur.Vertices[vi].NormalIndex)
	}
	c.normal = n
	c.position = cur.Position(int(vi))

	if s.Interpolation {
		nn, ok := formats.NormalAt(int(next.Vertices[vi].NormalIndex))
		if !ok {
			return c, fmt.Errorf("%w: %d", errNormalIndex, next.Vertices[vi].NormalIndex)
		}
		c.normal = lerp(c.normal, nn, in.Interpolation)
		c.position = lerp(c.position, next.Position(int(vi)), in.Interpolation)
	}

	c.color = white
	if s.CelShading {
		i := direction(c.position, in.Light).Dot(c.normal)
		c.color = mgl32.Vec3{i, i, i}
	}

	return c, nil
}

func (p *Pipeline) overlay(f *Frame, in Input, s Settings, c *corner) {
	if s.DebugLighting {
		f.Lines = append(f.Lines, Line{
			From: c.position, To: c.position.Add(direction(c.position, in.Light).Mul(ArrowLength)),
			FromColor: black, ToColor: white,
		})
	}
	if s.DebugView {
		v := viewOverlayRotation.Mul4x1(direction(c.position, in.View).Vec4(0)).Vec3()
		f.Lines = append(f.Lines, Line{
			From: c.position, To: c.position.Add(v.Mul(ArrowLength)),
			FromColor: black, ToColor: violet,
		})
	}
	if s.DebugNormals {
		f.Lines = append(f.Lines, Line{
			From: c.position, To: c.position.Add(c.normal.Mul(ArrowLength)),
			FromColor: black, ToColor: green,
		})
	}
}

func lerp(u, v mgl32.Vec3, t float32) mgl32.Vec3 {
	return u.Add(v.Sub(u).Mul(t))
}

// direction returns the unit vector from p towards target, or zero when they
// coincide.
func direction(p, target mgl32.Vec3) mgl32.Vec3 {
	d := target.Sub(p)
	if d.Len() == 0 {
		return mgl32.Vec3{}
	}
	return d.Normalize()
}

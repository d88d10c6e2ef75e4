package pipeline

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxSubdivisionDepth bounds recursion; depth d emits 3*4^d vertices.
const MaxSubdivisionDepth = 4

// ErrSubdivisionDepth is returned for a depth outside [0, MaxSubdivisionDepth].
var ErrSubdivisionDepth = errors.New("pipeline: subdivision depth out of range")

type vector[V any] interface {
	Add(V) V
	Mul(float32) V
}

// subdivide splits a triangle at its edge midpoints depth times and emits the
// resulting corners. The vertex order is identical for every attribute type,
// so parallel attribute buffers stay aligned.
func subdivide[V vector[V]](depth int, a, b, c V, emit func(V)) {
	if depth == 0 {
		emit(a)
		emit(b)
		emit(c)
		return
	}

	x := a.Add(b).Mul(0.5)
	y := a.Add(c).Mul(0.5)
	z := b.Add(c).Mul(0.5)

	subdivide(depth-1, a, x, y, emit)
	subdivide(depth-1, x, b, z, emit)
	subdivide(depth-1, y, z, c, emit)
	subdivide(depth-1, z, y, x, emit)
}

func checkDepth(depth int) error {
	if depth < 0 || depth > MaxSubdivisionDepth {
		return fmt.Errorf("%w: %d", ErrSubdivisionDepth, depth)
	}
	return nil
}

// Subdivide3 appends the subdivided triangle abc to dst as flat xyz triples.
func Subdivide3(depth int, dst []float32, a, b, c mgl32.Vec3) ([]float32, error) {
	if err := checkDepth(depth); err != nil {
		return dst, err
	}
	subdivide(depth, a, b, c, func(v mgl32.Vec3) { dst = append(dst, v[0], v[1], v[2]) })
	return dst, nil
}

// Subdivide2 appends the subdivided triangle abc to dst as flat uv pairs.
func Subdivide2(depth int, dst []float32, a, b, c mgl32.Vec2) ([]float32, error) {
	if err := checkDepth(depth); err != nil {
		return dst, err
	}
	subdivide(depth, a, b, c, func(v mgl32.Vec2) { dst = append(dst, v[0], v[1]) })
	return dst, nil
}

// degenerate reports whether abc has (near) zero area.
func degenerate(a, b, c mgl32.Vec3) bool {
	return b.Sub(a).Cross(c.Sub(a)).Len() < 1e-6
}

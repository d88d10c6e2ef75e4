// Package orientation holds an instance's world transform with a lazily
// recomputed composed matrix and inverse.
package orientation

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Orientation is a rotation and a translation. The composed matrix is
// translation * rotation.
type Orientation struct {
	rotation    mgl32.Mat4
	translation mgl32.Mat4

	matrix       mgl32.Mat4
	inverse      mgl32.Mat4
	matrixValid  bool
	inverseValid bool
}

// New returns an identity orientation.
func New() *Orientation {
	return &Orientation{
		rotation:    mgl32.Ident4(),
		translation: mgl32.Ident4(),
	}
}

// Rotate post-multiplies a rotation of degrees around axis.
func (o *Orientation) Rotate(degrees float32, axis mgl32.Vec3) {
	if axis.Len() == 0 {
		return
	}
	o.rotation = o.rotation.Mul4(mgl32.HomogRotate3D(mgl32.DegToRad(degrees), axis.Normalize()))
	o.invalidate()
}

// Translate post-multiplies a translation.
func (o *Orientation) Translate(dx, dy, dz float32) {
	o.translation = o.translation.Mul4(mgl32.Translate3D(dx, dy, dz))
	o.invalidate()
}

func (o *Orientation) invalidate() {
	o.matrixValid = false
	o.inverseValid = false
}

// Matrix returns translation * rotation, recomputing only after a change.
func (o *Orientation) Matrix() mgl32.Mat4 {
	if !o.matrixValid {
		o.matrix = o.translation.Mul4(o.rotation)
		o.matrixValid = true
	}
	return o.matrix
}

// Inverse returns the inverse of Matrix, recomputing only after a change.
func (o *Orientation) Inverse() mgl32.Mat4 {
	if !o.inverseValid {
		o.inverse = o.Matrix().Inv()
		o.inverseValid = true
	}
	return o.inverse
}

// ToLocal maps a world-space point into model space.
func (o *Orientation) ToLocal(p mgl32.Vec3) mgl32.Vec3 {
	return o.Inverse().Mul4x1(p.Vec4(1)).Vec3()
}

// Position returns the world-space origin of the model.
func (o *Orientation) Position() mgl32.Vec3 {
	return o.Matrix().Col(3).Vec3()
}

// Direction returns the model's local X axis in world space.
func (o *Orientation) Direction() mgl32.Vec3 {
	d := o.Matrix().Col(0).Vec3()
	if d.Len() == 0 {
		return d
	}
	return d.Normalize()
}

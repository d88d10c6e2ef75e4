package orientation

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

// near compares with an absolute tolerance; mgl32's ApproxEqualThreshold is
// relative and rejects tiny values against an exact zero.
func near(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < eps
}

func nearMat(a, b mgl32.Mat4) bool {
	for i := range a {
		if d := a[i] - b[i]; d > eps || d < -eps {
			return false
		}
	}
	return true
}

func TestOrientation_Identity(t *testing.T) {
	o := New()
	if !nearMat(o.Matrix(), mgl32.Ident4()) {
		t.Errorf("Matrix() = %v, want identity", o.Matrix())
	}
	p := mgl32.Vec3{1, 2, 3}
	if got := o.ToLocal(p); !near(got, p) {
		t.Errorf("ToLocal(%v) = %v", p, got)
	}
}

func TestOrientation_TranslationAfterRotation(t *testing.T) {
	o := New()
	o.Translate(0, 0, -250)
	o.Rotate(-120, mgl32.Vec3{0, 1, 0})

	if got := o.Position(); !near(got, mgl32.Vec3{0, 0, -250}) {
		t.Errorf("Position() = %v, want (0, 0, -250)", got)
	}

	// The light above the origin stays 100 units above in model space.
	local := o.ToLocal(mgl32.Vec3{0, 100, -250})
	if !near(local, mgl32.Vec3{0, 100, 0}) {
		t.Errorf("ToLocal(light) = %v, want (0, 100, 0)", local)
	}

	world := o.Matrix().Mul4x1(local.Vec4(1)).Vec3()
	if !near(world, mgl32.Vec3{0, 100, -250}) {
		t.Errorf("round trip = %v", world)
	}
}

func TestOrientation_RotateAccumulates(t *testing.T) {
	o := New()
	o.Rotate(45, mgl32.Vec3{0, 1, 0})
	o.Rotate(45, mgl32.Vec3{0, 2, 0})

	want := mgl32.HomogRotate3DY(mgl32.DegToRad(90))
	if !nearMat(o.Matrix(), want) {
		t.Errorf("Matrix() = %v, want %v", o.Matrix(), want)
	}
	if d := o.Direction(); !near(d, mgl32.Vec3{0, 0, -1}) {
		t.Errorf("Direction() = %v, want (0, 0, -1)", d)
	}
}

func TestOrientation_CachesUntilChanged(t *testing.T) {
	o := New()
	o.Translate(1, 2, 3)
	o.ToLocal(mgl32.Vec3{})
	if !o.matrixValid || !o.inverseValid {
		t.Fatal("ToLocal did not fill both caches")
	}

	// While valid, the cached values are returned as is.
	marker := mgl32.Scale3D(7, 7, 7)
	o.matrix, o.inverse = marker, marker
	if o.Matrix() != marker || o.Inverse() != marker {
		t.Fatal("cached matrices were recomputed")
	}

	o.Rotate(10, mgl32.Vec3{1, 0, 0})
	if o.matrixValid || o.inverseValid {
		t.Fatal("Rotate did not invalidate the caches")
	}
	if o.Inverse() == marker || o.Matrix() == marker {
		t.Error("stale matrices after Rotate")
	}

	id := o.Matrix().Mul4(o.Inverse())
	if !nearMat(id, mgl32.Ident4()) {
		t.Errorf("Matrix * Inverse = %v", id)
	}

	o.Translate(0, 1, 0)
	if o.matrixValid || o.inverseValid {
		t.Error("Translate did not invalidate the caches")
	}
}

func TestOrientation_ZeroAxisIgnored(t *testing.T) {
	o := New()
	o.Matrix()
	o.Rotate(30, mgl32.Vec3{})
	if !o.matrixValid || !nearMat(o.Matrix(), mgl32.Ident4()) {
		t.Error("zero axis rotation changed the orientation")
	}
}

func TestNear_ZeroComponents(t *testing.T) {
	if !near(mgl32.Vec3{3, 0, -1.3e-7}, mgl32.Vec3{3, 0, 0}) {
		t.Error("near rejected a tiny difference against zero")
	}
	if near(mgl32.Vec3{3, 0, 0.01}, mgl32.Vec3{3, 0, 0}) {
		t.Error("near accepted a real difference")
	}
}

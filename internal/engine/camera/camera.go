// Package camera provides the free-flying view camera.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Movement rates per 48Hz frame step.
const (
	MoveSpeed = 5.0 // units
	TurnSpeed = 2.5 // degrees
	StepRate  = 48.0
)

// Fly is a camera that yaws around a fixed up vector and moves along its own
// axes.
type Fly struct {
	position mgl32.Vec3
	up       mgl32.Vec3
	xAxis    mgl32.Vec3
	yAxis    mgl32.Vec3
	zAxis    mgl32.Vec3 // look direction
}

// NewFly creates a camera at position looking along forward with +Y up.
func NewFly(position, forward mgl32.Vec3) *Fly {
	c := &Fly{
		position: position,
		up:       mgl32.Vec3{0, 1, 0},
		zAxis:    mgl32.Vec3{0, 0, -1},
	}
	if forward.Len() > 0 {
		c.zAxis = forward.Normalize()
	}
	c.updateAxes()
	return c
}

func (c *Fly) updateAxes() {
	c.xAxis = c.zAxis.Cross(c.up)
	c.yAxis = c.zAxis.Cross(c.xAxis)
}

// Turn yaws the camera by degrees around the up vector. Positive turns left.
func (c *Fly) Turn(degrees float32) {
	r := mgl32.HomogRotate3D(mgl32.DegToRad(degrees), c.up)
	c.zAxis = r.Mul4x1(c.zAxis.Vec4(0)).Vec3()
	c.updateAxes()
}

// Move translates the camera along its x, y and z axes.
func (c *Fly) Move(dx, dy, dz float32) {
	c.position = c.position.
		Add(c.xAxis.Mul(dx)).
		Add(c.yAxis.Mul(dy)).
		Add(c.zAxis.Mul(dz))
}

// Controls are the held movement keys for one update.
type Controls struct {
	Forward, Back, Left, Right bool
	TurnLeft, TurnRight        bool
}

// Update applies held controls for elapsedMs milliseconds.
func (c *Fly) Update(ctl Controls, elapsedMs float32) {
	steps := StepRate * elapsedMs / 1000
	move := steps * MoveSpeed
	turn := steps * TurnSpeed

	if ctl.Forward {
		c.Move(0, 0, move)
	}
	if ctl.Back {
		c.Move(0, 0, -move)
	}
	if ctl.Left {
		c.Move(-move, 0, 0)
	}
	if ctl.Right {
		c.Move(move, 0, 0)
	}
	if ctl.TurnLeft {
		c.Turn(turn)
	}
	if ctl.TurnRight {
		c.Turn(-turn)
	}
}

// Position returns the camera position in world space.
func (c *Fly) Position() mgl32.Vec3 {
	return c.position
}

// Forward returns the look direction.
func (c *Fly) Forward() mgl32.Vec3 {
	return c.zAxis
}

// Axes returns the camera x, y and z axes.
func (c *Fly) Axes() (x, y, z mgl32.Vec3) {
	return c.xAxis, c.yAxis, c.zAxis
}

// View returns the view matrix.
func (c *Fly) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.position, c.position.Add(c.zAxis), c.up)
}

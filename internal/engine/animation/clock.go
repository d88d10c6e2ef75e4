// Package animation drives keyframe playback for model instances.
package animation

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Faultbox/md2anim/pkg/formats"
)

// StepsPerSecond is the playback rate in frame steps per second, shared by
// every action regardless of its frame count.
const StepsPerSecond = 48.0

// ErrUnknownAction is returned when an action has no descriptor record.
var ErrUnknownAction = errors.New("animation: action not defined for model")

// Actions resolves action identifiers to frame ranges.
type Actions interface {
	Action(t formats.ActionType) (formats.ActionInfo, bool)
}

// Option configures a Clock.
type Option func(*Clock)

// WithRand sets the source used to stagger IDLE start frames.
func WithRand(r *rand.Rand) Option {
	return func(c *Clock) { c.intN = r.IntN }
}

// Clock is the playback state of one instance: the current action, the frame
// relative to the action's range, and the fraction towards the next frame.
type Clock struct {
	actions Actions
	info    formats.ActionInfo
	frame   int
	interp  float32
	intN    func(int) int
}

// NewClock creates a clock and starts it in IDLE. It fails when the actions
// do not define IDLE.
func NewClock(actions Actions, opts ...Option) (*Clock, error) {
	c := &Clock{
		actions: actions,
		info:    formats.ActionInfo{Type: formats.ActionInvalid},
		intN:    rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.SetAction(formats.ActionIdle); err != nil {
		return nil, err
	}
	return c, nil
}

// SetAction switches to action a. Switching to the current action is a no-op.
// A new action restarts at frame 1; IDLE starts at a random frame so that
// idle instances do not move in lockstep.
func (c *Clock) SetAction(a formats.ActionType) error {
	if a == c.info.Type {
		return nil
	}
	info, ok := c.actions.Action(a)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, a)
	}

	c.info = info
	c.interp = 0
	if a == formats.ActionIdle {
		c.frame = c.intN(info.FrameCount)
	} else {
		c.frame = 1
	}
	return nil
}

// Advance moves playback forward by elapsedMs milliseconds. At most one frame
// step happens per call. Non-looping actions hold their final frame.
// Negative elapsed times are ignored so the fraction stays in [0, 1).
func (c *Clock) Advance(elapsedMs float32) {
	if !(elapsedMs > 0) {
		return
	}
	delta := StepsPerSecond * (elapsedMs / 1000) / float32(c.info.FrameCount)

	if c.interp+delta < 1 {
		c.interp += delta
		return
	}

	next := c.frame + 1
	switch {
	case next < c.info.FrameCount:
		c.frame = next
		c.interp = 0
	case c.info.Loop:
		c.frame = 0
		c.interp = 0
	}
}

// FrameIndex returns the absolute model frame at offset steps from the
// current frame, wrapped into the action's range.
func (c *Clock) FrameIndex(offset int) int {
	n := c.info.FrameCount
	idx := ((c.frame+offset)%n + n) % n
	return idx + c.info.FrameOffset
}

// CurrentFrameIndex returns the frame being interpolated from.
func (c *Clock) CurrentFrameIndex() int {
	return c.FrameIndex(-1)
}

// NextFrameIndex returns the frame being interpolated towards.
func (c *Clock) NextFrameIndex() int {
	return c.FrameIndex(0)
}

// Action returns the playing action.
func (c *Clock) Action() formats.ActionType {
	return c.info.Type
}

// Info returns the descriptor of the playing action.
func (c *Clock) Info() formats.ActionInfo {
	return c.info
}

// Frame returns the frame relative to the action's first frame.
func (c *Clock) Frame() int {
	return c.frame
}

// Interpolation returns the fraction towards the next frame, in [0, 1).
func (c *Clock) Interpolation() float32 {
	return c.interp
}

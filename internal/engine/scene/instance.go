package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/md2anim/internal/engine/animation"
	"github.com/Faultbox/md2anim/internal/engine/orientation"
	"github.com/Faultbox/md2anim/internal/engine/pipeline"
	"github.com/Faultbox/md2anim/internal/engine/renderer"
	"github.com/Faultbox/md2anim/pkg/formats"
)

// RenderContext is what an update needs from the outside world. Light and
// View are world-space positions.
type RenderContext struct {
	Backend  renderer.Backend
	Settings pipeline.Settings
	Light    mgl32.Vec3
	View     mgl32.Vec3
}

// Renderable is anything the update loop advances and draws.
type Renderable interface {
	Update(elapsedMs float32, rc *RenderContext) error
}

// Instance is one animated placement of a model.
type Instance struct {
	name        string
	model       *Model
	clock       *animation.Clock
	orientation *orientation.Orientation
	pipeline    *pipeline.Pipeline
	log         *zap.Logger

	triangles int
	skipped   int
}

var _ Renderable = (*Instance)(nil)

// InstanceOption configures an Instance.
type InstanceOption func(*instanceOptions)

type instanceOptions struct {
	log   *zap.Logger
	clock []animation.Option
}

// WithLogger sets the instance logger.
func WithLogger(log *zap.Logger) InstanceOption {
	return func(o *instanceOptions) { o.log = log }
}

// WithClockOptions passes options to the instance's animation clock.
func WithClockOptions(opts ...animation.Option) InstanceOption {
	return func(o *instanceOptions) { o.clock = append(o.clock, opts...) }
}

// NewInstance creates an instance of model playing IDLE at the origin.
func NewInstance(name string, model *Model, opts ...InstanceOption) (*Instance, error) {
	var o instanceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if model.Kind != KindMD2 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, model.Kind)
	}

	clock, err := animation.NewClock(model.Actions, o.clock...)
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w", name, err)
	}
	log := o.log.With(zap.String("instance", name))
	return &Instance{
		name:        name,
		model:       model,
		clock:       clock,
		orientation: orientation.New(),
		pipeline:    pipeline.New(log),
		log:         log,
	}, nil
}

// Name returns the registry key.
func (i *Instance) Name() string { return i.name }

// Model returns the shared model.
func (i *Instance) Model() *Model { return i.model }

// Clock returns the animation clock.
func (i *Instance) Clock() *animation.Clock { return i.clock }

// Orientation returns the world placement.
func (i *Instance) Orientation() *orientation.Orientation { return i.orientation }

// SetAction switches the playing action.
func (i *Instance) SetAction(a formats.ActionType) error {
	if err := i.clock.SetAction(a); err != nil {
		return fmt.Errorf("instance %s: %w", i.name, err)
	}
	i.log.Debug("action changed", zap.Stringer("action", a))
	return nil
}

// Update advances the clock by elapsedMs and draws the new pose.
func (i *Instance) Update(elapsedMs float32, rc *RenderContext) error {
	i.clock.Advance(elapsedMs)
	return i.Draw(rc)
}

// Draw builds the current pose and submits it to the backend without
// advancing the clock.
func (i *Instance) Draw(rc *RenderContext) error {
	light := i.orientation.ToLocal(rc.Light)
	frame, err := i.pipeline.Build(pipeline.Input{
		Model:         i.model.MD2,
		Current:       i.clock.CurrentFrameIndex(),
		Next:          i.clock.NextFrameIndex(),
		Interpolation: i.clock.Interpolation(),
		Light:         light,
		View:          i.orientation.ToLocal(rc.View),
		Texture:       i.model.Skin.ID,
	}, rc.Settings)
	if err != nil {
		return fmt.Errorf("instance %s: %w", i.name, err)
	}
	i.triangles, i.skipped = frame.Triangles, frame.Skipped

	rc.Backend.Draw(i.orientation.Matrix(), light, frame)
	return nil
}

// InstanceState is a snapshot of an instance for diagnostics.
type InstanceState struct {
	Name          string     `json:"name"`
	Model         string     `json:"model"`
	Action        string     `json:"action"`
	Loop          bool       `json:"loop"`
	Frame         int        `json:"frame"`
	Interpolation float32    `json:"interpolation"`
	Current       int        `json:"current"`
	Next          int        `json:"next"`
	CurrentName   string     `json:"currentName"`
	NextName      string     `json:"nextName"`
	Position      [3]float32 `json:"position"`
	Direction     [3]float32 `json:"direction"`
	Triangles     int        `json:"triangles"`
	Skipped       int        `json:"skipped"`
}

// State returns a snapshot of the playback state and placement.
func (i *Instance) State() InstanceState {
	cur, next := i.clock.CurrentFrameIndex(), i.clock.NextFrameIndex()
	return InstanceState{
		Name:          i.name,
		Model:         i.model.Name,
		Action:        i.clock.Action().String(),
		Loop:          i.clock.Info().Loop,
		Frame:         i.clock.Frame(),
		Interpolation: i.clock.Interpolation(),
		Current:       cur,
		Next:          next,
		CurrentName:   i.model.FrameName(cur),
		NextName:      i.model.FrameName(next),
		Position:      i.orientation.Position(),
		Direction:     i.orientation.Direction(),
		Triangles:     i.triangles,
		Skipped:       i.skipped,
	}
}

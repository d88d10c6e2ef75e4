// Package app ties the scene, camera, light, audio and backend together and
// drives them one tick at a time.
package app

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/md2anim/internal/config"
	"github.com/Faultbox/md2anim/internal/engine/animation"
	"github.com/Faultbox/md2anim/internal/engine/audio"
	"github.com/Faultbox/md2anim/internal/engine/camera"
	"github.com/Faultbox/md2anim/internal/engine/pipeline"
	"github.com/Faultbox/md2anim/internal/engine/renderer"
	"github.com/Faultbox/md2anim/internal/engine/scene"
	"github.com/Faultbox/md2anim/pkg/formats"
)

// ErrStopped is returned by Tick after Stop.
var ErrStopped = errors.New("app: stopped")

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Context) { c.log = log }
}

// WithAudio attaches an audio manager. Without one, action sounds and music
// are skipped.
func WithAudio(a *audio.Manager) Option {
	return func(c *Context) { c.audio = a }
}

// WithRand seeds instance clocks from r.
func WithRand(r *rand.Rand) Option {
	return func(c *Context) { c.rng = r }
}

// Context is the application state passed explicitly to the loop, the
// inspection server and the commands. Its methods are safe for concurrent
// use.
type Context struct {
	mu sync.Mutex

	cfg      *config.Config
	backend  renderer.FrameTarget
	settings pipeline.Settings
	registry *scene.Registry
	models   map[string]*scene.Model // by descriptor path
	camera   *camera.Fly
	light    mgl32.Vec3
	audio    *audio.Manager
	sounds   map[formats.ActionType]int
	rng      *rand.Rand
	log      *zap.Logger

	running atomic.Bool
	ticks   uint64
}

// New creates a context from configuration. The scene is empty until
// BuildScene.
func New(cfg *config.Config, backend renderer.FrameTarget, opts ...Option) *Context {
	c := &Context{
		cfg:      cfg,
		backend:  backend,
		settings: settingsFromConfig(cfg.Render),
		registry: scene.NewRegistry(),
		models:   make(map[string]*scene.Model),
		camera:   camera.NewFly(mgl32.Vec3(cfg.Camera.Position), mgl32.Vec3(cfg.Camera.Forward)),
		light:    mgl32.Vec3(cfg.Light.Position),
		sounds:   make(map[formats.ActionType]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.running.Store(true)
	return c
}

func settingsFromConfig(r config.RenderConfig) pipeline.Settings {
	return pipeline.Settings{
		Interpolation: r.Interpolation,
		Subdivision:   r.Subdivision,
		CelShading:    r.CelShading,
		DebugLighting: r.DebugLighting,
		DebugView:     r.DebugView,
		DebugNormals:  r.DebugNormals,
	}
}

// Running reports whether the loop should continue.
func (c *Context) Running() bool {
	return c.running.Load()
}

// Stop ends the loop. Tick stops between instances.
func (c *Context) Stop() {
	if c.running.CompareAndSwap(true, false) {
		c.log.Info("stopping")
	}
}

// Tick advances and draws every instance in insertion order.
func (c *Context) Tick(elapsedMs float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Running() {
		return ErrStopped
	}

	c.backend.BeginFrame(c.camera.View())
	rc := c.renderContext()

	var err error
	c.registry.Each(func(inst *scene.Instance) bool {
		if !c.Running() {
			return false
		}
		err = inst.Update(elapsedMs, rc)
		return err == nil
	})
	c.backend.EndFrame()
	c.ticks++

	if err != nil {
		return fmt.Errorf("tick %d: %w", c.ticks, err)
	}
	return nil
}

func (c *Context) renderContext() *scene.RenderContext {
	return &scene.RenderContext{
		Backend:  c.backend,
		Settings: c.settings,
		Light:    c.light,
		View:     c.camera.Position(),
	}
}

// Ticks returns the number of completed ticks.
func (c *Context) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// MoveCamera applies held camera controls for elapsedMs.
func (c *Context) MoveCamera(ctl camera.Controls, elapsedMs float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.camera.Update(ctl, elapsedMs)
}

// CameraPosition returns the camera position.
func (c *Context) CameraPosition() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.camera.Position()
}

// Light returns the world light position.
func (c *Context) Light() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.light
}

// SetLight moves the world light.
func (c *Context) SetLight(p mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.light = p
}

// Settings returns the current pipeline toggles.
func (c *Context) Settings() pipeline.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings changes pipeline toggles with fn.
func (c *Context) UpdateSettings(fn func(*pipeline.Settings)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.settings)
	c.log.Debug("settings changed", zap.Any("settings", c.settings))
}

// SetAction switches one instance and plays the action's sound.
func (c *Context) SetAction(name string, action formats.ActionType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.registry.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", scene.ErrUnknownInstance, name)
	}
	if err := inst.SetAction(action); err != nil {
		return err
	}
	c.playActionSound(action)
	return nil
}

// SetActionAll switches every instance that defines action. Instances without
// it keep playing and are reported in the returned error.
func (c *Context) SetActionAll(action formats.ActionType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	switched := 0
	c.registry.Each(func(inst *scene.Instance) bool {
		if err := inst.SetAction(action); err != nil {
			errs = append(errs, err)
		} else {
			switched++
		}
		return true
	})
	if switched > 0 {
		c.playActionSound(action)
	}
	return errors.Join(errs...)
}

func (c *Context) playActionSound(action formats.ActionType) {
	id, ok := c.sounds[action]
	if !ok || c.audio == nil || !c.audio.IsInitialized() {
		return
	}
	if err := c.audio.PlaySound(id); err != nil {
		c.log.Warn("failed to play action sound", zap.Stringer("action", action), zap.Error(err))
	}
}

// States returns a snapshot of every instance in insertion order.
func (c *Context) States() []scene.InstanceState {
	c.mu.Lock()
	defer c.mu.Unlock()

	states := make([]scene.InstanceState, 0, c.registry.Len())
	c.registry.Each(func(inst *scene.Instance) bool {
		states = append(states, inst.State())
		return true
	})
	return states
}

// State returns one instance's snapshot.
func (c *Context) State(name string) (scene.InstanceState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.registry.Get(name)
	if !ok {
		return scene.InstanceState{}, fmt.Errorf("%w: %s", scene.ErrUnknownInstance, name)
	}
	return inst.State(), nil
}

// Models returns the loaded models in first-use order. Models are read-only.
func (c *Context) Models() []*scene.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Models()
}

// Model returns a loaded model by name.
func (c *Context) Model(name string) (*scene.Model, bool) {
	for _, m := range c.Models() {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Close releases every model's textures and clears the scene.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range c.models {
		m.Close()
	}
	c.models = make(map[string]*scene.Model)
	c.registry = scene.NewRegistry()
}

func (c *Context) clockOptions() []animation.Option {
	if c.rng == nil {
		return nil
	}
	return []animation.Option{animation.WithRand(c.rng)}
}

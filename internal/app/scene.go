package app

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/md2anim/internal/config"
	"github.com/Faultbox/md2anim/internal/engine/scene"
	"github.com/Faultbox/md2anim/internal/engine/texture"
	"github.com/Faultbox/md2anim/pkg/formats"
)

// BuildScene loads every configured descriptor once and places the
// configured instances. A failure leaves the scene as it was before the call.
func (c *Context) BuildScene() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	loaded := make(map[string]*scene.Model)
	var added []*scene.Instance
	fail := func(err error) error {
		for _, inst := range added {
			c.registry.Remove(inst.Name())
		}
		for _, m := range loaded {
			m.Close()
		}
		return err
	}

	for _, ic := range c.cfg.Scene.Instances {
		m, err := c.model(ic.Descriptor, loaded)
		if err != nil {
			return fail(err)
		}
		inst, err := c.newInstance(ic, m)
		if err != nil {
			return fail(err)
		}
		if err := c.registry.Add(inst); err != nil {
			return fail(err)
		}
		added = append(added, inst)
	}

	for path, m := range loaded {
		c.models[path] = m
	}
	c.log.Info("scene built",
		zap.Int("instances", c.registry.Len()),
		zap.Int("models", len(c.models)))
	return nil
}

// model returns the cached model for a descriptor, loading it on first use.
func (c *Context) model(descriptor string, loaded map[string]*scene.Model) (*scene.Model, error) {
	if m, ok := c.models[descriptor]; ok {
		return m, nil
	}
	if m, ok := loaded[descriptor]; ok {
		return m, nil
	}

	m, err := scene.LoadModel(descriptor, c.backend, texture.Toon)
	if err != nil {
		return nil, err
	}
	loaded[descriptor] = m
	c.log.Info("model loaded",
		zap.String("model", m.Name),
		zap.String("descriptor", descriptor),
		zap.Int("frames", m.NumFrames()),
		zap.Int("triangles", len(m.MD2.Triangles)),
		zap.Stringers("actions", m.Actions.Types()))
	return m, nil
}

func (c *Context) newInstance(ic config.InstanceConfig, m *scene.Model) (*scene.Instance, error) {
	inst, err := scene.NewInstance(ic.Name, m,
		scene.WithLogger(c.log.Named("scene")),
		scene.WithClockOptions(c.clockOptions()...))
	if err != nil {
		return nil, err
	}

	o := inst.Orientation()
	o.Translate(ic.Translate[0], ic.Translate[1], ic.Translate[2])
	if ic.Rotate.Degrees != 0 {
		o.Rotate(ic.Rotate.Degrees, mgl32.Vec3(ic.Rotate.Axis))
	}

	if ic.Action != "" {
		action := formats.ParseActionType(ic.Action)
		if err := inst.SetAction(action); err != nil {
			return nil, fmt.Errorf("initial action %s: %w", ic.Action, err)
		}
	}
	return inst, nil
}

// LoadAudio applies configured volumes, loads action sounds and starts the
// music track. Missing files are logged and skipped.
func (c *Context) LoadAudio() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.audio == nil || !c.cfg.Audio.Enabled {
		return
	}
	ac := c.cfg.Audio
	master := float64(ac.MasterVolume)
	if ac.Muted {
		master = 0
	}
	c.audio.SetMasterVolume(master)
	c.audio.SetMusicVolume(float64(ac.MusicVolume))
	c.audio.SetSFXVolume(float64(ac.SFXVolume))

	for name, path := range ac.Sounds {
		id, err := c.audio.LoadSound(path)
		if err != nil {
			c.log.Warn("failed to load sound", zap.String("action", name), zap.Error(err))
			continue
		}
		c.sounds[formats.ParseActionType(name)] = id
	}

	if ac.Music == "" {
		return
	}
	id, err := c.audio.LoadMusic(ac.Music)
	if err != nil {
		c.log.Warn("failed to load music", zap.Error(err))
		return
	}
	if err := c.audio.PlayMusic(id, ac.LoopMusic); err != nil {
		c.log.Warn("failed to play music", zap.Error(err))
	}
}

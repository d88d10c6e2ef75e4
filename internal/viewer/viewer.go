// Package viewer implements the interactive window loop around an
// app.Context.
package viewer

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/md2anim/internal/app"
	"github.com/Faultbox/md2anim/internal/config"
	"github.com/Faultbox/md2anim/internal/engine/audio"
	"github.com/Faultbox/md2anim/internal/engine/input"
	"github.com/Faultbox/md2anim/internal/engine/pipeline"
	"github.com/Faultbox/md2anim/internal/engine/renderer"
	"github.com/Faultbox/md2anim/internal/engine/screenshot"
	"github.com/Faultbox/md2anim/internal/engine/window"
)

// Title is the window title.
const Title = "md2anim"

// Viewer owns the window, GL backend, input and audio for one app.Context.
type Viewer struct {
	cfg      *config.Config
	log      *zap.Logger
	window   *window.Window
	renderer *renderer.GL
	input    *input.Input
	audio    *audio.Manager
	app      *app.Context
	shots    *screenshot.Capture
	capture  bool // screenshot requested for the next frame
}

// New opens the window and GL context, then builds the scene.
func New(cfg *config.Config, log *zap.Logger) (*Viewer, error) {
	log.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
	)

	v := &Viewer{cfg: cfg, log: log}

	var err error
	v.window, err = window.New(window.Config{
		Title:      Title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
		Logger:     log.Named("window"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Renderer AFTER window, since the OpenGL context must exist
	v.renderer, err = renderer.NewGL(renderer.Config{
		Width:  cfg.Graphics.Width,
		Height: cfg.Graphics.Height,
	})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.input = input.New()
	v.shots = screenshot.New(cfg.Snapshot.Dir, "md2anim")

	opts := []app.Option{app.WithLogger(log.Named("app"))}
	if cfg.Audio.Enabled {
		v.audio = audio.New()
		if err := v.audio.Init(); err != nil {
			log.Warn("audio disabled", zap.Error(err))
			v.audio = nil
		} else {
			opts = append(opts, app.WithAudio(v.audio))
		}
	}

	v.app = app.New(cfg, v.renderer, opts...)
	if err := v.app.BuildScene(); err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to build scene: %w", err)
	}
	v.app.LoadAudio()
	v.renderer.SetLight(v.app.Light())

	log.Info("viewer initialized successfully")
	return v, nil
}

// App returns the application context, for the inspection server.
func (v *Viewer) App() *app.Context {
	return v.app
}

// Run drives the loop until quit or Stop.
func (v *Viewer) Run() error {
	last := window.Ticks()
	frameCount := 0
	fpsTimer := last

	var frameBudget time.Duration
	if v.cfg.Graphics.FPSLimit > 0 {
		frameBudget = time.Second / time.Duration(v.cfg.Graphics.FPSLimit)
	}

	v.log.Info("starting main loop")

	for v.app.Running() {
		start := time.Now()
		now := window.Ticks()
		elapsed := float32(now - last)
		last = now

		if v.input.Update() {
			v.app.Stop()
			break
		}
		v.handleInput()

		v.app.MoveCamera(v.input.Controls(), elapsed)
		if err := v.app.Tick(elapsed); err != nil {
			if !v.app.Running() {
				break
			}
			return fmt.Errorf("tick: %w", err)
		}
		if v.capture {
			v.capture = false
			if path, err := v.screenshot(); err != nil {
				v.log.Warn("screenshot failed", zap.Error(err))
			} else {
				v.log.Info("screenshot saved", zap.String("path", path))
			}
		}
		v.window.SwapBuffers()

		frameCount++
		if now-fpsTimer >= 1000 {
			v.log.Debug("fps", zap.Int("count", frameCount), zap.Float32("elapsedMs", elapsed))
			frameCount = 0
			fpsTimer = now
		}

		if frameBudget > 0 {
			if d := frameBudget - time.Since(start); d > 0 {
				time.Sleep(d)
			}
		}
	}

	return nil
}

func (v *Viewer) handleInput() {
	for _, e := range v.input.Events() {
		if e.Type == input.EventWindowResize {
			v.renderer.Resize(e.Width, e.Height)
		}
	}

	for _, cmd := range v.input.Commands() {
		switch cmd.Kind {
		case input.CommandScreenshot:
			v.capture = true
		case input.CommandToggleMusic:
			if v.audio != nil {
				v.log.Debug("music toggled", zap.Bool("playing", v.audio.ToggleMusic()))
			}
		case input.CommandSetAction:
			if err := v.app.SetActionAll(cmd.Action); err != nil {
				v.log.Debug("action not defined for every instance", zap.Error(err))
			}
		default:
			v.app.UpdateSettings(func(s *pipeline.Settings) { toggle(s, cmd.Kind) })
		}
	}
}

// screenshot saves the back buffer before it is swapped.
func (v *Viewer) screenshot() (string, error) {
	pixels, w, h := v.renderer.ReadPixels()
	img, err := screenshot.FromPixels(pixels, w, h)
	if err != nil {
		return "", err
	}
	return v.shots.Save(img)
}

func toggle(s *pipeline.Settings, kind input.CommandKind) {
	switch kind {
	case input.CommandToggleInterpolation:
		s.Interpolation = !s.Interpolation
	case input.CommandToggleSubdivision:
		s.Subdivision = !s.Subdivision
	case input.CommandToggleCelShading:
		s.CelShading = !s.CelShading
	case input.CommandToggleDebugLighting:
		s.DebugLighting = !s.DebugLighting
	case input.CommandToggleDebugView:
		s.DebugView = !s.DebugView
	case input.CommandToggleDebugNormals:
		s.DebugNormals = !s.DebugNormals
	}
}

// Close releases the scene, audio, renderer and window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.app != nil {
		v.app.Close()
	}
	if v.audio != nil {
		v.audio.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}

// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/md2anim/internal/logger"
	"github.com/Faultbox/md2anim/pkg/formats"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Render   RenderConfig   `yaml:"render"`
	Light    LightConfig    `yaml:"light"`
	Camera   CameraConfig   `yaml:"camera"`
	Audio    AudioConfig    `yaml:"audio"`
	Scene    SceneConfig    `yaml:"scene"`
	Inspect  InspectConfig  `yaml:"inspect"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"`
}

// RenderConfig holds the pipeline toggles at startup.
type RenderConfig struct {
	Interpolation bool `yaml:"interpolation"`
	Subdivision   bool `yaml:"subdivision"`
	CelShading    bool `yaml:"cel_shading"`
	DebugLighting bool `yaml:"debug_lighting"`
	DebugView     bool `yaml:"debug_view"`
	DebugNormals  bool `yaml:"debug_normals"`
}

// LightConfig holds the world light.
type LightConfig struct {
	Position [3]float32 `yaml:"position"`
}

// CameraConfig holds the initial camera placement.
type CameraConfig struct {
	Position [3]float32 `yaml:"position"`
	Forward  [3]float32 `yaml:"forward"`
}

// AudioConfig holds audio settings. Sounds maps action names to WAV files
// played when an instance switches to that action.
type AudioConfig struct {
	Enabled      bool              `yaml:"enabled"`
	MasterVolume float32           `yaml:"master_volume"`
	MusicVolume  float32           `yaml:"music_volume"`
	SFXVolume    float32           `yaml:"sfx_volume"`
	Muted        bool              `yaml:"muted"`
	Music        string            `yaml:"music"`
	LoopMusic    bool              `yaml:"loop_music"`
	Sounds       map[string]string `yaml:"sounds"`
}

// SceneConfig lists the instances to create.
type SceneConfig struct {
	Instances []InstanceConfig `yaml:"instances"`
}

// InstanceConfig places one instance of a descriptor.
type InstanceConfig struct {
	Name       string       `yaml:"name"`
	Descriptor string       `yaml:"descriptor"`
	Action     string       `yaml:"action"`
	Translate  [3]float32   `yaml:"translate"`
	Rotate     RotateConfig `yaml:"rotate"`
}

// RotateConfig is a rotation in degrees around an axis.
type RotateConfig struct {
	Degrees float32    `yaml:"degrees"`
	Axis    [3]float32 `yaml:"axis"`
}

// InspectConfig holds the inspection server settings.
type InspectConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// SnapshotConfig sizes software-rendered snapshots. Dir is where the viewer
// writes window screenshots.
type SnapshotConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Supersample int    `yaml:"supersample"`
	Dir         string `yaml:"dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the stock two-model scene.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      800,
			Height:     600,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
		},
		Render: RenderConfig{
			Interpolation: true,
			Subdivision:   true,
			CelShading:    true,
		},
		Light: LightConfig{
			Position: [3]float32{0, 100, 0},
		},
		Camera: CameraConfig{
			Forward: [3]float32{0, 0, -1},
		},
		Audio: AudioConfig{
			Enabled:      true,
			MasterVolume: 0.8,
			MusicVolume:  0.7,
			SFXVolume:    0.8,
			LoopMusic:    true,
		},
		Scene: SceneConfig{
			Instances: []InstanceConfig{
				{
					Name:       "knight",
					Descriptor: "data/knight.act",
					Action:     "DEAD",
					Translate:  [3]float32{0, 0, -250},
					Rotate:     RotateConfig{Degrees: -120, Axis: [3]float32{0, 1, 0}},
				},
				{
					Name:       "orgo",
					Descriptor: "data/orgo.act",
					Action:     "WAVE",
					Translate:  [3]float32{-100, 0, -250},
				},
			},
		},
		Inspect: InspectConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8086",
		},
		Snapshot: SnapshotConfig{
			Width:       320,
			Height:      240,
			Supersample: 2,
			Dir:         "screenshots",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks values the viewer cannot start with.
func (c *Config) Validate() error {
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		return fmt.Errorf("%w: graphics size %dx%d", ErrInvalid, c.Graphics.Width, c.Graphics.Height)
	}
	if c.Snapshot.Width <= 0 || c.Snapshot.Height <= 0 || c.Snapshot.Supersample < 1 {
		return fmt.Errorf("%w: snapshot %dx%d x%d", ErrInvalid,
			c.Snapshot.Width, c.Snapshot.Height, c.Snapshot.Supersample)
	}
	if !logger.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Logging.Level)
	}
	for name, v := range map[string]float32{
		"master_volume": c.Audio.MasterVolume,
		"music_volume":  c.Audio.MusicVolume,
		"sfx_volume":    c.Audio.SFXVolume,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s %v outside [0, 1]", ErrInvalid, name, v)
		}
	}
	for action := range c.Audio.Sounds {
		if formats.ParseActionType(action) == formats.ActionInvalid {
			return fmt.Errorf("%w: sound for unknown action %q", ErrInvalid, action)
		}
	}

	seen := make(map[string]bool)
	for i, inst := range c.Scene.Instances {
		if inst.Name == "" || inst.Descriptor == "" {
			return fmt.Errorf("%w: instance %d needs a name and a descriptor", ErrInvalid, i)
		}
		if seen[inst.Name] {
			return fmt.Errorf("%w: duplicate instance %q", ErrInvalid, inst.Name)
		}
		seen[inst.Name] = true
		if inst.Action != "" && formats.ParseActionType(inst.Action) == formats.ActionInvalid {
			return fmt.Errorf("%w: instance %q action %q", ErrInvalid, inst.Name, inst.Action)
		}
	}
	return nil
}

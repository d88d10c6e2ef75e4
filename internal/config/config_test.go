package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Graphics.Width != 800 || cfg.Graphics.Height != 600 {
		t.Errorf("expected 800x600, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
	}
	if cfg.Graphics.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}

	r := cfg.Render
	if !r.Interpolation || !r.Subdivision || !r.CelShading {
		t.Errorf("expected interpolation, subdivision and cel-shading on, got %+v", r)
	}
	if r.DebugLighting || r.DebugView || r.DebugNormals {
		t.Errorf("expected debug overlays off, got %+v", r)
	}

	if cfg.Light.Position != [3]float32{0, 100, 0} {
		t.Errorf("expected light at (0, 100, 0), got %v", cfg.Light.Position)
	}

	if len(cfg.Scene.Instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(cfg.Scene.Instances))
	}
	knight := cfg.Scene.Instances[0]
	if knight.Name != "knight" || knight.Action != "DEAD" || knight.Rotate.Degrees != -120 {
		t.Errorf("unexpected knight instance %+v", knight)
	}
	if knight.Translate != [3]float32{0, 0, -250} {
		t.Errorf("unexpected knight translate %v", knight.Translate)
	}
	if orgo := cfg.Scene.Instances[1]; orgo.Name != "orgo" || orgo.Action != "WAVE" {
		t.Errorf("unexpected orgo instance %+v", orgo)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
graphics:
  width: 1920
  height: 1080
  fullscreen: true
  vsync: false

render:
  interpolation: false
  cel_shading: false
  debug_normals: true

light:
  position: [10, 20, 30]

audio:
  master_volume: 0.5
  music: music/theme.wav
  sounds:
    DEAD: sfx/death.wav

scene:
  instances:
    - name: soldier
      descriptor: models/soldier.act
      action: RUN
      translate: [1, 2, 3]

inspect:
  enabled: true
  addr: ":9000"

logging:
  level: "debug"
  log_file: "viewer.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Graphics.Width != 1920 || !cfg.Graphics.Fullscreen || cfg.Graphics.VSync {
		t.Errorf("unexpected graphics %+v", cfg.Graphics)
	}
	if cfg.Render.Interpolation || cfg.Render.CelShading || !cfg.Render.Subdivision || !cfg.Render.DebugNormals {
		t.Errorf("unexpected render %+v", cfg.Render)
	}
	if cfg.Light.Position != [3]float32{10, 20, 30} {
		t.Errorf("unexpected light %v", cfg.Light.Position)
	}
	if cfg.Audio.MasterVolume != 0.5 {
		t.Errorf("expected master volume 0.5, got %f", cfg.Audio.MasterVolume)
	}

	if got, want := cfg.Audio.Music, filepath.Join(tmpDir, "music", "theme.wav"); got != want {
		t.Errorf("music = %s, want %s", got, want)
	}
	if got, want := cfg.Audio.Sounds["DEAD"], filepath.Join(tmpDir, "sfx", "death.wav"); got != want {
		t.Errorf("DEAD sound = %s, want %s", got, want)
	}

	if len(cfg.Scene.Instances) != 1 {
		t.Fatalf("expected file instances to replace defaults, got %d", len(cfg.Scene.Instances))
	}
	inst := cfg.Scene.Instances[0]
	if inst.Name != "soldier" || inst.Action != "RUN" || inst.Translate != [3]float32{1, 2, 3} {
		t.Errorf("unexpected instance %+v", inst)
	}
	if want := filepath.Join(tmpDir, "models", "soldier.act"); inst.Descriptor != want {
		t.Errorf("descriptor = %s, want %s", inst.Descriptor, want)
	}

	if !cfg.Inspect.Enabled || cfg.Inspect.Addr != ":9000" {
		t.Errorf("unexpected inspect %+v", cfg.Inspect)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "viewer.log" {
		t.Errorf("unexpected logging %+v", cfg.Logging)
	}
}

func TestLoadFromFile_KeepsDefaultPaths(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("graphics:\n  width: 640\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if got := cfg.Scene.Instances[0].Descriptor; got != "data/knight.act" {
		t.Errorf("default descriptor rebased to %s", got)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
graphics:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero width", func(c *Config) { c.Graphics.Width = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"volume above one", func(c *Config) { c.Audio.SFXVolume = 1.5 }},
		{"sound for unknown action", func(c *Config) { c.Audio.Sounds = map[string]string{"DANCE": "x.wav"} }},
		{"unnamed instance", func(c *Config) { c.Scene.Instances[0].Name = "" }},
		{"duplicate instance", func(c *Config) { c.Scene.Instances[1].Name = "knight" }},
		{"unknown action", func(c *Config) { c.Scene.Instances[0].Action = "FLY" }},
		{"no supersample", func(c *Config) { c.Snapshot.Supersample = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// Nothing in the working directory; the user config dir may still have
	// one, so only check the local file is found once created.
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("graphics:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path != "./config.yaml" {
		t.Errorf("expected ./config.yaml, got %q", path)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "fullscreen flag",
			setup: func() { *flagFullscreen = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Graphics.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() { *flagFullscreen = false },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Graphics.Width != 2560 || cfg.Graphics.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
		{
			name:  "inspect flag",
			setup: func() { *flagInspect = ":7070" },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Inspect.Enabled || cfg.Inspect.Addr != ":7070" {
					t.Errorf("unexpected inspect %+v", cfg.Inspect)
				}
			},
			teardown: func() { *flagInspect = "" },
		},
		{
			name:  "act flag",
			setup: func() { *flagAction = "run" },
			verify: func(t *testing.T, cfg *Config) {
				for _, inst := range cfg.Scene.Instances {
					if inst.Action != "RUN" {
						t.Errorf("instance %s action = %s, want RUN", inst.Name, inst.Action)
					}
				}
			},
			teardown: func() { *flagAction = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
graphics:
  width: 1600
  height: 900
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Graphics.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Graphics.Width)
	}
	if cfg.Graphics.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Graphics.Height)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load() = %v, want ErrInvalid", err)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Graphics.Width = 1024

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Graphics.Width != 1024 {
		t.Errorf("expected width 1024 after reload, got %d", loaded.Graphics.Width)
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "md2anim")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "md2anim")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "md2anim")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "md2anim")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	before := cfg.assetPaths()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	cfg.resolvePaths(filepath.Dir(path), before)
	return nil
}

// assetPaths returns every asset path in the config.
func (c *Config) assetPaths() map[string]bool {
	paths := map[string]bool{c.Audio.Music: true}
	for _, p := range c.Audio.Sounds {
		paths[p] = true
	}
	for _, inst := range c.Scene.Instances {
		paths[inst.Descriptor] = true
	}
	return paths
}

// resolvePaths makes relative asset paths read from a config file relative to
// the file's directory. Paths in keep were already set and are left alone.
func (c *Config) resolvePaths(dir string, keep map[string]bool) {
	rel := func(p string) string {
		if p == "" || keep[p] || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Audio.Music = rel(c.Audio.Music)
	for action, p := range c.Audio.Sounds {
		c.Audio.Sounds[action] = rel(p)
	}
	for i := range c.Scene.Instances {
		c.Scene.Instances[i].Descriptor = rel(c.Scene.Instances[i].Descriptor)
	}
}

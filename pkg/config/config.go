// Package config loads layermesh settings from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/chazu/layermesh/pkg/mesh"
	"github.com/chazu/layermesh/pkg/toolpath"
	"gopkg.in/yaml.v3"
)

// Config is the top-level settings file.
type Config struct {
	// Palette overrides line type colors: name -> [r, g, b] or [r, g, b, a].
	Palette     map[string][]float32 `yaml:"palette"`
	Export      Export               `yaml:"export"`
	EvalTimeout time.Duration        `yaml:"eval_timeout"`
}

// Export controls what the CLI writes.
type Export struct {
	Compress bool `yaml:"compress"`
	Jumps    bool `yaml:"jumps"`
	Combined bool `yaml:"combined"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Export:      Export{Jumps: true},
		EvalTimeout: 5 * time.Second,
	}
}

// Load reads a YAML file on top of Default and validates it.
func Load(path string) (Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("config: %s: %w", path, err)
	}
	if _, err := c.ColorMap(); err != nil {
		return c, fmt.Errorf("config: %s: %w", path, err)
	}
	if c.EvalTimeout < 0 {
		return c, fmt.Errorf("config: %s: eval_timeout must not be negative", path)
	}
	return c, nil
}

// ColorMap returns the default palette with the configured overrides applied.
func (c Config) ColorMap() (toolpath.ColorMap, error) {
	m := toolpath.DefaultColorMap()
	for name, rgba := range c.Palette {
		lt, err := toolpath.ParseLineType(name)
		if err != nil {
			return nil, fmt.Errorf("palette: %w", err)
		}
		col, err := toColor(rgba)
		if err != nil {
			return nil, fmt.Errorf("palette: %s: %w", name, err)
		}
		m[lt] = col
	}
	return m, nil
}

func toColor(v []float32) (mesh.Color, error) {
	if len(v) != 3 && len(v) != 4 {
		return mesh.Color{}, fmt.Errorf("want 3 or 4 components, got %d", len(v))
	}
	for _, c := range v {
		if c < 0 || c > 1 {
			return mesh.Color{}, fmt.Errorf("component %g outside [0, 1]", c)
		}
	}
	col := mesh.Color{R: v[0], G: v[1], B: v[2], A: 1}
	if len(v) == 4 {
		col.A = v[3]
	}
	return col, nil
}

package ai

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LevelConfig is the activation probability per strategy name for one
// difficulty level. A strategy absent from the map never activates.
type LevelConfig struct {
	Level      int                `yaml:"level"`
	Activation map[string]float64 `yaml:"activation"`
}

type Config struct {
	Levels []LevelConfig `yaml:"levels"`
}

// DefaultConfig is the shipped 9-level activation table. The numbers are
// product-tuned: low levels overlook most tactics, high levels see almost
// everything.
func DefaultConfig() Config {
	return Config{Levels: []LevelConfig{
		{Level: 1, Activation: map[string]float64{
			"capture": 0.30, "defend": 0.15, "attack": 0.10, "connect": 0.10,
			"territory_line": 0.20, "self_atari": 0.25, "low_line": 0.20, "settled_poke": 0.10,
		}},
		{Level: 2, Activation: map[string]float64{
			"capture": 0.40, "defend": 0.25, "attack": 0.18, "connect": 0.18,
			"territory_line": 0.30, "self_atari": 0.35, "low_line": 0.30, "settled_poke": 0.15,
		}},
		{Level: 3, Activation: map[string]float64{
			"capture": 0.50, "defend": 0.35, "attack": 0.28, "connect": 0.26,
			"territory_line": 0.40, "self_atari": 0.45, "low_line": 0.40, "settled_poke": 0.22,
		}},
		{Level: 4, Activation: map[string]float64{
			"capture": 0.60, "defend": 0.45, "attack": 0.38, "connect": 0.35,
			"territory_line": 0.50, "self_atari": 0.55, "low_line": 0.50, "settled_poke": 0.30,
		}},
		{Level: 5, Activation: map[string]float64{
			"capture": 0.70, "defend": 0.55, "attack": 0.48, "connect": 0.45,
			"territory_line": 0.60, "self_atari": 0.65, "low_line": 0.60, "settled_poke": 0.40,
		}},
		{Level: 6, Activation: map[string]float64{
			"capture": 0.78, "defend": 0.65, "attack": 0.58, "connect": 0.55,
			"territory_line": 0.70, "self_atari": 0.75, "low_line": 0.70, "settled_poke": 0.50,
		}},
		{Level: 7, Activation: map[string]float64{
			"capture": 0.86, "defend": 0.75, "attack": 0.68, "connect": 0.65,
			"territory_line": 0.80, "self_atari": 0.85, "low_line": 0.80, "settled_poke": 0.62,
		}},
		{Level: 8, Activation: map[string]float64{
			"capture": 0.93, "defend": 0.85, "attack": 0.80, "connect": 0.78,
			"territory_line": 0.90, "self_atari": 0.92, "low_line": 0.90, "settled_poke": 0.75,
		}},
		{Level: 9, Activation: map[string]float64{
			"capture": 1.00, "defend": 0.95, "attack": 0.92, "connect": 0.90,
			"territory_line": 1.00, "self_atari": 1.00, "low_line": 1.00, "settled_poke": 0.88,
		}},
	}}
}

// LoadConfig reads an activation table override from a YAML file.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read ai config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse ai config: %w", err)
	}
	if len(cfg.Levels) == 0 {
		return Config{}, fmt.Errorf("ai config %q has no levels", path)
	}
	return cfg, nil
}

// level resolves n to the closest configured level at or below it,
// clamping below the table to its first entry.
func (c Config) level(n int) LevelConfig {
	if len(c.Levels) == 0 {
		return LevelConfig{}
	}
	best := c.Levels[0]
	for _, lv := range c.Levels {
		if lv.Level <= n && lv.Level > best.Level {
			best = lv
		}
	}
	return best
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Vec is a 2D vector as written in config files.
type Vec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Material is a named elasticity/friction preset for shapes.
type Material struct {
	Elasticity float64 `yaml:"elasticity"`
	Friction   float64 `yaml:"friction"`
}

// Space holds the tunables applied when a physics space is created.
type Space struct {
	Gravity    Vec     `yaml:"gravity"`
	Iterations uint    `yaml:"iterations"`
	Damping    float64 `yaml:"damping"`

	// IdleSpeedThreshold is the speed under which a body counts as idle.
	// Zero derives it from gravity and the step size.
	IdleSpeedThreshold float64 `yaml:"idle_speed_threshold"`
	// SleepTimeThreshold is how long a body must stay idle before it is put
	// to sleep. Zero disables idle sleeping.
	SleepTimeThreshold float64 `yaml:"sleep_time_threshold"`

	Materials map[string]Material `yaml:"materials"`
}

// Default returns the settings used when no config file is given.
func Default() Space {
	return Space{
		Gravity:    Vec{X: 0, Y: -100},
		Iterations: 10,
		Damping:    1,
		Materials: map[string]Material{
			"default": {Elasticity: 0, Friction: 0.7},
		},
	}
}

// Material looks up a preset by name.
func (s Space) Material(name string) (Material, bool) {
	m, ok := s.Materials[name]
	return m, ok
}

// SleepEnabled reports whether idle bodies should be put to sleep.
func (s Space) SleepEnabled() bool {
	return s.SleepTimeThreshold > 0 && !math.IsInf(s.SleepTimeThreshold, 1)
}

// Validate rejects settings the kernel cannot run with.
func (s Space) Validate() error {
	if s.Iterations == 0 {
		return errors.New("config: iterations must be non-zero")
	}
	if s.Damping <= 0 || s.Damping > 1 {
		return fmt.Errorf("config: damping %v out of range (0, 1]", s.Damping)
	}
	if s.IdleSpeedThreshold < 0 {
		return fmt.Errorf("config: idle_speed_threshold %v must not be negative", s.IdleSpeedThreshold)
	}
	if s.SleepTimeThreshold < 0 {
		return fmt.Errorf("config: sleep_time_threshold %v must not be negative", s.SleepTimeThreshold)
	}
	for name, m := range s.Materials {
		if m.Elasticity < 0 || m.Friction < 0 {
			return fmt.Errorf("config: material %q has a negative coefficient", name)
		}
	}
	return nil
}

// Decode reads YAML from r on top of Default(), so omitted keys keep their
// defaults.
func Decode(r io.Reader) (Space, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Space{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Space{}, err
	}
	return cfg, nil
}

// Load reads and decodes the config file at path.
func Load(path string) (Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Space{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Space{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

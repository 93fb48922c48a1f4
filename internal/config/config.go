// Package config loads the .flatssa.yaml configuration file.
package config

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/flatssa/internal/interp"
	"github.com/gnolang/flatssa/internal/passes"
)

// Version is the version of the tool, checked against `requires`.
const Version = "0.3.0"

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = ".flatssa.yaml"

// Verify configures the equivalence check.
type Verify struct {
	Samples  []any `yaml:"samples"`
	MaxCases int   `yaml:"max_cases,omitempty"`
}

// Config represents the whole configuration file.
type Config struct {
	Name     string   `yaml:"name"`
	Requires string   `yaml:"requires,omitempty"`
	Strict   bool     `yaml:"strict"`
	Debug    bool     `yaml:"debug,omitempty"`
	Stages   []string `yaml:"stages,omitempty"`
	Funcs    []string `yaml:"funcs,omitempty"`
	Verify   Verify   `yaml:"verify"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Name:     "flatssa",
		Requires: ">= " + Version,
		Strict:   true,
		Verify: Verify{
			Samples:  []any{true, false, 0, 1, -1},
			MaxCases: interp.DefaultMaxCases,
		},
	}
}

// Load reads the configuration at path and applies environment
// overrides. A missing file at the default path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	c, err := parseConfigurationFile(path)
	if errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
		c = Default()
	} else if err != nil {
		return Config{}, err
	}
	ApplyEnv(&c, systemEnv{})
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func parseConfigurationFile(path string) (Config, error) {
	c := Default()

	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return c, fmt.Errorf("error parsing configuration file %s: %w", path, err)
	}
	return c, nil
}

// Write stores c at path as YAML.
func Write(path string, c Config) error {
	if path == "" {
		path = DefaultPath
	}
	d, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o644)
}

// Validate checks the version constraint, the stage names and the
// verification samples.
func (c Config) Validate() error {
	if c.Requires != "" {
		constraint, err := semver.NewConstraint(c.Requires)
		if err != nil {
			return fmt.Errorf("invalid requires %q: %w", c.Requires, err)
		}
		if !constraint.Check(semver.MustParse(Version)) {
			return fmt.Errorf("flatssa %s does not satisfy requires %q", Version, c.Requires)
		}
	}
	if _, err := passes.Build(c.Stages, c.Strict); err != nil {
		return err
	}
	if _, err := c.Samples(); err != nil {
		return err
	}
	if c.Verify.MaxCases < 0 {
		return fmt.Errorf("verify.max_cases must not be negative")
	}
	return nil
}

// Samples returns the verification samples as interpreter values.
func (c Config) Samples() ([]interp.Value, error) {
	out := make([]interp.Value, 0, len(c.Verify.Samples))
	for _, s := range c.Verify.Samples {
		v, err := interp.Scalar(s)
		if err != nil {
			return nil, fmt.Errorf("verify.samples: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Pipeline builds the conversion pipeline the configuration selects.
func (c Config) Pipeline(strict bool) (*passes.Pipeline, error) {
	return passes.Build(c.Stages, strict)
}

// Allows reports whether the function with the given qualified and
// plain names should be converted.
func (c Config) Allows(names ...string) bool {
	if len(c.Funcs) == 0 {
		return true
	}
	for _, f := range c.Funcs {
		for _, n := range names {
			if f == n {
				return true
			}
		}
	}
	return false
}

// Fingerprint identifies the settings that shape conversion results.
// Debug output does not.
func (c Config) Fingerprint() string {
	c.Debug = false
	data, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", md5.Sum(data))
}

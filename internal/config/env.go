package config

import "github.com/xyproto/env/v2"

// Environment variables read by ApplyEnv and ConfigPath.
const (
	EnvStrict = "FLATSSA_STRICT"
	EnvDebug  = "FLATSSA_DEBUG"
	EnvConfig = "FLATSSA_CONFIG"
)

// Lookup reads environment variables.
type Lookup interface {
	Has(name string) bool
	Str(name string) string
	Bool(name string) bool
}

type systemEnv struct{}

func (systemEnv) Has(name string) bool   { return env.Has(name) }
func (systemEnv) Str(name string) string { return env.Str(name) }
func (systemEnv) Bool(name string) bool   { return env.Bool(name) }

// ApplyEnv overrides fields of c from the environment.
func ApplyEnv(c *Config, lookup Lookup) {
	if lookup.Has(EnvStrict) {
		c.Strict = lookup.Bool(EnvStrict)
	}
	if lookup.Has(EnvDebug) {
		c.Debug = lookup.Bool(EnvDebug)
	}
}

// ConfigPath returns flag when set, else FLATSSA_CONFIG, else the
// default path.
func ConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	return env.Str(EnvConfig, DefaultPath)
}

// DebugFromEnv reports whether FLATSSA_DEBUG enables debug output.
func DebugFromEnv() bool {
	return env.Bool(EnvDebug)
}

// Package project reads ember.toml and derives the settings a build runs with.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Generic instantiation modes accepted by [codegen].generics.
const (
	GenericsPlaceholder = "placeholder"
	GenericsStrict      = "strict"
)

// Config mirrors ember.toml.
type Config struct {
	Target  TargetConfig  `toml:"target"`
	Codegen CodegenConfig `toml:"codegen"`
	Build   BuildConfig   `toml:"build"`
}

type TargetConfig struct {
	Triple string `toml:"triple"`
}

type CodegenConfig struct {
	SymbolPrefix string `toml:"symbol_prefix"`
	Generics     string `toml:"generics"`
	EnumPayloads bool   `toml:"enum_payloads"`
	PartialDrops bool   `toml:"partial_drops"`
}

type BuildConfig struct {
	Jobs           int    `toml:"jobs"`
	Cache          bool   `toml:"cache"`
	CacheDir       string `toml:"cache_dir"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
}

// DefaultTriple is used when [target].triple is absent.
const DefaultTriple = "x86_64-unknown-linux-gnu"

// Default returns the settings used without an ember.toml.
func Default() *Config {
	return &Config{
		Target: TargetConfig{Triple: DefaultTriple},
		Codegen: CodegenConfig{
			SymbolPrefix: "em_",
			Generics:     GenericsPlaceholder,
			EnumPayloads: true,
			PartialDrops: true,
		},
		Build: BuildConfig{
			Jobs:           0,
			Cache:          true,
			MaxDiagnostics: 200,
		},
	}
}

// LoadConfig decodes path. Keys missing from the file keep their defaults;
// a relative cache_dir is resolved against the file's directory.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("target", "triple") && strings.TrimSpace(cfg.Target.Triple) == "" {
		return nil, fmt.Errorf("%s: [target].triple must not be empty", path)
	}
	if meta.IsDefined("codegen", "symbol_prefix") && strings.TrimSpace(cfg.Codegen.SymbolPrefix) == "" {
		return nil, fmt.Errorf("%s: [codegen].symbol_prefix must not be empty", path)
	}
	if meta.IsDefined("build", "cache_dir") && cfg.Build.CacheDir != "" && !filepath.IsAbs(cfg.Build.CacheDir) {
		cfg.Build.CacheDir = filepath.Join(filepath.Dir(path), cfg.Build.CacheDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges. It is run after flags override the file.
func (c *Config) Validate() error {
	switch c.Codegen.Generics {
	case GenericsPlaceholder, GenericsStrict:
	default:
		return fmt.Errorf("[codegen].generics must be %q or %q, got %q", GenericsPlaceholder, GenericsStrict, c.Codegen.Generics)
	}
	if c.Build.Jobs < 0 {
		return fmt.Errorf("[build].jobs must not be negative")
	}
	if c.Build.MaxDiagnostics < 0 {
		return fmt.Errorf("[build].max_diagnostics must not be negative")
	}
	return nil
}

// Strict reports whether unresolved generics are errors.
func (c *Config) Strict() bool { return c.Codegen.Generics == GenericsStrict }

// ResolveCacheDir returns the cache location: [build].cache_dir when set,
// else $XDG_CACHE_HOME/ember, else ~/.cache/ember.
func (c *Config) ResolveCacheDir() (string, error) {
	if c.Build.CacheDir != "" {
		return c.Build.CacheDir, nil
	}
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "ember"), nil
}

// Encode writes the config as TOML, as produced by "ember inspect --config".
func (c *Config) Encode() (string, error) {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return "", err
	}
	return sb.String(), nil
}

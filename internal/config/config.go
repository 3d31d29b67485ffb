// Package config loads per-repository settings from .execwalk.yaml.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/DeusData/codebase-execwalk/internal/discover"
	"github.com/DeusData/codebase-execwalk/internal/walker"
)

// FileName is the configuration file looked up in a repository root.
const FileName = ".execwalk.yaml"

const (
	defaultScope      = walker.ScopeInstance
	defaultMaxVisited = 100_000
)

// Config holds user-overridable settings. Unset fields fall back to defaults
// through the Effective* accessors.
type Config struct {
	Walker   WalkerConfig   `yaml:"walker"`
	Discover DiscoverConfig `yaml:"discover"`
	Index    IndexConfig    `yaml:"index"`
}

// WalkerConfig holds execution walk settings.
type WalkerConfig struct {
	// DefaultScope is used when a walk request names no scope.
	// Default: instance.
	DefaultScope *string `yaml:"default_scope"`

	// MaxVisited caps the nodes a single walk records. Zero disables the cap.
	// Default: 100000.
	MaxVisited *int `yaml:"max_visited"`
}

// DiscoverConfig holds file discovery settings.
type DiscoverConfig struct {
	// ExcludePaths are glob patterns, matched against directory names and
	// repository-relative paths, added to the .execwalkignore patterns.
	ExcludePaths []string `yaml:"exclude_paths"`

	// MaxFileSize skips larger source files, in bytes. A negative value
	// disables the check. Default: 4 MiB.
	MaxFileSize *int64 `yaml:"max_file_size"`
}

// IndexConfig holds indexing settings.
type IndexConfig struct {
	// Workers bounds parallel parsing. Default: number of CPUs.
	Workers *int `yaml:"workers"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{}
}

// Load reads .execwalk.yaml from dir. A missing or invalid file yields the
// defaults.
func Load(dir string) *Config {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default()
	}
	return cfg
}

// EffectiveScope returns the configured default scope, or instance when it is
// unset or not a scope name.
func (c *Config) EffectiveScope() walker.Scope {
	if c.Walker.DefaultScope == nil {
		return defaultScope
	}
	s, err := walker.ParseScope(*c.Walker.DefaultScope)
	if err != nil {
		return defaultScope
	}
	return s
}

// EffectiveMaxVisited returns the configured walk cap, or 100000 if not set.
func (c *Config) EffectiveMaxVisited() int {
	if c.Walker.MaxVisited != nil && *c.Walker.MaxVisited >= 0 {
		return *c.Walker.MaxVisited
	}
	return defaultMaxVisited
}

// EffectiveWorkers returns the configured parse parallelism, or the number of
// CPUs if not set.
func (c *Config) EffectiveWorkers() int {
	if c.Index.Workers != nil && *c.Index.Workers > 0 {
		return *c.Index.Workers
	}
	return runtime.NumCPU()
}

// ExcludePaths returns the configured discovery exclusions.
func (c *Config) ExcludePaths() []string {
	return c.Discover.ExcludePaths
}

// DiscoverOptions returns the discovery options for the repository.
func (c *Config) DiscoverOptions() *discover.Options {
	opts := &discover.Options{ExcludePaths: c.Discover.ExcludePaths}
	if c.Discover.MaxFileSize != nil {
		opts.MaxFileSize = *c.Discover.MaxFileSize
	}
	return opts
}

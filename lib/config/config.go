// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for gantry.
//
// Configuration is loaded from a single YAML file specified by:
//   - GANTRY_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides. The
// file is read once at startup; gantry never reloads it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the complete gantry configuration.
type Config struct {
	// Origin identifies the git repository versions are fetched from.
	Origin OriginConfig `yaml:"origin"`

	// Paths configures the local directory layout.
	Paths PathsConfig `yaml:"paths"`

	// Build configures the optional build step run in the working
	// clone before a fetched tree is staged.
	Build BuildConfig `yaml:"build"`

	// Deploy configures what part of the working clone is archived.
	Deploy DeployConfig `yaml:"deploy"`
}

// OriginConfig identifies the version-control origin.
type OriginConfig struct {
	// URL is the git repository URL or path.
	URL string `yaml:"url"`

	// Branch is the branch deployed from. Default: main.
	Branch string `yaml:"branch"`

	// Remote is the git remote name in the working clone.
	// Default: origin.
	Remote string `yaml:"remote"`
}

// PathsConfig configures directory locations. All paths must be
// absolute and none may name a system directory.
type PathsConfig struct {
	// Work is the persistent working clone gantry fetches into.
	Work string `yaml:"work"`

	// Archives is the root directory holding one immutable
	// subdirectory per deployed version.
	Archives string `yaml:"archives"`

	// Current is the live pointer: a symlink resolving to the active
	// archive. The running service serves from this path.
	Current string `yaml:"current"`

	// AppConfig optionally names a directory of deployment-site
	// application configuration kept outside the repository. When set,
	// its contents are mirrored into the working clone before the
	// build and captured in every archive, so reverting restores the
	// configuration that shipped with that version.
	AppConfig string `yaml:"app_config"`
}

// BuildConfig configures the pre-stage build step.
type BuildConfig struct {
	// Commands are shell commands run in the working clone, in order,
	// after the fetch and before staging. Any failure aborts the
	// deployment with nothing registered.
	Commands []string `yaml:"commands"`
}

// DeployConfig configures the archived subset of the working clone.
type DeployConfig struct {
	// Include lists the files and directories (relative to the
	// working clone) copied into each archive. Empty means the whole
	// tree except .git.
	Include []string `yaml:"include"`
}

// forbiddenPaths are directories that must never be configured as a
// gantry path. Activating an archive replaces the live pointer and a
// misconfigured path here could hand a system directory to the
// deployment machinery.
var forbiddenPaths = []string{
	"/", "/bin", "/boot", "/dev", "/etc", "/home", "/lib", "/lib64",
	"/media", "/mnt", "/opt", "/proc", "/root", "/run", "/sbin",
	"/srv", "/sys", "/tmp", "/usr", "/var",
}

// Default returns the default configuration. These defaults exist to
// give all fields sensible zero-values — the config file is required
// and must at minimum set the origin URL and the three paths.
func Default() *Config {
	return &Config{
		Origin: OriginConfig{
			Branch: "main",
			Remote: "origin",
		},
	}
}

// Load loads configuration from the GANTRY_CONFIG environment
// variable. There are no fallbacks: if GANTRY_CONFIG is not set, this
// fails.
func Load() (*Config, error) {
	path := os.Getenv("GANTRY_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("GANTRY_CONFIG environment variable not set; " +
			"set it to the path of your gantry.yaml config file, or use --config flag")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. The config
// file is the single source of truth; environment variables do not
// override values. The only expansion performed is ${HOME} and
// similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Paths.Work = expandVars(c.Paths.Work, vars)
	c.Paths.Archives = expandVars(c.Paths.Archives, vars)
	c.Paths.Current = expandVars(c.Paths.Current, vars)
	c.Paths.AppConfig = expandVars(c.Paths.AppConfig, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported at once rather than one per invocation.
func (c *Config) Validate() error {
	var errs []error

	if c.Origin.URL == "" {
		errs = append(errs, fmt.Errorf("origin.url is required"))
	}
	if c.Origin.Branch == "" {
		errs = append(errs, fmt.Errorf("origin.branch is required"))
	}
	if c.Origin.Remote == "" {
		errs = append(errs, fmt.Errorf("origin.remote is required"))
	}

	paths := map[string]string{
		"paths.work":     c.Paths.Work,
		"paths.archives": c.Paths.Archives,
		"paths.current":  c.Paths.Current,
	}
	// app_config is optional; it is held to the same path rules only
	// when set.
	if c.Paths.AppConfig != "" {
		paths["paths.app_config"] = c.Paths.AppConfig
	}
	for name, path := range paths {
		if path == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
			continue
		}
		if !filepath.IsAbs(path) {
			errs = append(errs, fmt.Errorf("%s must be absolute, got %q", name, path))
			continue
		}
		cleaned := filepath.Clean(path)
		for _, forbidden := range forbiddenPaths {
			if cleaned == forbidden {
				errs = append(errs, fmt.Errorf("%s cannot be set to forbidden value %s", name, cleaned))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the working and archive directories if they do
// not exist. The live pointer itself is a symlink managed by the
// deployment switch; only its parent directory is created here.
func (c *Config) EnsurePaths() error {
	directories := []string{
		c.Paths.Work,
		c.Paths.Archives,
		filepath.Dir(c.Paths.Current),
	}
	for _, directory := range directories {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}
	return nil
}

// Package config loads nixvault settings from a TOML or YAML file.
//
// The default location is $XDG_CONFIG_HOME/nixvault/config.toml
// (~/.config/nixvault/config.toml). A missing default file is not an error;
// the built-in defaults apply. Command-line flags override file values.
//
// Example config.toml:
//
//	outdir   = "vault"
//	revision = "nixos-24.11"
//	workers  = 16
//	introspect_timeout = "45s"
//
//	[cache]
//	enabled   = true
//	redis_url = "redis://localhost:6379/0"
//	ttl       = "168h"
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/nixvault/pkg/errors"
)

// AppName names the config and cache directories.
const AppName = "nixvault"

// Defaults for a run.
const (
	DefaultOutDir            = "nixpkgs-vault"
	DefaultRevision          = "nixos-unstable"
	DefaultGitURL            = "https://github.com/NixOS/nixpkgs.git"
	DefaultIntrospectTimeout = 30 * time.Second
	DefaultManifestTimeout   = 30 * time.Minute
	DefaultFetchTimeout      = 30 * time.Minute
	DefaultCacheTTL          = 7 * 24 * time.Hour
)

// Config holds every setting that can come from a file.
type Config struct {
	OutDir            string        `toml:"outdir" yaml:"outdir"`
	Revision          string        `toml:"revision" yaml:"revision"`
	GitURL            string        `toml:"git_url" yaml:"git_url"`
	Workers           int           `toml:"workers" yaml:"workers"`
	IntrospectTimeout time.Duration `toml:"introspect_timeout" yaml:"introspect_timeout"`
	ManifestTimeout   time.Duration `toml:"manifest_timeout" yaml:"manifest_timeout"`
	FetchTimeout      time.Duration `toml:"fetch_timeout" yaml:"fetch_timeout"`
	StatusAddr        string        `toml:"status_addr" yaml:"status_addr"`
	Cache             CacheConfig   `toml:"cache" yaml:"cache"`
}

// CacheConfig selects the introspection cache backend.
type CacheConfig struct {
	Enabled  bool          `toml:"enabled" yaml:"enabled"`
	Dir      string        `toml:"dir" yaml:"dir"`
	RedisURL string        `toml:"redis_url" yaml:"redis_url"` // selects the Redis backend when set
	Prefix   string        `toml:"prefix" yaml:"prefix"`
	TTL      time.Duration `toml:"ttl" yaml:"ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		OutDir:            DefaultOutDir,
		Revision:          DefaultRevision,
		GitURL:            DefaultGitURL,
		IntrospectTimeout: DefaultIntrospectTimeout,
		ManifestTimeout:   DefaultManifestTimeout,
		FetchTimeout:      DefaultFetchTimeout,
		Cache: CacheConfig{
			Enabled: true,
			TTL:     DefaultCacheTTL,
		},
	}
}

// Load reads the file at path over the defaults. An empty path loads
// [DefaultPath] and tolerates its absence; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read config")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		_, err = toml.Decode(string(data), &cfg)
	}
	if err != nil {
		return cfg, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges and the nix-facing strings.
func (c Config) Validate() error {
	if c.OutDir == "" {
		return errs.New(errs.ErrCodeInvalidConfig, "outdir must not be empty")
	}
	if c.Workers < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "workers must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"introspect_timeout": c.IntrospectTimeout,
		"manifest_timeout":   c.ManifestTimeout,
		"fetch_timeout":      c.FetchTimeout,
		"cache.ttl":          c.Cache.TTL,
	} {
		if d < 0 {
			return errs.New(errs.ErrCodeInvalidConfig, "%s must not be negative", name)
		}
	}
	if err := errs.ValidateGitURL(c.GitURL); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "git_url")
	}
	if err := errs.ValidateRevision(c.Revision); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "revision")
	}
	return nil
}

// DefaultPath returns the config file location using the XDG standard.
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// CacheDir returns the file cache directory: the configured dir, else
// $XDG_CACHE_HOME/nixvault, else ~/.cache/nixvault.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

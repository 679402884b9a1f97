// Package config handles jbcm.toml host configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/dhamidi/jbcm/decompile"
)

const FileName = "jbcm.toml"

type Config struct {
	Decompile Decompile `toml:"decompile"`
	Cache     Cache     `toml:"cache"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the jbcm.toml file, empty when the
	// defaults are used.
	Dir string `toml:"-"`
}

type Decompile struct {
	Indent      string `toml:"indent"`
	EndComments bool   `toml:"end-comments"`
	Workers     int    `toml:"workers"`
	MaxCodeSize int    `toml:"max-code-size"`
}

// Cache configures the store of decompiled class sources. A relative path
// is resolved against the directory of jbcm.toml.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

func Default() *Config {
	opts := decompile.DefaultOptions()
	return &Config{
		Decompile: Decompile{
			Indent:      opts.IndentMark,
			EndComments: opts.EndComments,
			Workers:     opts.Workers,
			MaxCodeSize: opts.MaxCodeSize,
		},
		Cache: Cache{Path: filepath.Join(".jbcm", "cache.db")},
	}
}

// Load parses jbcm.toml from dir on top of the defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if c.Decompile.Workers < 1 {
		c.Decompile.Workers = 1
	}
	return c, nil
}

// FindAndLoad walks up from startDir to the first jbcm.toml and loads it.
// Without one, it returns the defaults.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) Options() decompile.Options {
	return decompile.Options{
		IndentMark:  c.Decompile.Indent,
		EndComments: c.Decompile.EndComments,
		Workers:     c.Decompile.Workers,
		MaxCodeSize: c.Decompile.MaxCodeSize,
	}
}

// CachePath returns the cache location, or "" when caching is off.
func (c *Config) CachePath() string {
	if !c.Cache.Enabled || c.Cache.Path == "" {
		return ""
	}
	if filepath.IsAbs(c.Cache.Path) || c.Dir == "" {
		return c.Cache.Path
	}
	return filepath.Join(c.Dir, c.Cache.Path)
}

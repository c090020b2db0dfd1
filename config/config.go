// Package config handles qcvm.toml instance configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/qcvm-bridge/intern"
	"github.com/wippyai/qcvm-bridge/progs"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "qcvm.toml"

// Config represents a qcvm.toml file.
type Config struct {
	Progs   Progs   `toml:"progs"`
	Strings Strings `toml:"strings"`
	Guest   Guest   `toml:"guest"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// Progs sizes VM storage and names the definitions manifest.
type Progs struct {
	Manifest    string `toml:"manifest"`
	Globals     uint32 `toml:"globals"`
	Fields      uint32 `toml:"fields"`
	MaxEntities uint32 `toml:"max-entities"`
	MaxClients  int32  `toml:"max-clients"`
}

// Strings configures the intern table.
type Strings struct {
	MaxInfo         int  `toml:"max-info"`
	CollectAfterRun bool `toml:"collect-after-run"`
}

// Guest configures the WebAssembly executor.
type Guest struct {
	Module           string `toml:"module"`
	Memory           string `toml:"memory"`
	StorageBase      uint32 `toml:"storage-base"`
	MemoryLimitPages uint32 `toml:"memory-limit-pages"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Progs: Progs{
			Globals:     1024,
			Fields:      256,
			MaxEntities: 1024,
			MaxClients:  1,
		},
		Strings: Strings{
			MaxInfo:         intern.MaxInfoString,
			CollectAfterRun: true,
		},
		Guest: Guest{Memory: "memory"},
		Log:   Log{Level: "info"},
	}
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a qcvm.toml file. It returns
// the defaults when none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks that the storage layout fits and the log level parses.
func (c *Config) Validate() error {
	if err := c.Layout().Validate(); err != nil {
		return fmt.Errorf("progs: %w", err)
	}
	if c.Progs.MaxClients < 0 || uint32(c.Progs.MaxClients) >= c.Progs.MaxEntities {
		return fmt.Errorf("progs: max-clients %d must be below max-entities %d", c.Progs.MaxClients, c.Progs.MaxEntities)
	}
	if c.Strings.MaxInfo < 0 {
		return fmt.Errorf("strings: negative max-info %d", c.Strings.MaxInfo)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Layout returns the storage layout described by the progs section.
func (c *Config) Layout() progs.Layout {
	return progs.NewLayout(c.Progs.Globals, c.Progs.Fields, c.Progs.MaxEntities)
}

// Path resolves a path from the file relative to its directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ManifestPath returns the resolved definitions manifest path, or "".
func (c *Config) ManifestPath() string {
	return c.Path(c.Progs.Manifest)
}

// ModulePath returns the resolved guest module path, or "".
func (c *Config) ModulePath() string {
	return c.Path(c.Guest.Module)
}

// Logger builds a zap logger for the log section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

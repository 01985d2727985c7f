// Package config handles interpose.toml engine configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "interpose.toml"

// Config represents an interpose.toml configuration.
type Config struct {
	Log         Log         `toml:"log"`
	Validation  Validation  `toml:"validation"`
	Queue       Queue       `toml:"queue"`
	Destruction Destruction `toml:"destruction"`
	Subclass    Subclass    `toml:"subclass"`

	// Dir is the directory containing the interpose.toml file (set at load time).
	Dir string `toml:"-"`
}

// Log configures the commonlog backend.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"` // empty logs to stderr
}

// Validation configures how replacements are checked against method
// signatures before installation.
type Validation struct {
	// Strict compares argument and return types; when false only arity
	// is checked.
	Strict bool `toml:"strict"`
}

// Queue configures the global mutation queue.
type Queue struct {
	DetectDeadlocks bool          `toml:"detect-deadlocks"`
	DeadlockTimeout time.Duration `toml:"deadlock-timeout"`
}

// Destruction configures destruction-time hooks.
type Destruction struct {
	// WarnUnforwarded logs a warning when an instead replacement for
	// dealloc returns without calling the original.
	WarnUnforwarded bool `toml:"warn-unforwarded"`
}

// Subclass configures the classes synthesized for object-scoped hooks.
type Subclass struct {
	Suffix string `toml:"suffix"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults(nil)
	return c
}

// Load parses an interpose.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// Parse decodes configuration text. Keys that are absent keep their
// default values.
func Parse(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	c.applyDefaults(&md)
	return &c, nil
}

// FindAndLoad walks up from startDir to find an interpose.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// applyDefaults fills every key the metadata says was not set. A nil md
// means nothing was set.
func (c *Config) applyDefaults(md *toml.MetaData) {
	unset := func(key ...string) bool {
		return md == nil || !md.IsDefined(key...)
	}
	if unset("validation", "strict") {
		c.Validation.Strict = true
	}
	if unset("queue", "deadlock-timeout") {
		c.Queue.DeadlockTimeout = 30 * time.Second
	}
	if unset("destruction", "warn-unforwarded") {
		c.Destruction.WarnUnforwarded = true
	}
	if c.Subclass.Suffix == "" {
		c.Subclass.Suffix = "_Hooked"
	}
}

// LogPath returns the log file path, or nil for stderr.
func (c *Config) LogPath() *string {
	if c.Log.Path == "" {
		return nil
	}
	path := c.Log.Path
	if !filepath.IsAbs(path) && c.Dir != "" {
		path = filepath.Join(c.Dir, path)
	}
	return &path
}

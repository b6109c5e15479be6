// Package config loads the optional atlas.toml project file that resolves
// atlas-ld's input order and output format without requiring every flag on
// the command line.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// LinkConfig is the `[link]` table of an atlas.toml project file.
type LinkConfig struct {
	Inputs []string `toml:"inputs"`
	Output string   `toml:"output"`
	Format string   `toml:"format"` // "hex" or "bin"; "" infers from Output
	Entry  string   `toml:"entry"`
}

// ProjectConfig is the root of an atlas.toml file.
type ProjectConfig struct {
	Link LinkConfig `toml:"link"`
}

// DefaultProjectConfig returns the config used when no project file exists.
func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{}
}

// Error wraps a config load failure with the file path that caused it.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Load reads path as a TOML project file. A missing file is not an error:
// it returns DefaultProjectConfig(). A malformed file returns an *Error.
func Load(path string) (ProjectConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultProjectConfig(), nil
	}

	var cfg ProjectConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return ProjectConfig{}, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

// ResolvedFormat returns the output format named by cfg, inferring it from
// the output path's extension when Format is unset.
func (c ProjectConfig) ResolvedFormat() string {
	if c.Link.Format != "" {
		return strings.ToLower(c.Link.Format)
	}
	if strings.HasSuffix(strings.ToLower(c.Link.Output), ".hex") {
		return "hex"
	}
	return "bin"
}

// DefaultProjectFile is the conventional project file name atlas-ld looks
// for in the current directory when `-config` isn't given explicitly.
const DefaultProjectFile = "atlas.toml"

// ResolveProjectPath joins dir with the default project file name.
func ResolveProjectPath(dir string) string {
	return filepath.Join(dir, DefaultProjectFile)
}

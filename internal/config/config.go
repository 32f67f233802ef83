// Package config loads the optional YAML settings file of the transform
// command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/JakeChampion/metro-transform/internal/transform"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = ".metro-transform.yaml"

// DefaultExtensions are the file extensions processed when walking
// directories.
var DefaultExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

type Config struct {
	GlobalPrefix     string   `yaml:"globalPrefix"`
	KeepRequireNames bool     `yaml:"keepRequireNames"`
	OptionalExclude  []string `yaml:"optionalExclude"`
	Extensions       []string `yaml:"extensions"`

	// Cache is the path of the result cache database. Empty disables it.
	Cache string `yaml:"cache"`

	// Verify runs every generated factory under goja.
	Verify bool `yaml:"verify"`
}

func Default() *Config {
	return &Config{
		Extensions: append([]string(nil), DefaultExtensions...),
	}
}

// Load reads the file at path. An empty path means DefaultFile, which may
// be absent; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	c, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a config document. Unknown keys are an error. Missing keys
// keep their defaults.
func Parse(bs []byte) (*Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(bs, c); err != nil {
		return nil, err
	}
	c.Extensions = NormalizeExtensions(c.Extensions)
	return c, nil
}

// NormalizeExtensions lowercases extensions and adds the leading dot.
// Empty entries are dropped.
func NormalizeExtensions(exts []string) []string {
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return normalized
}

// TransformOptions returns the options for transforming the named file.
func (c *Config) TransformOptions(filename string) transform.Options {
	return transform.Options{
		Filename:         filename,
		GlobalPrefix:     c.GlobalPrefix,
		KeepRequireNames: c.KeepRequireNames,
		OptionalExclude:  c.OptionalExclude,
	}
}

// Package config loads the optional project file, markerml.toml or
// markerml.yaml. The format follows the file extension. Files are checked
// against an embedded JSON Schema before they are decoded, so unknown keys
// and out-of-range values are rejected with their location.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/aledsdavies/markerml/runtime/resolver"
)

// FileNames are the project file names Find looks for, in order.
var FileNames = []string{"markerml.toml", "markerml.yaml", "markerml.yml"}

var (
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrInvalid           = errors.New("invalid config")
	ErrVersion           = errors.New("config requires a newer markerml")
)

// Error is a failure to load or validate a config file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config holds project settings. Command-line flags override it.
type Config struct {
	Version string        `toml:"version" yaml:"version"`
	Input   string        `toml:"input" yaml:"input"`
	Output  string        `toml:"output" yaml:"output"`
	Watch   WatchConfig   `toml:"watch" yaml:"watch"`
	Compile CompileConfig `toml:"compile" yaml:"compile"`
	HTML    HTMLConfig    `toml:"html" yaml:"html"`

	// Path is the file the config was loaded from, empty for defaults.
	Path string `toml:"-" yaml:"-"`
}

type WatchConfig struct {
	Host       string `toml:"host" yaml:"host"`
	Port       int    `toml:"port" yaml:"port"`
	DebounceMS int    `toml:"debounce_ms" yaml:"debounce_ms"`
}

// Debounce returns the debounce delay as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Addr returns the listen address.
func (w WatchConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

type CompileConfig struct {
	MaxDepth   int  `toml:"max_depth" yaml:"max_depth"`
	LazyCycles bool `toml:"lazy_cycles" yaml:"lazy_cycles"`
}

type HTMLConfig struct {
	Title    string `toml:"title" yaml:"title"`
	Lang     string `toml:"lang" yaml:"lang"`
	Fragment bool   `toml:"fragment" yaml:"fragment"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Watch: WatchConfig{
			Host:       "127.0.0.1",
			Port:       3000,
			DebounceMS: 100,
		},
		Compile: CompileConfig{MaxDepth: resolver.DefaultMaxDepth},
		HTML:    HTMLConfig{Lang: "en"},
	}
}

// Find returns the first project file in dir.
func Find(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Load reads, validates and decodes the file at path. Keys absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	cfg.Path = path
	return cfg, nil
}

// Format is a config file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return Format(strings.TrimPrefix(filepath.Ext(path), "."))
	}
}

// Parse validates and decodes data in the given format.
func Parse(data []byte, format Format) (*Config, error) {
	var raw map[string]any
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	cfg := Default()
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	return cfg, nil
}

// CheckVersion fails when the file asks for a newer compiler than current.
// Both may omit the leading "v". An unset version always passes, as does a
// non-release build ("dev").
func (c *Config) CheckVersion(current string) error {
	if c.Version == "" {
		return nil
	}
	cur := canonicalVersion(current)
	if !semver.IsValid(cur) {
		return nil
	}
	if semver.Compare(canonicalVersion(c.Version), cur) > 0 {
		return fmt.Errorf("%w: file wants %s, this is %s", ErrVersion, c.Version, current)
	}
	return nil
}

func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema://markerml.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if compiler.Formats == nil {
		compiler.Formats = make(map[string]func(interface{}) bool)
	}
	compiler.Formats["semver"] = func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true // type is checked separately
		}
		return semver.IsValid(canonicalVersion(s))
	}
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
})

// validate checks raw against the embedded schema. raw is normalised
// through JSON first so TOML and YAML scalars look the same to the
// validator.
func validate(raw map[string]any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrInvalid, describe(ve))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// describe flattens a validation error to its leaf causes.
func describe(ve *jsonschema.ValidationError) string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("%s: %s", loc, ve.Message)
	}
	parts := make([]string, 0, len(ve.Causes))
	for _, c := range ve.Causes {
		parts = append(parts, describe(c))
	}
	return strings.Join(parts, "; ")
}

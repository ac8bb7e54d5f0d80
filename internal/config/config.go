// internal/config/config.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"revhash/internal/errors"
)

const (
	DefaultNamingTemplate = "{filename}_{hash}{extension}"
	DefaultAlgorithm      = "sha256"
	DefaultLogLevel       = "info"
)

// DefaultIgnorePatterns keeps HTML entry points at their original names.
var DefaultIgnorePatterns = []string{"**/*.html"}

type Config struct {
	Server struct {
		Host string `json:"host" yaml:"host"`
		Port int    `json:"port" yaml:"port"`
	} `json:"server" yaml:"server"`

	Database struct {
		Path string `json:"path" yaml:"path"`
	} `json:"database" yaml:"database"`

	Source string `json:"source" yaml:"source"`
	Output string `json:"output" yaml:"output"`

	// nil means DefaultIgnorePatterns; an explicit empty list ignores nothing.
	IgnorePatterns              []string `json:"ignore_patterns" yaml:"ignore_patterns"`
	HashIgnoringContentPatterns []string `json:"hash_ignoring_content_patterns" yaml:"hash_ignoring_content_patterns"`

	Verbose        bool     `json:"verbose" yaml:"verbose"`
	NamingTemplate string   `json:"naming_template" yaml:"naming_template"`
	Salt           string   `json:"salt" yaml:"salt"`
	Algorithm      string   `json:"algorithm" yaml:"algorithm"`
	Precompress    []string `json:"precompress" yaml:"precompress"`

	Environment string `json:"environment" yaml:"environment"` // dev, prod
	LogLevel    string `json:"log_level" yaml:"log_level"`     // debug, info, warn, error
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func getConfigPath() string {
	env := os.Getenv("REVHASH_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

// Load reads a JSON, JSONC or YAML config file. An empty path falls back to
// config/config.<REVHASH_ENV>.json.
func Load(path string) (*Config, error) {
	if path == "" {
		path = getConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parsing yaml config: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&config); err != nil {
			return nil, fmt.Errorf("parsing json config: %w", err)
		}
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.IgnorePatterns == nil {
		c.IgnorePatterns = append([]string(nil), DefaultIgnorePatterns...)
	}
	if c.NamingTemplate == "" {
		c.NamingTemplate = DefaultNamingTemplate
	}
	if c.Algorithm == "" {
		c.Algorithm = DefaultAlgorithm
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Path == "" {
		c.Database.Path = ".revhash"
	}
}

// EffectiveLogLevel is LogLevel, raised to debug when Verbose is set.
func (c *Config) EffectiveLogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}

func (c *Config) Validate() error {
	if !strings.Contains(c.NamingTemplate, "{hash}") {
		return errors.ValidationError("naming_template must contain {hash}", c.NamingTemplate)
	}

	switch c.Algorithm {
	case "sha256", "blake3":
	default:
		return errors.ValidationError("unknown algorithm", c.Algorithm)
	}

	for _, codec := range c.Precompress {
		switch codec {
		case "gzip", "zstd":
		default:
			return errors.ValidationError("unknown precompress codec", codec)
		}
	}

	for _, patterns := range [][]string{c.IgnorePatterns, c.HashIgnoringContentPatterns} {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return errors.ValidationError("invalid glob pattern", p)
			}
		}
	}

	return nil
}

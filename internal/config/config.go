// Package config resolves deckhand's settings: built-in defaults, then config.yaml, then
// DECKHAND_* environment variables. Command-line flags are applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const fileName = "config.yaml"

type Config struct {
	// Server is the base URL of a remote deckhand server. Empty means local-first: the
	// editor talks to an in-process server over DataDir.
	Server string `yaml:"server" env:"DECKHAND_SERVER"`

	DataDir string `yaml:"data_dir" env:"DECKHAND_DIR"`
	Listen  string `yaml:"listen" env:"DECKHAND_LISTEN"`

	UserID int64  `yaml:"user_id" env:"DECKHAND_USER"`
	Email  string `yaml:"email" env:"DECKHAND_EMAIL"`

	LogLevel string `yaml:"log_level" env:"DECKHAND_LOG_LEVEL"`

	MaxInFlight    int64         `yaml:"max_in_flight" env:"DECKHAND_MAX_IN_FLIGHT"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"DECKHAND_REQUEST_TIMEOUT"`
}

func Default() Config {
	return Config{
		DataDir:        ".deckhand",
		Listen:         "127.0.0.1:7420",
		LogLevel:       "info",
		MaxInFlight:    4,
		RequestTimeout: 15 * time.Second,
	}
}

// Dir returns the directory holding config.yaml.
func Dir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.deckhand).
	if v := strings.TrimSpace(os.Getenv("DECKHAND_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".deckhand"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load resolves the configuration. A missing config file is not an error.
func Load() (Config, error) {
	cfg := Default()
	path, err := Path()
	if err != nil {
		return cfg, err
	}
	if err := LoadFile(path, &cfg); err != nil {
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the file keep their
// current values.
func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.MaxInFlight < 1 {
		return fmt.Errorf("max_in_flight must be at least 1, got %d", c.MaxInFlight)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Keys lists the config.yaml keys.
func Keys() []string {
	b, _ := yaml.Marshal(Default())
	var m yaml.Node
	_ = yaml.Unmarshal(b, &m)
	var keys []string
	if len(m.Content) == 1 {
		for i := 0; i < len(m.Content[0].Content); i += 2 {
			keys = append(keys, m.Content[0].Content[i].Value)
		}
	}
	return keys
}

// Set assigns one config.yaml key from its command-line string form. The value is
// resolved like an unquoted YAML scalar, so "7" is a number and "15s" a duration.
func (c *Config) Set(key, value string) error {
	key = strings.TrimSpace(key)
	known := false
	for _, k := range Keys() {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown config key %q (want one of %s)", key, strings.Join(Keys(), ", "))
	}
	doc := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: key},
		{Kind: yaml.ScalarNode, Value: strings.TrimSpace(value)},
	}}
	next := *c
	if err := doc.Decode(&next); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// AsMap returns cfg keyed like config.yaml, for display.
func (c Config) AsMap() map[string]any {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil
	}
	out := map[string]any{}
	_ = yaml.Unmarshal(b, &out)
	return out
}

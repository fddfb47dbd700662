// Package config loads codec settings from a single file.
//
// The file is named by the --config flag or the TOKENTRIM_CONFIG environment
// variable. There is no automatic discovery. YAML (.yaml, .yml) and JSON with
// comments (.json, .jsonc) are accepted; unset fields keep their defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
	"tangled.org/tokentrim.app/tokentrim/bundle"
)

// EnvVar names the environment variable holding the config path
const EnvVar = "TOKENTRIM_CONFIG"

// Config is the on-disk form of bundle.Config
type Config struct {
	MaxPayloadBytes *int64  `yaml:"max_payload_bytes" json:"max_payload_bytes"`
	MaxDecodedBytes *int64  `yaml:"max_decoded_bytes" json:"max_decoded_bytes"`
	Compression     *string `yaml:"compression" json:"compression"`
	Digest          *string `yaml:"digest" json:"digest"`
	Workers         *int    `yaml:"workers" json:"workers"`
	WrapWidth       *int    `yaml:"wrap_width" json:"wrap_width"`
}

// Path returns the explicit path if set, otherwise the environment variable.
// An empty result means defaults only.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvVar)
}

// Load reads path and returns the resulting codec config. An empty path
// returns bundle.DefaultConfig.
func Load(path string) (*bundle.Config, error) {
	cfg := bundle.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	file, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := file.Apply(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config data. ext selects the syntax (".yaml", ".yml",
// ".json", ".jsonc"); an empty ext is treated as YAML.
func Parse(data []byte, ext string) (*Config, error) {
	var file Config

	switch strings.ToLower(ext) {
	case "", ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, err
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}

	return &file, nil
}

// Apply overlays the set fields onto cfg and validates the result
func (c *Config) Apply(cfg *bundle.Config) error {
	if c.MaxPayloadBytes != nil {
		cfg.MaxPayloadBytes = *c.MaxPayloadBytes
	}
	if c.MaxDecodedBytes != nil {
		cfg.MaxDecodedBytes = *c.MaxDecodedBytes
	}
	if c.Compression != nil {
		cfg.Compression = bundle.Compression(strings.ToLower(*c.Compression))
	}
	if c.Digest != nil {
		cfg.Digest = bundle.DigestAlgorithm(strings.ToLower(*c.Digest))
	}
	if c.Workers != nil {
		cfg.Workers = *c.Workers
	}
	if c.WrapWidth != nil {
		cfg.WrapWidth = *c.WrapWidth
	}
	return cfg.Validate()
}

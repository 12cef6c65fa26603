// Package config loads generator settings from a YAML file and IDTHEORY_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/idtheory"
	"github.com/theory-cloud/idtheory/pkg/layout"
	"github.com/theory-cloud/idtheory/pkg/node"
	"github.com/theory-cloud/idtheory/pkg/observability"
	"github.com/theory-cloud/idtheory/pkg/observability/zap"
	"github.com/theory-cloud/idtheory/pkg/state"
)

const (
	EnvScheme         = "IDTHEORY_SCHEME"
	EnvPolicy         = "IDTHEORY_POLICY"
	EnvAddRandomMax   = "IDTHEORY_ADD_RANDOM_MAX"
	EnvDriftTolerance = "IDTHEORY_DRIFT_TOLERANCE"
	EnvNode           = "IDTHEORY_NODE"
	EnvLogLevel       = "IDTHEORY_LOG_LEVEL"
	EnvLogFormat      = "IDTHEORY_LOG_FORMAT"
)

// Node provider names accepted besides a literal address.
const (
	NodeRandom   = "random"
	NodeHardware = "hardware"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Scheme       string `yaml:"scheme"`
	Policy       string `yaml:"policy"`
	AddRandomMax uint64 `yaml:"add_random_max"`
	// DriftTolerance is in the scheme's timestamp unit. Negative values are
	// rejected by Validate.
	DriftTolerance int64 `yaml:"drift_tolerance"`
	// Node is "random", "hardware", a MAC address or a hex literal. Only the
	// v1 and v6 schemes use it.
	Node    string                     `yaml:"node"`
	Logging observability.LoggerConfig `yaml:"logging"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Scheme:         layout.SchemeV7.String(),
		Policy:         state.AddFixed().String(),
		DriftTolerance: state.DefaultDriftTolerance,
		Node:           NodeRandom,
		Logging: observability.LoggerConfig{
			Format: "console",
			Level:  "info",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := Decode(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := FromEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode strictly unmarshals YAML into cfg; unknown keys are an error.
func Decode(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return invalid("decode yaml", err)
	}
	return nil
}

// FromEnv overlays the IDTHEORY_* variables found by lookup onto cfg.
func FromEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvScheme); ok {
		cfg.Scheme = v
	}
	if v, ok := lookup(EnvPolicy); ok {
		cfg.Policy = v
	}
	if v, ok := lookup(EnvAddRandomMax); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return invalid(EnvAddRandomMax, err)
		}
		cfg.AddRandomMax = n
	}
	if v, ok := lookup(EnvDriftTolerance); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return invalid(EnvDriftTolerance, err)
		}
		cfg.DriftTolerance = n
	}
	if v, ok := lookup(EnvNode); ok {
		cfg.Node = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.Logging.Format = v
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := layout.ParseScheme(c.Scheme); err != nil {
		return invalid("scheme", err)
	}
	if _, err := state.ParsePolicy(c.Policy, c.AddRandomMax); err != nil {
		return invalid("policy", err)
	}
	if c.DriftTolerance < 0 {
		return invalid("drift_tolerance", fmt.Errorf("%d is negative", c.DriftTolerance))
	}
	if _, err := c.nodeProvider(); err != nil {
		return invalid("node", err)
	}
	if err := zap.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return invalid("logging.format", fmt.Errorf("unsupported format %q", c.Logging.Format))
	}
	return nil
}

// Options returns the scheme and generator options c describes.
func (c Config) Options() (layout.Scheme, []idtheory.Option, error) {
	if err := c.Validate(); err != nil {
		return 0, nil, err
	}
	scheme, _ := layout.ParseScheme(c.Scheme)
	policy, _ := state.ParsePolicy(c.Policy, c.AddRandomMax)
	nodes, _ := c.nodeProvider()

	opts := []idtheory.Option{
		idtheory.WithPolicy(policy),
		idtheory.WithDriftTolerance(uint64(c.DriftTolerance)),
	}
	if nodes != nil {
		opts = append(opts, idtheory.WithNodeProvider(nodes))
	}
	return scheme, opts, nil
}

// LoggerConfig returns the logging section.
func (c Config) LoggerConfig() observability.LoggerConfig {
	return c.Logging
}

// nodeProvider returns nil for the generator's default random node.
func (c Config) nodeProvider() (node.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(c.Node)) {
	case "", NodeRandom:
		return nil, nil
	case NodeHardware:
		return node.Hardware{}, nil
	default:
		return node.Parse(c.Node)
	}
}

func invalid(field string, err error) error {
	return idtheory.WrapError(err, idtheory.ErrorTypeInvalidConfig, "config: "+field)
}

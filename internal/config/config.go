// Package config loads the check's options: region, required, with an
// optional metric_prefix. Absence of region is the caller's responsibility
// to report via the logger and terminate the check silently.
package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

const defaultMetricPrefix = "aws_ec2_count"

// Config is the check's single recognized configuration shape.
type Config struct {
	Region       string `yaml:"region"`
	MetricPrefix string `yaml:"metric_prefix"`
}

// MissingRegionError marks a Config with no usable region.
type MissingRegionError struct{}

func (*MissingRegionError) Error() string { return "no region" }

// Load parses YAML config data and fills in defaults. It does not validate
// presence of region; callers should call Validate separately so the
// missing-region policy (log + clean return, no panic) stays in the
// caller's hands.
func Load(data []byte) (*Config, error) {
	var c Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, err
		}
	}
	if c.Region == "" {
		// Fall back to the standard AWS SDK region variable.
		c.Region = os.Getenv("AWS_REGION")
	}
	if c.MetricPrefix == "" {
		c.MetricPrefix = defaultMetricPrefix
	}
	return &c, nil
}

// Validate reports *MissingRegionError if Region is unset.
func (c *Config) Validate() error {
	if c.Region == "" {
		return &MissingRegionError{}
	}
	return nil
}

// LoadFile reads and parses a YAML config file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Load(nil)
		}
		return nil, err
	}
	return Load(data)
}

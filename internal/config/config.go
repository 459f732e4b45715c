// Package config loads the optional tripload.yaml project file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

const ConfigFileName = "tripload.yaml"

type ConnectionConfig struct {
	Driver         string `yaml:"driver,omitempty"`
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Database       string `yaml:"database,omitempty"`
	SSLMode        string `yaml:"sslmode,omitempty"`
	Path           string `yaml:"path,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

type LoadConfig struct {
	Table       string `yaml:"table,omitempty"`
	Variant     string `yaml:"variant,omitempty"`
	ChunkSize   int    `yaml:"chunk_size,omitempty"`
	PrimingRows int    `yaml:"priming_rows,omitempty"`
	Delimiter   string `yaml:"delimiter,omitempty"`
	Timeout     string `yaml:"timeout,omitempty"`
}

// VariantConfig registers a dataset variant beyond the built-in ones.
type VariantConfig struct {
	Name             string `yaml:"name"`
	Token            string `yaml:"token,omitempty"`
	Pickup           string `yaml:"pickup"`
	Dropoff          string `yaml:"dropoff"`
	CanonicalPickup  string `yaml:"canonical_pickup,omitempty"`
	CanonicalDropoff string `yaml:"canonical_dropoff,omitempty"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Load       LoadConfig       `yaml:"load"`
	Variants   []VariantConfig  `yaml:"variants,omitempty"`
}

// Load reads tripload.yaml from dir.
func Load(dir string) (*ProjectConfig, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads and validates the config file at path. Unknown keys are
// rejected so that a misspelled setting does not silently fall back to a
// default.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: %w: %w", path, tripload.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks values that yaml decoding alone cannot.
func (c *ProjectConfig) Validate() error {
	var errs []error

	if c.Connection.Driver != "" {
		if _, err := tripload.ParseDriver(c.Connection.Driver); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Connection.AuthMethod != "" {
		if _, err := tripload.ParseAuthMethod(c.Connection.AuthMethod); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Load.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("load.chunk_size must be positive, got %d: %w", c.Load.ChunkSize, tripload.ErrInvalidConfig))
	}
	if c.Load.PrimingRows < 0 {
		errs = append(errs, fmt.Errorf("load.priming_rows cannot be negative: %w", tripload.ErrInvalidConfig))
	}
	if _, err := c.Load.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Load.DelimiterRune(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool)
	for i, v := range c.Variants {
		if v.Name == "" || v.Pickup == "" || v.Dropoff == "" {
			errs = append(errs, fmt.Errorf("variants[%d] needs name, pickup and dropoff: %w", i, tripload.ErrInvalidConfig))
			continue
		}
		if seen[v.Name] {
			errs = append(errs, fmt.Errorf("variant %q is defined twice: %w", v.Name, tripload.ErrInvalidConfig))
		}
		seen[v.Name] = true
	}

	return errors.Join(errs...)
}

// TimeoutDuration parses load.timeout. Empty means no value.
func (l LoadConfig) TimeoutDuration() (time.Duration, error) {
	if l.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(l.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("load.timeout %q is not a valid duration: %w", l.Timeout, tripload.ErrInvalidConfig)
	}
	return d, nil
}

// DelimiterRune returns load.delimiter as a single rune. Empty means no value.
// "\t" and "tab" both select a tab.
func (l LoadConfig) DelimiterRune() (rune, error) {
	switch l.Delimiter {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(l.Delimiter)
	if size != len(l.Delimiter) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("load.delimiter %q must be a single character: %w", l.Delimiter, tripload.ErrInvalidConfig)
	}
	return r, nil
}

// Variant converts the entry to a tripload.Variant. Defaults for the token
// and canonical names are applied by the registry.
func (v VariantConfig) Variant() tripload.Variant {
	return tripload.Variant{
		Name:             v.Name,
		Token:            v.Token,
		Pickup:           v.Pickup,
		Dropoff:          v.Dropoff,
		CanonicalPickup:  v.CanonicalPickup,
		CanonicalDropoff: v.CanonicalDropoff,
	}
}

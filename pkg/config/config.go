// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-tlspin/pkg/pinning"
)

// EnvConfigPath names the environment variable consulted when Load is
// called with an empty path.
const EnvConfigPath = "TLSPIN_CONFIG"

// Format is a configuration file encoding.
type Format int

const (
	// FormatJSON is the fallback for unknown extensions.
	FormatJSON Format = iota
	// FormatYAML covers .yaml and .yml.
	FormatYAML
	// FormatTOML covers .toml.
	FormatTOML
)

// String returns the lower-case format name.
func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "json"
	}
}

// Config is the on-disk pinning policy.
type Config struct {
	GlobalPolicy GlobalPolicy `json:"globalPolicy" yaml:"globalPolicy" toml:"globalPolicy"`
	Pins         []Pin        `json:"pins" yaml:"pins" toml:"pins"`
}

// GlobalPolicy mirrors pinning.GlobalPolicy. A nil field takes the default.
type GlobalPolicy struct {
	RequirePinningForAllAuthorities *bool `json:"requirePinningForAllAuthorities,omitempty" yaml:"requirePinningForAllAuthorities,omitempty" toml:"requirePinningForAllAuthorities,omitempty"`
}

// Pin is one pins[] entry.
type Pin struct {
	Authorities                     []string            `json:"authorities" yaml:"authorities" toml:"authorities"`
	LeafPublicKeys                  []string            `json:"leafPublicKeys,omitempty" yaml:"leafPublicKeys,omitempty" toml:"leafPublicKeys,omitempty"`
	ChainPublicKeySets              []ChainPublicKeySet `json:"chainPublicKeySets,omitempty" yaml:"chainPublicKeySets,omitempty" toml:"chainPublicKeySets,omitempty"`
	AllowWithoutAnyPins             bool                `json:"allowWithoutAnyPins,omitempty" yaml:"allowWithoutAnyPins,omitempty" toml:"allowWithoutAnyPins,omitempty"`
	DangerouslyAcceptAnyCertificate bool                `json:"dangerouslyAcceptAnyCertificate,omitempty" yaml:"dangerouslyAcceptAnyCertificate,omitempty" toml:"dangerouslyAcceptAnyCertificate,omitempty"`
}

// ChainPublicKeySet is one "any of these" group of chain keys.
type ChainPublicKeySet struct {
	Name       string   `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	PublicKeys []string `json:"publicKeys" yaml:"publicKeys" toml:"publicKeys"`
}

// DetectFormat determines the configuration format from the file extension.
// Matching is case-insensitive; unknown extensions are treated as JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Load reads the policy at path, or at $TLSPIN_CONFIG when path is empty,
// and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: pass --config or set %s", ErrNoConfigPath, EnvConfigPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}
	cfg, err := Parse(data, DetectFormat(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the given format and validates the result.
// Unknown keys and additional documents are rejected. An empty document
// yields an empty policy.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := &Config{}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err := dec.Decode(cfg)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: yaml: %w", ErrParseConfig, err)
		}
		if err == nil {
			var extra yaml.Node
			if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: yaml: multiple documents", ErrParseConfig)
			}
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: toml: %w", ErrParseConfig, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: toml: unknown key %q", ErrParseConfig, undecoded[0].String())
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err := dec.Decode(cfg)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: json: %w", ErrParseConfig, err)
		}
		if err == nil {
			if _, err := dec.Token(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: json: trailing data after policy document", ErrParseConfig)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks each pin for authorities and non-blank keys, and each
// chain set for at least one key. Duplicate authorities are detected later
// by Registry.
func (c *Config) Validate() error {
	for i, pin := range c.Pins {
		if len(pin.Authorities) == 0 {
			return fmt.Errorf("%w: pins[%d]: %w", ErrInvalidConfig, i, pinning.ErrEmptyAuthorities)
		}
		for j, a := range pin.Authorities {
			if strings.TrimSpace(a) == "" {
				return fmt.Errorf("%w: pins[%d].authorities[%d]: %w", ErrInvalidConfig, i, j, pinning.ErrInvalidAuthority)
			}
		}
		for j, k := range pin.LeafPublicKeys {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("%w: pins[%d].leafPublicKeys[%d] is blank", ErrInvalidConfig, i, j)
			}
		}
		for j, set := range pin.ChainPublicKeySets {
			if len(set.PublicKeys) == 0 {
				return fmt.Errorf("%w: pins[%d].chainPublicKeySets[%d] has no publicKeys", ErrInvalidConfig, i, j)
			}
			for k, key := range set.PublicKeys {
				if strings.TrimSpace(key) == "" {
					return fmt.Errorf("%w: pins[%d].chainPublicKeySets[%d].publicKeys[%d] is blank", ErrInvalidConfig, i, j, k)
				}
			}
		}
	}
	return nil
}

// Policy returns the global policy with defaults applied.
func (c *Config) Policy() pinning.GlobalPolicy {
	policy := pinning.DefaultGlobalPolicy()
	if c.GlobalPolicy.RequirePinningForAllAuthorities != nil {
		policy.RequirePinningForAllAuthorities = *c.GlobalPolicy.RequirePinningForAllAuthorities
	}
	return policy
}

// DomainPins converts the configured pins into engine types.
func (c *Config) DomainPins() []pinning.DomainPin {
	pins := make([]pinning.DomainPin, 0, len(c.Pins))
	for _, p := range c.Pins {
		pins = append(pins, p.DomainPin())
	}
	return pins
}

// Registry builds the pin registry. A *pinning.ConfigError is returned
// unchanged for duplicate or empty authorities.
func (c *Config) Registry() (*pinning.Registry, error) {
	return pinning.BuildRegistry(c.DomainPins())
}

// DomainPin converts p into its engine representation. Unnamed chain sets
// are named chain-set-<n>, counting from 1.
func (p Pin) DomainPin() pinning.DomainPin {
	dp := pinning.DomainPin{
		Authorities:                     append([]string(nil), p.Authorities...),
		LeafKeys:                        pinning.NewKeySet(p.LeafPublicKeys...),
		AllowWithoutAnyPins:             p.AllowWithoutAnyPins,
		DangerouslyAcceptAnyCertificate: p.DangerouslyAcceptAnyCertificate,
	}
	for i, set := range p.ChainPublicKeySets {
		name := set.Name
		if name == "" {
			name = fmt.Sprintf("chain-set-%d", i+1)
		}
		dp.ChainKeySets = append(dp.ChainKeySets, pinning.NewPublicKeySet(name, set.PublicKeys...))
	}
	return dp
}

// PinFromDomain converts an engine pin back into its configuration form.
// Keys are emitted in canonical (lower-case, sorted) order.
func PinFromDomain(dp pinning.DomainPin) Pin {
	p := Pin{
		Authorities:                     append([]string(nil), dp.Authorities...),
		LeafPublicKeys:                  dp.LeafKeys.Keys(),
		AllowWithoutAnyPins:             dp.AllowWithoutAnyPins,
		DangerouslyAcceptAnyCertificate: dp.DangerouslyAcceptAnyCertificate,
	}
	if len(p.LeafPublicKeys) == 0 {
		p.LeafPublicKeys = nil
	}
	for _, set := range dp.ChainKeySets {
		p.ChainPublicKeySets = append(p.ChainPublicKeySets, ChainPublicKeySet{
			Name:       set.Name,
			PublicKeys: set.Keys.Keys(),
		})
	}
	return p
}

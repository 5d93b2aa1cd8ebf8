// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package config loads the pinning policy from YAML, TOML, or JSON files and
// converts it into the registry and global policy consumed by the engine.
package config

import "errors"

var (
	// ErrNoConfigPath is returned when neither a path nor TLSPIN_CONFIG is set.
	ErrNoConfigPath = errors.New("config: no configuration path provided")

	// ErrReadConfig is returned when the configuration file cannot be read.
	ErrReadConfig = errors.New("config: failed to read configuration")

	// ErrParseConfig is returned when the configuration cannot be decoded.
	ErrParseConfig = errors.New("config: failed to parse configuration")

	// ErrInvalidConfig is returned when the configuration fails validation.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

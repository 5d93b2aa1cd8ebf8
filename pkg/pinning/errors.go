// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package pinning implements the certificate pinning decision engine. A
// Registry maps network authorities to DomainPin policies, and the Engine
// combines the platform's X.509 validation result with the pinned leaf and
// chain public keys to accept or reject each TLS connection.
//
// The engine compares opaque, already-canonicalized public-key strings. It
// performs no cryptography, no I/O and holds no mutable state, so Decide is
// safe to call concurrently from any number of handshakes.
package pinning

import (
	"errors"
	"fmt"
)

// Configuration errors are fatal and returned only while building a Registry.
var (
	// ErrDuplicateAuthority indicates the same authority is claimed by more
	// than one DomainPin.
	ErrDuplicateAuthority = errors.New("pinning: duplicate authority")

	// ErrEmptyAuthorities indicates a DomainPin lists no authorities.
	ErrEmptyAuthorities = errors.New("pinning: pin has no authorities")

	// ErrInvalidAuthority indicates a blank authority string.
	ErrInvalidAuthority = errors.New("pinning: invalid authority")

	// ErrNilRegistry is returned by NewEngine when no registry is supplied.
	ErrNilRegistry = errors.New("pinning: registry is nil")
)

// ConfigError reports which pin entry and authority caused a registry build
// failure.
type ConfigError struct {
	// Index is the position of the offending DomainPin in the build input.
	Index int

	// Authority is the normalized authority involved, if any.
	Authority string

	// Err is one of the configuration sentinel errors.
	Err error
}

// Error returns a message naming the pin index and authority.
func (e *ConfigError) Error() string {
	if e.Authority == "" {
		return fmt.Sprintf("%v (pin %d)", e.Err, e.Index)
	}
	return fmt.Sprintf("%v: %q (pin %d)", e.Err, e.Authority, e.Index)
}

// Unwrap returns the underlying sentinel for use with errors.Is.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

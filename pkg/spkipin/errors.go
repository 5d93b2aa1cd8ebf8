// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package spkipin connects the pinning engine to crypto/tls. It derives the
// canonical public-key string for each certificate (hex SHA-256 of the
// SubjectPublicKeyInfo), classifies platform chain validation failures, and
// enforces engine decisions from the handshake's VerifyConnection callback.
package spkipin

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-tlspin/pkg/pinning"
)

var (
	// ErrNoEngine is returned when a verifier or client is built without an engine.
	ErrNoEngine = errors.New("spkipin: no pinning engine configured")

	// ErrPinRejected is wrapped by every RejectionError.
	ErrPinRejected = errors.New("spkipin: rejected by pinning policy")

	// ErrInvalidPinFormat is returned when a pin is not 64 hex characters.
	ErrInvalidPinFormat = errors.New("spkipin: invalid pin format")

	// ErrProbeFailed is returned when a probe fails for reasons other than
	// a pinning rejection.
	ErrProbeFailed = errors.New("spkipin: probe failed")
)

// RejectionError is returned from the TLS handshake when the engine rejects
// the peer. The peer only receives a generic bad-certificate alert.
type RejectionError struct {
	// Authority is the normalized authority that was evaluated.
	Authority string

	// Reason is the engine's rejection reason.
	Reason pinning.Reason
}

// Error returns a message naming the authority and reason.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("spkipin: connection to %s rejected by pinning policy: %s", e.Authority, e.Reason)
}

// Unwrap returns ErrPinRejected for use with errors.Is.
func (e *RejectionError) Unwrap() error {
	return ErrPinRejected
}

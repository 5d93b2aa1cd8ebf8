// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package dane looks up RFC 6698 TLSA records and converts them into
// pinning policy. Records that identify a SubjectPublicKeyInfo become
// SPKI pins in the same canonical form the TLS verifier computes.
package dane

import "errors"

// DNS lookup errors indicate issues resolving TLSA records.
var (
	// ErrNoTLSARecords indicates no TLSA records were found for the queried name.
	ErrNoTLSARecords = errors.New("dane: no TLSA records found")

	// ErrDNSLookupFailed indicates the DNS query for TLSA records failed.
	ErrDNSLookupFailed = errors.New("dane: DNS lookup failed")

	// ErrDNSSECRequired indicates DNSSEC validation is required but the
	// Authenticated Data (AD) flag was not set in the DNS response.
	ErrDNSSECRequired = errors.New("dane: DNSSEC validation required but AD flag not set")
)

// Record conversion errors.
var (
	// ErrUnsupportedRecord indicates a TLSA record cannot be expressed as an
	// SPKI SHA-256 pin (SHA-512 digests, or digests over the full certificate).
	ErrUnsupportedRecord = errors.New("dane: TLSA record cannot be converted to an SPKI pin")

	// ErrInvalidRecord indicates a nil or malformed TLSA record.
	ErrInvalidRecord = errors.New("dane: invalid TLSA record")

	// ErrNoUsableRecords indicates none of the records could be converted.
	ErrNoUsableRecords = errors.New("dane: no usable TLSA records")
)

// Input validation errors indicate invalid parameters were provided.
var (
	// ErrInvalidHostname indicates an empty or malformed hostname was provided.
	ErrInvalidHostname = errors.New("dane: invalid hostname")

	// ErrInvalidPort indicates port number zero was provided.
	ErrInvalidPort = errors.New("dane: invalid port")

	// ErrResolverConfig indicates the resolver configuration is invalid.
	ErrResolverConfig = errors.New("dane: invalid resolver configuration")
)

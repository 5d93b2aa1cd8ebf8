// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// Certificate Usage values as defined in RFC 6698 Section 2.1.1.
const (
	// UsageCAConstraint (PKIX-TA) constrains which CA can issue certificates
	// for the service.
	UsageCAConstraint uint8 = 0

	// UsageServiceCert (PKIX-EE) pins a specific end-entity certificate.
	UsageServiceCert uint8 = 1

	// UsageDANETA (DANE-TA) specifies a trust anchor for the domain.
	UsageDANETA uint8 = 2

	// UsageDANEEE (DANE-EE) pins a specific end-entity certificate.
	UsageDANEEE uint8 = 3
)

// Selector values as defined in RFC 6698 Section 2.1.2.
const (
	// SelectorFullCert selects the full DER-encoded certificate.
	SelectorFullCert uint8 = 0

	// SelectorSPKI selects the DER-encoded SubjectPublicKeyInfo.
	SelectorSPKI uint8 = 1
)

// Matching Type values as defined in RFC 6698 Section 2.1.3.
const (
	// MatchingExact carries the selected data unhashed.
	MatchingExact uint8 = 0

	// MatchingSHA256 carries a SHA-256 digest of the selected data.
	MatchingSHA256 uint8 = 1

	// MatchingSHA512 carries a SHA-512 digest of the selected data.
	MatchingSHA512 uint8 = 2
)

// TLSARecord represents a parsed TLSA resource record as defined in RFC 6698 Section 2.1.
type TLSARecord struct {
	// Usage is the Certificate Usage field (0-3).
	Usage uint8

	// Selector is the Selector field (0-1).
	Selector uint8

	// MatchingType is the Matching Type field (0-2).
	MatchingType uint8

	// CertData is the Certificate Association Data: a hash digest or raw
	// certificate/SPKI bytes depending on MatchingType.
	CertData []byte
}

// String formats the record in zone-file presentation order.
func (r *TLSARecord) String() string {
	return fmt.Sprintf("%d %d %d %s", r.Usage, r.Selector, r.MatchingType, hex.EncodeToString(r.CertData))
}

// ResolverConfig configures the DNS resolver used for TLSA lookups.
type ResolverConfig struct {
	// Server is the DNS resolver address (e.g., "8.8.8.8:53").
	// When empty, the system resolver from /etc/resolv.conf is used.
	Server string

	// UseTLS enables DNS-over-TLS (DoT) on port 853.
	UseTLS bool

	// TLSServerName is the SNI value for DNS-over-TLS connections.
	TLSServerName string

	// RequireAD requires the Authenticated Data (AD) flag in DNS responses,
	// indicating the resolver has validated DNSSEC signatures.
	RequireAD bool

	// Timeout is the maximum duration for a DNS query.
	// Default: 5 seconds.
	Timeout time.Duration

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

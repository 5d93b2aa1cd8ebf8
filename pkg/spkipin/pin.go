// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package spkipin

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ComputeSPKIPin computes the SHA-256 hash of a certificate's SubjectPublicKeyInfo (SPKI).
// Returns the lower-case hex-encoded hash, the canonical key string compared
// by the pinning engine.
func ComputeSPKIPin(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return hex.EncodeToString(hash[:])
}

// ChainKeys returns the SPKI pin of every non-nil certificate in order.
func ChainKeys(certs []*x509.Certificate) []string {
	keys := make([]string, 0, len(certs))
	for _, cert := range certs {
		if cert == nil {
			continue
		}
		keys = append(keys, ComputeSPKIPin(cert))
	}
	return keys
}

// VerifiedChainKeys returns the pins of every certificate across all
// verified chains, each pin once, in first-seen order. Cross-signed
// intermediates and alternate roots from any chain are included.
func VerifiedChainKeys(chains [][]*x509.Certificate) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, chain := range chains {
		for _, key := range ChainKeys(chain) {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// ValidatePin reports whether pin looks like a hex-encoded SHA-256 SPKI pin.
// Case is ignored.
func ValidatePin(pin string) error {
	pinBytes, err := hex.DecodeString(strings.TrimSpace(pin))
	if err != nil || len(pinBytes) != sha256.Size {
		return fmt.Errorf("%w: expected 64 hex chars, got %q", ErrInvalidPinFormat, pin)
	}
	return nil
}

// AuthorityFromAddr converts a dial address into a host[:port] authority,
// dropping the default HTTPS port.
func AuthorityFromAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if port == "443" || port == "" {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}

// AuthorityFromURL returns the authority for an https URL.
func AuthorityFromURL(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "443"
	}
	return AuthorityFromAddr(net.JoinHostPort(u.Hostname(), port))
}

// hostFromAuthority strips any port and IPv6 brackets.
func hostFromAuthority(authority string) string {
	if host, _, err := net.SplitHostPort(authority); err == nil {
		return host
	}
	return strings.Trim(authority, "[]")
}

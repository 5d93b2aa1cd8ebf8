// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import "strings"

// TLSErrors is the flag-set of failures reported by standard X.509 chain
// validation. TLSErrorsNone means validation succeeded.
type TLSErrors uint8

const (
	// TLSErrorsNone indicates standard chain validation succeeded.
	TLSErrorsNone TLSErrors = 0

	// TLSErrorCertificateMissing indicates the peer presented no certificate.
	TLSErrorCertificateMissing TLSErrors = 1 << iota

	// TLSErrorHostnameMismatch indicates the leaf is not valid for the host.
	TLSErrorHostnameMismatch

	// TLSErrorUnknownAuthority indicates the chain does not end in a trusted root.
	TLSErrorUnknownAuthority

	// TLSErrorExpired indicates a certificate is outside its validity period.
	TLSErrorExpired

	// TLSErrorChainInvalid covers every other chain building failure.
	TLSErrorChainInvalid
)

var tlsErrorNames = []struct {
	flag TLSErrors
	name string
}{
	{TLSErrorCertificateMissing, "certificate_missing"},
	{TLSErrorHostnameMismatch, "hostname_mismatch"},
	{TLSErrorUnknownAuthority, "unknown_authority"},
	{TLSErrorExpired, "expired"},
	{TLSErrorChainInvalid, "chain_invalid"},
}

// Has reports whether every flag in f is set.
func (e TLSErrors) Has(f TLSErrors) bool {
	return e&f == f
}

// String returns the set flags joined with "|", or "none".
func (e TLSErrors) String() string {
	if e == TLSErrorsNone {
		return "none"
	}
	parts := make([]string, 0, len(tlsErrorNames))
	for _, n := range tlsErrorNames {
		if e&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}

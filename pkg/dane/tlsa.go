// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
)

// IsEndEntity reports whether the record constrains the server's own
// certificate (PKIX-EE or DANE-EE).
func (r *TLSARecord) IsEndEntity() bool {
	return r.Usage == UsageServiceCert || r.Usage == UsageDANEEE
}

// IsTrustAnchor reports whether the record constrains an issuing CA
// (PKIX-TA or DANE-TA).
func (r *TLSARecord) IsTrustAnchor() bool {
	return r.Usage == UsageCAConstraint || r.Usage == UsageDANETA
}

// spkiConverters maps (selector, matching type) to a function returning the
// SHA-256 of the SubjectPublicKeyInfo the record designates.
var spkiConverters = map[[2]uint8]func(data []byte) ([]byte, error){
	{SelectorSPKI, MatchingSHA256}: func(d []byte) ([]byte, error) {
		if len(d) != sha256.Size {
			return nil, fmt.Errorf("%w: SHA-256 digest has %d bytes", ErrInvalidRecord, len(d))
		}
		return d, nil
	},
	{SelectorSPKI, MatchingExact}: func(d []byte) ([]byte, error) {
		h := sha256.Sum256(d)
		return h[:], nil
	},
	{SelectorFullCert, MatchingExact}: func(d []byte) ([]byte, error) {
		cert, err := x509.ParseCertificate(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
		h := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
		return h[:], nil
	},
}

// SPKIPin returns the lower-case hex SHA-256 of the SubjectPublicKeyInfo
// designated by the record. Digests over the full certificate and SHA-512
// digests cannot be converted and return ErrUnsupportedRecord.
func (r *TLSARecord) SPKIPin() (string, error) {
	if r == nil || len(r.CertData) == 0 {
		return "", ErrInvalidRecord
	}
	convert, ok := spkiConverters[[2]uint8{r.Selector, r.MatchingType}]
	if !ok {
		return "", fmt.Errorf("%w: selector %d matching type %d", ErrUnsupportedRecord, r.Selector, r.MatchingType)
	}
	sum, err := convert(r.CertData)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

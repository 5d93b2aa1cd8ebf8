// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import "github.com/jeremyhahn/go-tlspin/pkg/pinning"

// ChainKeySetName names the chain key set produced by PinFromTLSA.
const ChainKeySetName = "dane"

// PinFromTLSA converts TLSA records into a DomainPin for authorities.
//
// A connection satisfies DANE when any certificate matches any record.
// When every usable record is end-entity the keys become LeafKeys. Otherwise
// all keys go into a single chain key set, which the engine satisfies when
// any certificate in the chain (leaf included) carries one of them.
// Unconvertible records are skipped.
func PinFromTLSA(authorities []string, records []*TLSARecord) (pinning.DomainPin, error) {
	pin := pinning.DomainPin{Authorities: append([]string(nil), authorities...)}
	if len(authorities) == 0 {
		return pin, pinning.ErrEmptyAuthorities
	}

	var (
		keys         []string
		trustAnchors int
	)
	for _, rec := range records {
		if rec == nil || !(rec.IsEndEntity() || rec.IsTrustAnchor()) {
			continue
		}
		key, err := rec.SPKIPin()
		if err != nil {
			continue
		}
		if rec.IsTrustAnchor() {
			trustAnchors++
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return pin, ErrNoUsableRecords
	}

	if trustAnchors == 0 {
		pin.LeafKeys = pinning.NewKeySet(keys...)
	} else {
		pin.ChainKeySets = []pinning.PublicKeySet{pinning.NewPublicKeySet(ChainKeySetName, keys...)}
	}
	return pin, nil
}

// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"slices"
	"strings"
)

// defaultHTTPSPortSuffix is dropped from authorities so "host" and
// "host:443" resolve to the same pin.
const defaultHTTPSPortSuffix = ":443"

// Registry is an immutable authority to DomainPin lookup. It is built once
// with BuildRegistry and is safe for concurrent use without locking.
type Registry struct {
	pins map[string]*DomainPin
}

// BuildRegistry expands every pin across its authorities and indexes the
// result. It fails with a *ConfigError wrapping ErrDuplicateAuthority when
// two different pins claim the same authority, ErrEmptyAuthorities when a
// pin lists none, and ErrInvalidAuthority for blank entries and unbracketed
// IPv6 literals. Listing the
// same authority twice inside one pin is not an error.
//
// The pins are copied; later changes to the input do not affect the registry.
func BuildRegistry(pins []DomainPin) (*Registry, error) {
	index := make(map[string]*DomainPin)
	owner := make(map[string]int)

	for i := range pins {
		if len(pins[i].Authorities) == 0 {
			return nil, &ConfigError{Index: i, Err: ErrEmptyAuthorities}
		}

		pin := clonePin(&pins[i])
		for _, raw := range pin.Authorities {
			authority := NormalizeAuthority(raw)
			if authority == "" {
				return nil, &ConfigError{Index: i, Err: ErrInvalidAuthority}
			}
			if isUnbracketedIPv6(authority) {
				return nil, &ConfigError{Index: i, Authority: authority, Err: ErrInvalidAuthority}
			}
			if prev, ok := owner[authority]; ok {
				if prev == i {
					continue
				}
				return nil, &ConfigError{Index: i, Authority: authority, Err: ErrDuplicateAuthority}
			}
			owner[authority] = i
			index[authority] = pin
		}
	}

	return &Registry{pins: index}, nil
}

// Lookup returns the pin for authority, ignoring case and the default
// HTTPS port.
func (r *Registry) Lookup(authority string) (*DomainPin, bool) {
	if r == nil {
		return nil, false
	}
	pin, ok := r.pins[NormalizeAuthority(authority)]
	return pin, ok
}

// Len returns the number of registered authorities.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.pins)
}

// Authorities returns the registered authorities in sorted order.
func (r *Registry) Authorities() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.pins))
	for a := range r.pins {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// NormalizeAuthority returns the canonical registry key for a host[:port]
// authority: trimmed, lower-cased, without a trailing root dot on the host
// and without the default HTTPS port. IPv6 literals must be bracketed; an
// unbracketed one is returned unchanged apart from case and never matches a
// connection authority.
func NormalizeAuthority(authority string) string {
	a := strings.ToLower(strings.TrimSpace(authority))
	if strings.HasPrefix(a, "[") {
		return strings.TrimSuffix(a, defaultHTTPSPortSuffix)
	}
	host, port, ok := strings.Cut(a, ":")
	if !ok {
		return strings.TrimSuffix(a, ".")
	}
	if strings.Contains(port, ":") {
		return a
	}
	host = strings.TrimSuffix(host, ".")
	if ":"+port == defaultHTTPSPortSuffix {
		return host
	}
	return host + ":" + port
}

// isUnbracketedIPv6 reports whether a normalized authority is an IPv6
// literal written without brackets.
func isUnbracketedIPv6(authority string) bool {
	return !strings.HasPrefix(authority, "[") && strings.Count(authority, ":") > 1
}

func clonePin(p *DomainPin) *DomainPin {
	cp := *p
	cp.Authorities = slices.Clone(p.Authorities)
	cp.ChainKeySets = slices.Clone(p.ChainKeySets)
	return &cp
}

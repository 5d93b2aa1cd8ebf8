// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

// PublicKeySet is one link of the chain that must be matched: at least one
// certificate in the presented chain must carry a key from Keys.
type PublicKeySet struct {
	// Name identifies the set in diagnostics.
	Name string

	// Keys are the acceptable public-key strings for this link.
	Keys KeySet
}

// NewPublicKeySet returns a named PublicKeySet over keys.
func NewPublicKeySet(name string, keys ...string) PublicKeySet {
	return PublicKeySet{Name: name, Keys: NewKeySet(keys...)}
}

// SatisfiedBy reports whether any of chainKeys is a member of the set.
func (s PublicKeySet) SatisfiedBy(chainKeys []string) bool {
	return s.Keys.ContainsAny(chainKeys)
}

// DomainPin is the pinning policy for one or more authorities.
//
// LeafKeys and ChainKeySets combine with AND: when both are populated the
// leaf must match LeafKeys and every chain set must be satisfied. Within a
// chain set a single matching certificate is enough.
type DomainPin struct {
	// Authorities are the host[:port] identities this pin applies to.
	Authorities []string

	// LeafKeys is the allow-list for the end-entity certificate's key.
	LeafKeys KeySet

	// ChainKeySets must each be satisfied by some certificate in the chain.
	ChainKeySets []PublicKeySet

	// AllowWithoutAnyPins accepts connections when neither LeafKeys nor
	// ChainKeySets are populated.
	AllowWithoutAnyPins bool

	// DangerouslyAcceptAnyCertificate accepts connections even when the
	// platform reported TLS validation errors.
	DangerouslyAcceptAnyCertificate bool
}

// HasPins reports whether the pin carries any leaf or chain keys.
func (p *DomainPin) HasPins() bool {
	return !p.LeafKeys.IsEmpty() || len(p.ChainKeySets) > 0
}

// GlobalPolicy holds settings that apply to authorities without a pin.
type GlobalPolicy struct {
	// RequirePinningForAllAuthorities rejects every authority that has no
	// DomainPin. When false such authorities fall back to platform TLS
	// validation only.
	RequirePinningForAllAuthorities bool
}

// DefaultGlobalPolicy returns the secure default: pinning is required for
// every authority.
func DefaultGlobalPolicy() GlobalPolicy {
	return GlobalPolicy{RequirePinningForAllAuthorities: true}
}

// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"slices"
	"strings"
)

// KeySet is an immutable set of public-key strings. Members are stored in
// canonical lower-case form so membership is case-insensitive.
type KeySet struct {
	keys map[string]struct{}
}

// NewKeySet builds a KeySet from the given keys. Surrounding whitespace is
// trimmed and blank entries are ignored.
func NewKeySet(keys ...string) KeySet {
	set := KeySet{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		c := canonicalKey(k)
		if c == "" {
			continue
		}
		set.keys[c] = struct{}{}
	}
	return set
}

// Contains reports whether key is a member of the set, ignoring case.
func (s KeySet) Contains(key string) bool {
	if len(s.keys) == 0 {
		return false
	}
	_, ok := s.keys[canonicalKey(key)]
	return ok
}

// ContainsAny reports whether at least one of keys is a member of the set.
func (s KeySet) ContainsAny(keys []string) bool {
	for _, k := range keys {
		if s.Contains(k) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct keys.
func (s KeySet) Len() int {
	return len(s.keys)
}

// IsEmpty reports whether the set has no members.
func (s KeySet) IsEmpty() bool {
	return len(s.keys) == 0
}

// Keys returns the canonical members in sorted order.
func (s KeySet) Keys() []string {
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func canonicalKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import "log/slog"

// EngineConfig configures a decision Engine.
type EngineConfig struct {
	// Registry holds the per-authority pins. Required.
	Registry *Registry

	// Policy applies to authorities without a pin.
	Policy GlobalPolicy

	// Reporter receives a diagnostic event for every decision. If nil,
	// events are logged through NewSlogReporter(slog.Default()).
	Reporter Reporter
}

// Input is the per-connection data the engine evaluates.
type Input struct {
	// Authority is the host[:port] identity of the peer.
	Authority string

	// TLSErrors is the result of standard chain validation.
	TLSErrors TLSErrors

	// LeafKey is the canonical public-key string of the end-entity
	// certificate. Empty means the certificate was not available.
	LeafKey string

	// ChainKeys are the canonical public-key strings of every certificate
	// in the built chain, leaf included. Empty means no chain was available.
	ChainKeys []string
}

// Engine evaluates pinning decisions against an immutable registry.
type Engine struct {
	registry *Registry
	policy   GlobalPolicy
	reporter Reporter
}

// NewEngine creates an Engine from cfg.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg == nil || cfg.Registry == nil {
		return nil, ErrNilRegistry
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = NewSlogReporter(nil)
	}
	return &Engine{
		registry: cfg.Registry,
		policy:   cfg.Policy,
		reporter: reporter,
	}, nil
}

// Registry returns the registry the engine evaluates against.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Policy returns the global policy.
func (e *Engine) Policy() GlobalPolicy {
	return e.policy
}

// Decide evaluates in and returns the decision. It never fails: every
// combination of inputs yields an accepting decision or a Reject with a reason. Branches
// are evaluated in a fixed order and the first one that applies wins.
func (e *Engine) Decide(in Input) Decision {
	ev := Event{
		Authority: NormalizeAuthority(in.Authority),
		TLSErrors: in.TLSErrors,
	}

	if canonicalKey(in.LeafKey) == "" || len(in.ChainKeys) == 0 {
		return e.reject(ev, in, ReasonNoChainOrCertificate, slog.LevelError,
			"certificate or chain unavailable")
	}
	if ev.Authority == "" {
		return e.reject(ev, in, ReasonNoResolvableAuthority, slog.LevelError,
			"no resolvable authority")
	}

	pin, ok := e.registry.Lookup(ev.Authority)
	if !ok {
		if e.policy.RequirePinningForAllAuthorities {
			return e.reject(ev, in, ReasonPinningRequiredButAbsent, slog.LevelWarn,
				"no pin configured, pinning required")
		}
		if in.TLSErrors != TLSErrorsNone {
			return e.reject(ev, in, ReasonTLSErrorsNotAccepted, slog.LevelWarn,
				"no pin configured, platform validation failed")
		}
		return e.accept(ev, slog.LevelDebug, "no pin configured, platform validation passed")
	}
	ev.PinConfigured = true

	if in.TLSErrors != TLSErrorsNone {
		if pin.DangerouslyAcceptAnyCertificate {
			return e.accept(ev, slog.LevelWarn,
				"platform validation failed, accepted by dangerouslyAcceptAnyCertificate")
		}
		return e.reject(ev, in, ReasonTLSErrorsNotAccepted, slog.LevelWarn,
			"platform validation failed")
	}

	if !pin.HasPins() {
		if pin.AllowWithoutAnyPins {
			return e.accept(ev, slog.LevelDebug, "pin configured without keys, allowed")
		}
		return e.reject(ev, in, ReasonNoPinsConfiguredAndNotAllowed, slog.LevelError,
			"pin configured without any pinned keys")
	}

	if !pin.LeafKeys.IsEmpty() && !pin.LeafKeys.Contains(in.LeafKey) {
		return e.reject(ev, in, ReasonLeafKeyMismatch, slog.LevelError,
			"leaf public key not pinned")
	}

	for _, set := range pin.ChainKeySets {
		if !set.SatisfiedBy(in.ChainKeys) {
			ev.UnsatisfiedKeySet = set.Name
			return e.reject(ev, in, ReasonChainKeySetUnsatisfied, slog.LevelError,
				"chain public key set not satisfied")
		}
	}

	return e.accept(ev, slog.LevelDebug, "pinned keys matched")
}

func (e *Engine) accept(ev Event, level slog.Level, msg string) Decision {
	ev.Decision = Accept()
	ev.Level = level
	ev.Message = msg
	e.reporter.Report(ev)
	return Accept()
}

func (e *Engine) reject(ev Event, in Input, reason Reason, level slog.Level, msg string) Decision {
	d := Reject(reason)
	ev.Decision = d
	ev.Level = level
	ev.Message = msg
	ev.LeafKey = in.LeafKey
	ev.ChainKeys = in.ChainKeys
	e.reporter.Report(ev)
	return d
}

// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

//go:generate mockgen -destination=mocks/mock_reporter.go -package=mocks github.com/jeremyhahn/go-tlspin/pkg/pinning Reporter

import (
	"context"
	"log/slog"
)

// Event is the diagnostic record emitted for every decision.
type Event struct {
	// Authority is the normalized authority that was evaluated.
	Authority string

	// Decision is the returned outcome.
	Decision Decision

	// Level is the severity: Debug for outcomes the policy expects, Warn or
	// Error for failures and overrides operators should see.
	Level slog.Level

	// Message describes the branch that produced the decision.
	Message string

	// TLSErrors is the platform validation result.
	TLSErrors TLSErrors

	// PinConfigured reports whether a DomainPin matched the authority.
	PinConfigured bool

	// LeafKey and ChainKeys are populated on rejections for audit.
	LeafKey   string
	ChainKeys []string

	// UnsatisfiedKeySet names the first chain key set with no match.
	UnsatisfiedKeySet string
}

// Reporter receives decision events. Implementations are called inline on
// the handshake path and must not block.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) {
	f(e)
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}

// NopReporter returns a Reporter that discards every event.
func NopReporter() Reporter {
	return nopReporter{}
}

// SlogReporter writes events to a structured logger at the event's level.
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter creates a reporter writing to logger, or slog.Default()
// when logger is nil.
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger.With("component", "pinning")}
}

// Report logs the event.
func (r *SlogReporter) Report(e Event) {
	ctx := context.Background()
	if !r.logger.Enabled(ctx, e.Level) {
		return
	}

	attrs := []slog.Attr{
		slog.String("authority", e.Authority),
		slog.String("decision", e.Decision.String()),
		slog.String("tls_errors", e.TLSErrors.String()),
		slog.Bool("pin_configured", e.PinConfigured),
	}
	if !e.Decision.Accepted {
		attrs = append(attrs,
			slog.String("reason", string(e.Decision.Reason)),
			slog.String("leaf_key", e.LeafKey),
			slog.Any("chain_keys", e.ChainKeys),
		)
	}
	if e.UnsatisfiedKeySet != "" {
		attrs = append(attrs, slog.String("key_set", e.UnsatisfiedKeySet))
	}
	r.logger.LogAttrs(ctx, e.Level, e.Message, attrs...)
}

// MultiReporter fans an event out to several reporters in order.
type MultiReporter []Reporter

// Report forwards e to every non-nil reporter.
func (m MultiReporter) Report(e Event) {
	for _, r := range m {
		if r != nil {
			r.Report(e)
		}
	}
}

// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package spkipin

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/jeremyhahn/go-tlspin/pkg/pinning"
)

// DefaultDialTimeout bounds the TCP connect and TLS handshake of DialTLSContext.
const DefaultDialTimeout = 10 * time.Second

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// Engine makes the pinning decision. Required.
	Engine *pinning.Engine

	// RootCAs is used for platform chain validation. When nil, the system
	// certificate pool is used.
	RootCAs *x509.CertPool

	// CurrentTime overrides the clock used for validity checks.
	CurrentTime func() time.Time

	// DialTimeout bounds DialTLSContext. Defaults to DefaultDialTimeout.
	DialTimeout time.Duration

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Verifier runs platform chain validation followed by the pinning engine
// for each TLS connection.
type Verifier struct {
	engine      *pinning.Engine
	roots       *x509.CertPool
	currentTime func() time.Time
	dialer      *net.Dialer
	logger      *slog.Logger
}

// NewVerifier creates a Verifier from cfg.
func NewVerifier(cfg *VerifierConfig) (*Verifier, error) {
	if cfg == nil || cfg.Engine == nil {
		return nil, ErrNoEngine
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.DialTimeout
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}
	return &Verifier{
		engine:      cfg.Engine,
		roots:       cfg.RootCAs,
		currentTime: cfg.CurrentTime,
		dialer:      &net.Dialer{Timeout: timeout},
		logger:      logger.With("component", "spkipin_verifier"),
	}, nil
}

// TLSConfig returns a client TLS configuration for authority. Built-in
// verification is disabled so the handshake always reaches VerifyConnection,
// which performs the platform validation itself and then applies the engine.
// base, if non-nil, is cloned first.
func (v *Verifier) TLSConfig(authority string, base *tls.Config) *tls.Config {
	var cfg *tls.Config
	if base != nil {
		cfg = base.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	host := hostFromAuthority(authority)
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	cfg.InsecureSkipVerify = true //nolint:gosec // chain validation runs in VerifyConnection
	cfg.VerifyPeerCertificate = nil
	cfg.VerifyConnection = func(cs tls.ConnectionState) error {
		d := v.Evaluate(authority, host, cs)
		if !d.Accepted {
			return &RejectionError{Authority: pinning.NormalizeAuthority(authority), Reason: d.Reason}
		}
		return nil
	}
	return cfg
}

// Evaluate validates the peer chain in cs against host and returns the
// engine's decision for authority.
func (v *Verifier) Evaluate(authority, host string, cs tls.ConnectionState) pinning.Decision {
	in := pinning.Input{Authority: authority}
	if len(cs.PeerCertificates) == 0 || cs.PeerCertificates[0] == nil {
		in.TLSErrors = pinning.TLSErrorCertificateMissing
		return v.engine.Decide(in)
	}

	leaf := cs.PeerCertificates[0]
	intermediates := x509.NewCertPool()
	for _, cert := range cs.PeerCertificates[1:] {
		if cert != nil {
			intermediates.AddCert(cert)
		}
	}

	opts := x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: intermediates,
	}
	if v.currentTime != nil {
		opts.CurrentTime = v.currentTime()
	}

	chainKeys := ChainKeys(cs.PeerCertificates)
	chains, err := leaf.Verify(opts)
	if err == nil && len(chains) > 0 {
		chainKeys = VerifiedChainKeys(chains)
	} else if err != nil {
		v.logger.Debug("platform chain validation failed", "authority", authority, "error", err)
	}
	in.TLSErrors = ClassifyVerifyError(err)

	if host != "" {
		if hostErr := leaf.VerifyHostname(host); hostErr != nil {
			in.TLSErrors |= pinning.TLSErrorHostnameMismatch
		}
	}

	in.LeafKey = ComputeSPKIPin(leaf)
	in.ChainKeys = chainKeys
	return v.engine.Decide(in)
}

// DialTLSContext dials addr and completes a pinned TLS handshake. It is
// suitable for http.Transport.DialTLSContext.
func (v *Verifier) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &tls.Dialer{
		NetDialer: v.dialer,
		Config:    v.TLSConfig(AuthorityFromAddr(addr), nil),
	}
	return d.DialContext(ctx, network, addr)
}

// ClassifyVerifyError maps an error from x509.Certificate.Verify onto the
// TLS error flag-set.
func ClassifyVerifyError(err error) pinning.TLSErrors {
	if err == nil {
		return pinning.TLSErrorsNone
	}

	var (
		hostErr     x509.HostnameError
		authErr     x509.UnknownAuthorityError
		invalidErr  x509.CertificateInvalidError
		systemRoots x509.SystemRootsError
	)
	switch {
	case errors.As(err, &hostErr):
		return pinning.TLSErrorHostnameMismatch
	case errors.As(err, &authErr), errors.As(err, &systemRoots):
		return pinning.TLSErrorUnknownAuthority
	case errors.As(err, &invalidErr):
		if invalidErr.Reason == x509.Expired {
			return pinning.TLSErrorExpired
		}
		return pinning.TLSErrorChainInvalid
	default:
		return pinning.TLSErrorChainInvalid
	}
}

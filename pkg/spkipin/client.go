// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package spkipin

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jeremyhahn/go-tlspin/pkg/pinning"
)

const (
	// DefaultRequestTimeout is the default timeout for pinned HTTP requests.
	DefaultRequestTimeout = 10 * time.Second

	// maxDrainSize caps how much of a probe response body is discarded.
	maxDrainSize = 1 << 16
)

// ClientConfig configures the pinned HTTP client.
type ClientConfig struct {
	// Engine makes the pinning decision for every connection. Required.
	Engine *pinning.Engine

	// RootCAs overrides the system pool for platform chain validation.
	RootCAs *x509.CertPool

	// Timeout is the overall HTTP request timeout. Defaults to DefaultRequestTimeout.
	Timeout time.Duration

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is an HTTP client whose TLS connections are subject to the
// pinning engine.
type Client struct {
	verifier   *Verifier
	httpClient *http.Client
	logger     *slog.Logger
}

// ProbeResult is the outcome of a single Probe.
type ProbeResult struct {
	// URL is the probed URL.
	URL string

	// Authority is the authority evaluated by the engine.
	Authority string

	// Accepted reports whether the pinning engine accepted the connection.
	Accepted bool

	// Reason is set when Accepted is false.
	Reason pinning.Reason

	// StatusCode is the HTTP status of an accepted probe.
	StatusCode int
}

// NewClient creates a new pinned HTTP client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil || cfg.Engine == nil {
		return nil, ErrNoEngine
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	verifier, err := NewVerifier(&VerifierConfig{
		Engine:      cfg.Engine,
		RootCAs:     cfg.RootCAs,
		DialTimeout: timeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		verifier: verifier,
		httpClient: &http.Client{
			Timeout: timeout,
			// No proxy: a CONNECT tunnel would bypass DialTLSContext.
			Transport: &http.Transport{
				DialTLSContext:      verifier.DialTLSContext,
				TLSHandshakeTimeout: timeout,
			},
		},
		logger: logger.With("component", "spkipin_client"),
	}, nil
}

// HTTPClient returns the underlying pinned *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Do sends req through the pinned transport.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// Probe issues a HEAD request to rawURL and reports whether the pinning
// engine accepted the connection. A pinning rejection is a normal result,
// not an error; transport failures return ErrProbeFailed.
func (c *Client) Probe(ctx context.Context, rawURL string) (*ProbeResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q is not an https URL", ErrProbeFailed, rawURL)
	}

	result := &ProbeResult{URL: rawURL, Authority: AuthorityFromURL(u)}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}

	c.logger.Debug("probing", "url", rawURL, "authority", result.Authority)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var rejected *RejectionError
		if errors.As(err, &rejected) {
			result.Reason = rejected.Reason
			return result, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize))

	result.Accepted = true
	result.StatusCode = resp.StatusCode
	return result, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

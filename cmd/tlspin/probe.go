// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeremyhahn/go-tlspin/pkg/metrics"
	"github.com/jeremyhahn/go-tlspin/pkg/pinning"
	"github.com/jeremyhahn/go-tlspin/pkg/spkipin"
)

const (
	// defaultProbeConcurrency caps simultaneous probes.
	defaultProbeConcurrency = 8

	// metricsShutdownTimeout bounds the metrics server shutdown.
	metricsShutdownTimeout = 5 * time.Second

	// outcomeError labels probes that failed before a decision was made.
	outcomeError = "error"
)

// probeCmd runs pinned HEAD requests against one or more URLs.
var probeCmd = &cobra.Command{
	Use:   "probe <https-url>...",
	Short: "Probe URLs through the pinning policy",
	Long: `Issue a HEAD request to each URL over a TLS connection that is subject to
the pin policy, and report whether the policy accepted the connection.

Exits 1 when any probe is rejected or fails. With --interval the probes
repeat until interrupted; combine with --metrics-addr to export decision
counters on /metrics.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().String("roots", "", "PEM file of trusted roots (default: system pool)")
	probeCmd.Flags().Duration("timeout", spkipin.DefaultRequestTimeout, "per-request timeout")
	probeCmd.Flags().Duration("interval", 0, "repeat probes at this interval until interrupted")
	probeCmd.Flags().Int("concurrency", defaultProbeConcurrency, "maximum concurrent probes")
	probeCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	probeCmd.Flags().Float64("rate", 0, "maximum probes per second per authority (0: unlimited)")
	probeCmd.Flags().Int("burst", 1, "probe burst per authority when --rate is set")
}

// probeOutcome is one line of probe output.
type probeOutcome struct {
	URL        string `json:"url"`
	Authority  string `json:"authority,omitempty"`
	Accepted   bool   `json:"accepted"`
	Reason     string `json:"reason,omitempty"`
	StatusCode int    `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (o probeOutcome) failed() bool {
	return !o.Accepted
}

func runProbe(cmd *cobra.Command, args []string) error {
	rootsFile, _ := cmd.Flags().GetString("roots")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	interval, _ := cmd.Flags().GetDuration("interval")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	probeRate, _ := cmd.Flags().GetFloat64("rate")
	burst, _ := cmd.Flags().GetInt("burst")

	if err := checkFormat(formatText, formatJSON); err != nil {
		return err
	}
	for _, raw := range args {
		if !strings.HasPrefix(raw, "https://") {
			return fmt.Errorf("%w: %q is not an https URL", ErrInvalidInput, raw)
		}
	}
	if concurrency < 1 {
		return fmt.Errorf("%w: --concurrency must be at least 1", ErrInvalidInput)
	}
	if probeRate < 0 {
		return fmt.Errorf("%w: --rate must not be negative", ErrInvalidInput)
	}

	cfg, reg, err := loadPolicy()
	if err != nil {
		return err
	}

	roots, err := loadRoots(rootsFile)
	if err != nil {
		return err
	}

	reporter := pinning.MultiReporter{pinning.NewSlogReporter(slog.Default())}
	var m *metrics.Metrics
	var promReg *prometheus.Registry
	if metricsAddr != "" {
		promReg = prometheus.NewRegistry()
		m = metrics.New(promReg)
		m.SetAuthorities(reg.Len())
		reporter = append(reporter, m)
	}

	engine, err := pinning.NewEngine(&pinning.EngineConfig{
		Registry: reg,
		Policy:   cfg.Policy(),
		Reporter: reporter,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	client, err := spkipin.NewClient(&spkipin.ClientConfig{
		Engine:  engine,
		RootCAs: roots,
		Timeout: timeout,
		Logger:  slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	defer client.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if promReg != nil {
		_, shutdown, err := serveMetrics(ctx, metricsAddr, promReg)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	limiter := newAuthorityLimiter(probeRate, burst)

	for {
		outcomes := probeAll(ctx, client, m, limiter, args, concurrency)
		if err := writeProbeOutcomes(outcomes); err != nil {
			return err
		}

		if interval <= 0 {
			failed := 0
			for _, o := range outcomes {
				if o.failed() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d probe(s) not accepted", ErrProbeFailed, failed, len(outcomes))
			}
			return nil
		}

		select {
		case <-ctx.Done():
			slog.Info("probe loop stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

// probeAll probes every URL with at most limit requests in flight. Probe
// failures are recorded in the outcome and do not cancel the others.
func probeAll(ctx context.Context, client *spkipin.Client, m *metrics.Metrics, limiter *authorityLimiter, urls []string, limit int) []probeOutcome {
	outcomes := make([]probeOutcome, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, raw := range urls {
		i, raw := i, raw
		g.Go(func() error {
			outcome := probeOutcome{URL: raw}
			if u, err := url.Parse(raw); err == nil {
				if err := limiter.Wait(gctx, spkipin.AuthorityFromURL(u)); err != nil {
					outcome.Error = err.Error()
					outcomes[i] = outcome
					return nil
				}
			}

			start := time.Now()
			result, err := client.Probe(gctx, raw)
			switch {
			case err != nil:
				outcome.Error = err.Error()
				m.ObserveProbe(outcomeError, time.Since(start))
			case result.Accepted:
				outcome.Authority = result.Authority
				outcome.Accepted = true
				outcome.StatusCode = result.StatusCode
				m.ObserveProbe(metrics.DecisionAccept, time.Since(start))
			default:
				outcome.Authority = result.Authority
				outcome.Reason = string(result.Reason)
				m.ObserveProbe(metrics.DecisionReject, time.Since(start))
			}

			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// writeProbeOutcomes writes one line per outcome.
func writeProbeOutcomes(outcomes []probeOutcome) error {
	var b strings.Builder
	for _, o := range outcomes {
		if format == formatJSON {
			data, err := json.Marshal(o)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrFileOperation, err)
			}
			b.Write(data)
			b.WriteByte('\n')
			continue
		}
		switch {
		case o.Error != "":
			fmt.Fprintf(&b, "ERROR  %s error=%q\n", o.URL, o.Error)
		case o.Accepted:
			fmt.Fprintf(&b, "ACCEPT %s authority=%s status=%d\n", o.URL, o.Authority, o.StatusCode)
		default:
			fmt.Fprintf(&b, "REJECT %s authority=%s reason=%s\n", o.URL, o.Authority, o.Reason)
		}
	}
	return writeOutput([]byte(b.String()))
}

// loadRoots reads a PEM bundle into a pool. An empty path selects the
// system pool.
func loadRoots(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, nil
	}
	certs, err := loadCertsFromPEMFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}
	slog.Debug("loaded trusted roots", "path", path, "certificates", len(certs))
	return pool, nil
}

// serveMetrics starts the /metrics endpoint and returns the bound address
// and a shutdown func.
func serveMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("%w: metrics listener: %w", ErrInvalidInput, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	bound := ln.Addr().String()
	slog.Info("serving metrics", "addr", bound)

	return bound, func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown", "error", err)
		}
	}, nil
}

// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/jeremyhahn/go-tlspin/pkg/pinning"
)

const (
	// defaultTimeout is the default DNS query timeout.
	defaultTimeout = 5 * time.Second

	// defaultDNSPort is the standard DNS port.
	defaultDNSPort = "53"

	// defaultDoTPort is the standard DNS-over-TLS port.
	defaultDoTPort = "853"
)

// Resolver performs DNS TLSA record lookups with optional DNSSEC validation
// and DNS-over-TLS support.
type Resolver struct {
	requireAD bool
	client    *dns.Client
	server    string
	logger    *slog.Logger
}

// NewResolver creates a new DANE resolver with the given configuration.
// A zero Timeout defaults to 5 seconds and an empty Server to the first
// nameserver in /etc/resolv.conf.
func NewResolver(cfg *ResolverConfig) (*Resolver, error) {
	if cfg == nil {
		return nil, ErrResolverConfig
	}

	// Apply defaults.
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &dns.Client{
		Timeout: timeout,
	}

	server := cfg.Server

	if cfg.UseTLS {
		client.Net = "tcp-tls"
		tlsCfg := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		if cfg.TLSServerName != "" {
			tlsCfg.ServerName = cfg.TLSServerName
		}
		client.TLSConfig = tlsCfg

		// Ensure DoT port if server is specified without port.
		if server != "" && !strings.Contains(server, ":") {
			server = server + ":" + defaultDoTPort
		}
	} else {
		client.Net = "udp"
		// Ensure DNS port if server is specified without port.
		if server != "" && !strings.Contains(server, ":") {
			server = server + ":" + defaultDNSPort
		}
	}

	// If no server specified, resolve from system configuration.
	if server == "" {
		systemCfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResolverConfig, err)
		}
		if len(systemCfg.Servers) == 0 {
			return nil, fmt.Errorf("%w: no nameservers in /etc/resolv.conf", ErrResolverConfig)
		}
		port := systemCfg.Port
		if port == "" {
			port = defaultDNSPort
		}
		server = systemCfg.Servers[0] + ":" + port
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		requireAD: cfg.RequireAD,
		client:    client,
		server:    server,
		logger:    logger.With("component", "dane_resolver", "server", server),
	}, nil
}

// LookupTLSA queries DNS for TLSA records associated with the given hostname
// and port. The DNS name is constructed as "_<port>._tcp.<hostname>." per
// RFC 6698 Section 3. If RequireAD is set in the resolver configuration,
// the response must have the Authenticated Data flag set.
func (r *Resolver) LookupTLSA(ctx context.Context, hostname string, port uint16) ([]*TLSARecord, error) {
	if hostname == "" {
		return nil, ErrInvalidHostname
	}
	if strings.ContainsRune(hostname, 0) {
		return nil, ErrInvalidHostname
	}
	if len(hostname) > 253 {
		return nil, ErrInvalidHostname
	}
	if port == 0 {
		return nil, ErrInvalidPort
	}

	qname := formatTLSAName(hostname, port)

	msg := new(dns.Msg)
	msg.SetQuestion(qname, dns.TypeTLSA)
	msg.SetEdns0(4096, true) // Enable DNSSEC OK (DO) bit.
	msg.RecursionDesired = true

	resp, rtt, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDNSLookupFailed, err)
	}

	if resp == nil {
		return nil, ErrDNSLookupFailed
	}

	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: rcode %s", ErrDNSLookupFailed, dns.RcodeToString[resp.Rcode])
	}

	r.logger.Debug("TLSA response",
		"qname", qname,
		"answers", len(resp.Answer),
		"ad", resp.AuthenticatedData,
		"rtt", rtt)

	if r.requireAD && !resp.AuthenticatedData {
		return nil, ErrDNSSECRequired
	}

	records := make([]*TLSARecord, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		tlsa, ok := rr.(*dns.TLSA)
		if !ok {
			continue
		}
		certData, err := hex.DecodeString(tlsa.Certificate)
		if err != nil {
			r.logger.Debug("skipping TLSA record with malformed data", "qname", qname, "error", err)
			continue
		}
		records = append(records, &TLSARecord{
			Usage:        tlsa.Usage,
			Selector:     tlsa.Selector,
			MatchingType: tlsa.MatchingType,
			CertData:     certData,
		})
	}

	if len(records) == 0 {
		return nil, ErrNoTLSARecords
	}

	return records, nil
}

// formatTLSAName constructs the DNS owner name for a TLSA query per RFC 6698.
// The format is "_<port>._tcp.<hostname>." with a trailing dot to form an
// absolute DNS name.
func formatTLSAName(hostname string, port uint16) string {
	// Ensure hostname ends with a dot for an absolute DNS name.
	if !strings.HasSuffix(hostname, ".") {
		hostname += "."
	}
	return fmt.Sprintf("_%d._tcp.%s", port, hostname)
}

// LookupPin resolves the TLSA records for hostname:port and converts them
// into a DomainPin for authorities. When authorities is empty the pin
// applies to hostname, or hostname:port for ports other than 443.
func (r *Resolver) LookupPin(ctx context.Context, hostname string, port uint16, authorities ...string) (pinning.DomainPin, []*TLSARecord, error) {
	records, err := r.LookupTLSA(ctx, hostname, port)
	if err != nil {
		return pinning.DomainPin{}, nil, err
	}
	if len(authorities) == 0 {
		authority := strings.TrimSuffix(hostname, ".")
		if port != 443 {
			authority = fmt.Sprintf("%s:%d", authority, port)
		}
		authorities = []string{authority}
	}
	pin, err := PinFromTLSA(authorities, records)
	if err != nil {
		return pinning.DomainPin{}, records, err
	}
	r.logger.Info("built pin from TLSA records",
		"hostname", hostname,
		"port", port,
		"records", len(records),
		"leaf_keys", pin.LeafKeys.Len(),
		"chain_sets", len(pin.ChainKeySets))
	return pin, records, nil
}

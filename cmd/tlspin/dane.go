// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-tlspin/pkg/config"
	"github.com/jeremyhahn/go-tlspin/pkg/dane"
)

const (
	// defaultDANEPort is the default TLS port for DANE/TLSA records.
	defaultDANEPort = 443

	// defaultDANEResolveTimeout is the default timeout for DNS resolution.
	defaultDANEResolveTimeout = 10 * time.Second
)

// daneCmd is the parent command for DANE/TLSA operations.
var daneCmd = &cobra.Command{
	Use:   "dane",
	Short: "Derive pins from DANE TLSA records",
	Long:  "Tools for reading DANE TLSA records (RFC 6698) and converting them into pin policy entries.",
}

// daneShowCmd displays TLSA records from DNS.
var daneShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display TLSA records for a domain",
	Long: `Query and display DANE TLSA records for a given hostname and port,
together with the SPKI pin each record converts to.`,
	RunE: runDANEShow,
}

// danePinsCmd emits a pin entry built from TLSA records.
var danePinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "Generate a pin policy entry from TLSA records",
	Long: `Resolve TLSA records for _<port>._tcp.<hostname> and emit a pins entry
in policy format (YAML by default, JSON with --format json).

End-entity records (usage 1 and 3) become leafPublicKeys. When any
trust-anchor record (usage 0 and 2) is present, all keys are emitted as a
single chain key set, matching DANE's any-record-matches semantics.
Records that do not designate an SPKI with SHA-256 or exact matching are
skipped.`,
	RunE: runDANEPins,
}

func init() {
	daneCmd.AddCommand(daneShowCmd)
	daneCmd.AddCommand(danePinsCmd)

	for _, cmd := range []*cobra.Command{daneShowCmd, danePinsCmd} {
		cmd.Flags().String("hostname", "", "hostname to query TLSA records for (required)")
		cmd.Flags().Int("port", defaultDANEPort, "port number for the TLSA record")
		cmd.Flags().String("dns-server", "", "DNS server address (e.g., 8.8.8.8:53)")
		cmd.Flags().Bool("dns-over-tls", false, "use DNS-over-TLS (DoT) for TLSA lookups")
		cmd.Flags().String("dns-tls-server-name", "", "TLS server name for DNS-over-TLS")
		cmd.Flags().Bool("require-ad", true, "require the DNSSEC Authenticated Data flag")
		cmd.Flags().Duration("timeout", defaultDANEResolveTimeout, "DNS query timeout")
	}
	danePinsCmd.Flags().StringSlice("authority", nil, "authorities for the pin (default: hostname[:port])")
}

// daneLookup holds the flags shared by the dane subcommands.
type daneLookup struct {
	hostname string
	port     uint16
	timeout  time.Duration
	resolver *dane.Resolver
}

func newDANELookup(cmd *cobra.Command) (*daneLookup, error) {
	hostname, _ := cmd.Flags().GetString("hostname")
	port, _ := cmd.Flags().GetInt("port")
	dnsServer, _ := cmd.Flags().GetString("dns-server")
	dnsOverTLS, _ := cmd.Flags().GetBool("dns-over-tls")
	dnsTLSServerName, _ := cmd.Flags().GetString("dns-tls-server-name")
	requireAD, _ := cmd.Flags().GetBool("require-ad")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if hostname == "" {
		return nil, fmt.Errorf("%w: --hostname is required", ErrInvalidInput)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: --port must be between 1 and 65535", ErrInvalidInput)
	}

	resolver, err := dane.NewResolver(&dane.ResolverConfig{
		Server:        dnsServer,
		UseTLS:        dnsOverTLS,
		TLSServerName: dnsTLSServerName,
		RequireAD:     requireAD,
		Timeout:       timeout,
		Logger:        slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: resolver: %w", ErrConfig, err)
	}

	return &daneLookup{
		hostname: hostname,
		port:     uint16(port),
		timeout:  timeout,
		resolver: resolver,
	}, nil
}

// context returns a signal-aware context bounded by the lookup timeout.
func (l *daneLookup) context() (context.Context, context.CancelFunc) {
	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(sigCtx, l.timeout)
	return ctx, func() {
		cancel()
		sigStop()
	}
}

func runDANEShow(cmd *cobra.Command, args []string) error {
	lookup, err := newDANELookup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := lookup.context()
	defer cancel()

	slog.Debug("querying TLSA records", "hostname", lookup.hostname, "port", lookup.port)

	records, err := lookup.resolver.LookupTLSA(ctx, lookup.hostname, lookup.port)
	if err != nil {
		return fmt.Errorf("%w: TLSA lookup: %w", ErrLookupFailed, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TLSA records for _%d._tcp.%s:\n\n", lookup.port, strings.TrimSuffix(lookup.hostname, "."))
	for i, rec := range records {
		fmt.Fprintf(&b, "Record %d:\n", i+1)
		fmt.Fprintf(&b, "  Usage:        %d (%s)\n", rec.Usage, tlsaUsageName(rec.Usage))
		fmt.Fprintf(&b, "  Selector:     %d (%s)\n", rec.Selector, tlsaSelectorName(rec.Selector))
		fmt.Fprintf(&b, "  MatchingType: %d (%s)\n", rec.MatchingType, tlsaMatchingName(rec.MatchingType))
		fmt.Fprintf(&b, "  Data:         %s\n", hex.EncodeToString(rec.CertData))
		if pin, pinErr := rec.SPKIPin(); pinErr == nil {
			fmt.Fprintf(&b, "  SPKI SHA-256: %s\n\n", pin)
		} else {
			fmt.Fprintf(&b, "  SPKI SHA-256: (not convertible)\n\n")
		}
	}
	fmt.Fprintf(&b, "Total: %d record(s)\n", len(records))
	return writeOutput([]byte(b.String()))
}

func runDANEPins(cmd *cobra.Command, args []string) error {
	authorities, _ := cmd.Flags().GetStringSlice("authority")
	if err := checkFormat(formatText, formatYAML, formatJSON); err != nil {
		return err
	}

	lookup, err := newDANELookup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := lookup.context()
	defer cancel()

	pin, _, err := lookup.resolver.LookupPin(ctx, lookup.hostname, lookup.port, authorities...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	doc := &config.Config{Pins: []config.Pin{config.PinFromDomain(pin)}}
	var data []byte
	if format == formatJSON {
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	return writeOutput(data)
}

// usageNames provides O(1) lookup for TLSA usage field descriptions.
var usageNames = map[uint8]string{
	dane.UsageCAConstraint: "PKIX-TA",
	dane.UsageServiceCert:  "PKIX-EE",
	dane.UsageDANETA:       "DANE-TA",
	dane.UsageDANEEE:       "DANE-EE",
}

// selectorNames provides O(1) lookup for TLSA selector field descriptions.
var selectorNames = map[uint8]string{
	dane.SelectorFullCert: "Full Certificate",
	dane.SelectorSPKI:     "SubjectPublicKeyInfo",
}

// matchingNames provides O(1) lookup for TLSA matching type field descriptions.
var matchingNames = map[uint8]string{
	dane.MatchingExact:  "Exact Match",
	dane.MatchingSHA256: "SHA-256",
	dane.MatchingSHA512: "SHA-512",
}

// tlsaUsageName returns the human-readable name for a TLSA usage value.
func tlsaUsageName(usage uint8) string {
	if name, ok := usageNames[usage]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", usage)
}

// tlsaSelectorName returns the human-readable name for a TLSA selector value.
func tlsaSelectorName(selector uint8) string {
	if name, ok := selectorNames[selector]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", selector)
}

// tlsaMatchingName returns the human-readable name for a TLSA matching type value.
func tlsaMatchingName(matchingType uint8) string {
	if name, ok := matchingNames[matchingType]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", matchingType)
}

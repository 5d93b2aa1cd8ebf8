// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-tlspin/pkg/spkipin"
)

const (
	// defaultSPKIRemoteTimeout bounds the handshake of 'spki remote'.
	defaultSPKIRemoteTimeout = 15 * time.Second
)

// spkiCmd is the parent command for SPKI pin operations.
var spkiCmd = &cobra.Command{
	Use:   "spki",
	Short: "SPKI pin operations",
	Long: `Tools for computing SPKI (Subject Public Key Info) SHA-256 pins, the
key strings used in leafPublicKeys and chainPublicKeySets.

Subcommands:
  show   - Compute pins for every certificate in a PEM file
  remote - Display pins of the chain a server presents`,
}

// spkiShowCmd computes and displays the SPKI pins of a PEM certificate file.
var spkiShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show SPKI pins (SHA-256) of a PEM certificate file",
	Long: `Compute and display the SHA-256 hash of the SubjectPublicKeyInfo (SPKI)
of every certificate in a PEM file, in file order.`,
	RunE: runSPKIShow,
}

// spkiRemoteCmd displays the pins of a server's presented chain.
var spkiRemoteCmd = &cobra.Command{
	Use:   "remote <host[:port]|https-url>",
	Short: "Show SPKI pins of the chain presented by a server",
	Long: `Connect to a TLS server and display the SPKI pins of the certificates it
presents. The chain is NOT validated; verify the output out of band before
adding it to a policy.`,
	Args: cobra.ExactArgs(1),
	RunE: runSPKIRemote,
}

func init() {
	spkiCmd.AddCommand(spkiShowCmd)
	spkiCmd.AddCommand(spkiRemoteCmd)

	spkiShowCmd.Flags().String("cert-file", "", "path to PEM certificate file (required)")
	spkiRemoteCmd.Flags().Duration("timeout", defaultSPKIRemoteTimeout, "dial and handshake timeout")
}

// certPin is one line of spki output.
type certPin struct {
	Index   int    `json:"index"`
	SPKI    string `json:"spkiSha256"`
	Subject string `json:"subject"`
	Issuer  string `json:"issuer"`
}

func runSPKIShow(cmd *cobra.Command, args []string) error {
	certFile, _ := cmd.Flags().GetString("cert-file")

	if certFile == "" {
		return fmt.Errorf("%w: --cert-file is required", ErrInvalidInput)
	}
	if err := checkFormat(formatText, formatJSON); err != nil {
		return err
	}

	certs, err := loadCertsFromPEMFile(certFile)
	if err != nil {
		return err
	}
	return writeCertPins(certs)
}

func runSPKIRemote(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if err := checkFormat(formatText, formatJSON); err != nil {
		return err
	}

	addr, serverName, err := remoteAddr(args[0])
	if err != nil {
		return err
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()

	ctx, cancel := context.WithTimeout(sigCtx, timeout)
	defer cancel()

	slog.Debug("fetching presented chain", "addr", addr, "server_name", serverName)

	dialer := &tls.Dialer{Config: &tls.Config{
		ServerName:         serverName,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, //nolint:gosec // display only, nothing is trusted
	}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return fmt.Errorf("%w: unexpected connection type %T", ErrProbeFailed, conn)
	}
	return writeCertPins(tlsConn.ConnectionState().PeerCertificates)
}

// remoteAddr converts an https URL or host[:port] into a dial address and
// server name.
func remoteAddr(target string) (string, string, error) {
	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		if u.Hostname() == "" {
			return "", "", fmt.Errorf("%w: %q has no host", ErrInvalidInput, target)
		}
		port := u.Port()
		if port == "" {
			port = "443"
		}
		return net.JoinHostPort(u.Hostname(), port), u.Hostname(), nil
	}
	host, port, err := net.SplitHostPort(target)
	if err != nil {
		host, port = strings.Trim(target, "[]"), "443"
	}
	if host == "" {
		return "", "", fmt.Errorf("%w: %q has no host", ErrInvalidInput, target)
	}
	return net.JoinHostPort(host, port), host, nil
}

// writeCertPins writes the pin, subject, and issuer of each certificate.
func writeCertPins(certs []*x509.Certificate) error {
	pins := make([]certPin, 0, len(certs))
	for i, cert := range certs {
		pins = append(pins, certPin{
			Index:   i,
			SPKI:    spkipin.ComputeSPKIPin(cert),
			Subject: cert.Subject.String(),
			Issuer:  cert.Issuer.String(),
		})
	}

	if format == formatJSON {
		data, err := json.MarshalIndent(pins, "", "  ")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFileOperation, err)
		}
		return writeOutput(append(data, '\n'))
	}

	var b strings.Builder
	for i, p := range pins {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Certificate:  %d\n", p.Index)
		fmt.Fprintf(&b, "SPKI SHA-256: %s\n", p.SPKI)
		fmt.Fprintf(&b, "Subject:      %s\n", p.Subject)
		fmt.Fprintf(&b, "Issuer:       %s\n", p.Issuer)
	}
	return writeOutput([]byte(b.String()))
}

// loadCertsFromPEMFile reads every CERTIFICATE block from a PEM file.
func loadCertsFromPEMFile(certFile string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrFileOperation, certFile, err)
	}

	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing certificate: %w", ErrInvalidInput, err)
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no PEM certificates found in %s", ErrInvalidInput, certFile)
	}
	return certs, nil
}

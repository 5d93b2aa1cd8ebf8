// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-tlspin/pkg/spkipin"
)

// resetGlobals restores the persistent flag variables after the test.
func resetGlobals(t *testing.T) {
	t.Helper()
	oldQuiet, oldDebug, oldFormat := quiet, debug, format
	oldOutput, oldLogFormat, oldConfig := outputFile, logFormat, configPath
	quiet, debug, format = false, false, formatText
	outputFile, logFormat, configPath = "", "text", ""
	t.Cleanup(func() {
		quiet, debug, format = oldQuiet, oldDebug, oldFormat
		outputFile, logFormat, configPath = oldOutput, oldLogFormat, oldConfig
	})
}

// resetFlags restores every local flag of cmd to its default value.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	reset := func() {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	reset()
	t.Cleanup(reset)
}

// captureOutput redirects writeOutput to a temp file and returns a reader
// for its contents.
func captureOutput(t *testing.T) func() string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.txt")
	outputFile = path
	return func() string {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(data)
	}
}

// writeTempFile writes content to name in a fresh temp dir.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// testChain is a root CA and a leaf valid for 127.0.0.1.
type testChain struct {
	root     *x509.Certificate
	leaf     *x509.Certificate
	leafKey  *ecdsa.PrivateKey
	rootPin  string
	leafPin  string
	rootFile string
	leafFile string
}

func newTestChain(t *testing.T) *testChain {
	t.Helper()
	now := time.Now()

	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "tlspin test root"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)
	root, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "tlspin test leaf"},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, root, &leafKey.PublicKey, rootKey)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(leafDER)
	require.NoError(t, err)

	return &testChain{
		root:     root,
		leaf:     leaf,
		leafKey:  leafKey,
		rootPin:  spkipin.ComputeSPKIPin(root),
		leafPin:  spkipin.ComputeSPKIPin(leaf),
		rootFile: writeTempFile(t, "root.pem", pemEncode(root)),
		leafFile: writeTempFile(t, "chain.pem", pemEncode(leaf)+pemEncode(root)),
	}
}

func pemEncode(cert *x509.Certificate) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
}

// startTLSServer serves the chain's leaf and returns the server URL and
// its authority.
func startTLSServer(t *testing.T, chain *testChain) (string, string) {
	t.Helper()
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	server.TLS = &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{chain.leaf.Raw},
			PrivateKey:  chain.leafKey,
		}},
		MinVersion: tls.VersionTLS12,
	}
	server.StartTLS()
	t.Cleanup(server.Close)
	return server.URL, strings.TrimPrefix(server.URL, "https://")
}

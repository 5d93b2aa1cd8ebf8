// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package spkipin

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-tlspin/pkg/pinning"
)

// testPKI is a three-level chain: root -> intermediate -> leaf.
type testPKI struct {
	root      *x509.Certificate
	inter     *x509.Certificate
	leaf      *x509.Certificate
	leafKey   *ecdsa.PrivateKey
	roots     *x509.CertPool
	notBefore time.Time
	notAfter  time.Time
}

func (p *testPKI) rootPin() string  { return ComputeSPKIPin(p.root) }
func (p *testPKI) interPin() string { return ComputeSPKIPin(p.inter) }
func (p *testPKI) leafPin() string  { return ComputeSPKIPin(p.leaf) }

// newTestPKI issues a chain whose leaf is valid for the given DNS names and
// for 127.0.0.1 / ::1.
func newTestPKI(t *testing.T, dnsNames ...string) *testPKI {
	t.Helper()
	notBefore := time.Now().Add(-time.Hour)
	notAfter := time.Now().Add(24 * time.Hour)

	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Root CA"},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	root := createCert(t, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)

	interKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	interTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(2),
		Subject:               pkix.Name{CommonName: "Test Intermediate CA"},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	inter := createCert(t, interTmpl, root, &interKey.PublicKey, rootKey)

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "leaf"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     dnsNames,
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
	}
	leaf := createCert(t, leafTmpl, inter, &leafKey.PublicKey, interKey)

	roots := x509.NewCertPool()
	roots.AddCert(root)

	return &testPKI{
		root:      root,
		inter:     inter,
		leaf:      leaf,
		leafKey:   leafKey,
		roots:     roots,
		notBefore: notBefore,
		notAfter:  notAfter,
	}
}

func createCert(t *testing.T, tmpl, parent *x509.Certificate, pub *ecdsa.PublicKey, signer *ecdsa.PrivateKey) *x509.Certificate {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, pub, signer)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

// newEngine builds an engine that requires pinning for every authority.
func newEngine(t *testing.T, pins ...pinning.DomainPin) *pinning.Engine {
	t.Helper()
	reg, err := pinning.BuildRegistry(pins)
	require.NoError(t, err)
	engine, err := pinning.NewEngine(&pinning.EngineConfig{
		Registry: reg,
		Policy:   pinning.DefaultGlobalPolicy(),
		Reporter: pinning.NopReporter(),
	})
	require.NoError(t, err)
	return engine
}

// crossSignedPKI has one intermediate key certified by two independent
// roots, so a leaf verifies through two chains.
type crossSignedPKI struct {
	rootA  *x509.Certificate
	rootB  *x509.Certificate
	interA *x509.Certificate
	interB *x509.Certificate
	leaf   *x509.Certificate
	roots  *x509.CertPool
}

func newCrossSignedPKI(t *testing.T, dnsName string) *crossSignedPKI {
	t.Helper()
	notBefore := time.Now().Add(-time.Hour)
	notAfter := time.Now().Add(24 * time.Hour)

	newRoot := func(serial int64, cn string) (*x509.Certificate, *ecdsa.PrivateKey) {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		tmpl := &x509.Certificate{
			SerialNumber:          big.NewInt(serial),
			Subject:               pkix.Name{CommonName: cn},
			NotBefore:             notBefore,
			NotAfter:              notAfter,
			IsCA:                  true,
			BasicConstraintsValid: true,
			KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		}
		return createCert(t, tmpl, tmpl, &key.PublicKey, key), key
	}
	rootA, rootAKey := newRoot(10, "Root A")
	rootB, rootBKey := newRoot(11, "Root B")

	interKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	interTmpl := func(serial int64) *x509.Certificate {
		return &x509.Certificate{
			SerialNumber:          big.NewInt(serial),
			Subject:               pkix.Name{CommonName: "Cross-Signed Intermediate"},
			NotBefore:             notBefore,
			NotAfter:              notAfter,
			IsCA:                  true,
			BasicConstraintsValid: true,
			KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		}
	}
	interA := createCert(t, interTmpl(12), rootA, &interKey.PublicKey, rootAKey)
	interB := createCert(t, interTmpl(13), rootB, &interKey.PublicKey, rootBKey)

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(14),
		Subject:      pkix.Name{CommonName: dnsName},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{dnsName},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	leaf := createCert(t, leafTmpl, interA, &leafKey.PublicKey, interKey)

	roots := x509.NewCertPool()
	roots.AddCert(rootA)
	roots.AddCert(rootB)

	return &crossSignedPKI{
		rootA:  rootA,
		rootB:  rootB,
		interA: interA,
		interB: interB,
		leaf:   leaf,
		roots:  roots,
	}
}

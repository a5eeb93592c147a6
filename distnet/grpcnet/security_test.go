package grpcnet

import (
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndLoadNodeCert(t *testing.T) {
	dir := t.TempDir()
	cert, err := GenerateNodeCert(dir, "node-a", []string{"localhost", "127.0.0.1"})
	require.NoError(t, err)
	require.NotNil(t, cert)

	loaded, err := LoadNodeCert(dir)
	require.NoError(t, err)
	require.Equal(t, cert.Certificate[0], loaded.Certificate[0])

	leaf, err := x509.ParseCertificate(loaded.Certificate[0])
	require.NoError(t, err)
	require.Equal(t, "node-a", leaf.Subject.CommonName)
	require.Contains(t, leaf.DNSNames, "localhost")

	require.NotNil(t, ServerCredentials(loaded))
	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	require.NotNil(t, ClientCredentials(pool, "localhost"))
}

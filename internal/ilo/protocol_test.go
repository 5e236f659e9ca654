package ilo

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobcespedes/ansible.hpilo/pkg/types"
)

func TestTLSConfigFor_KnownVersions(t *testing.T) {
	tests := []struct {
		sslVersion  string
		wantMin     uint16
		wantMax     uint16
		description string
	}{
		{types.SSLVersionSSLv3, tls.VersionSSL30, tls.VersionSSL30, "pinned SSLv3"},
		{types.SSLVersionSSLv23, tls.VersionTLS10, 0, "negotiate from TLS 1.0"},
		{types.SSLVersionTLSv1, tls.VersionTLS10, tls.VersionTLS10, "pinned TLS 1.0"},
		{types.SSLVersionTLSv1_1, tls.VersionTLS11, tls.VersionTLS11, "pinned TLS 1.1"},
		{types.SSLVersionTLSv1_2, tls.VersionTLS12, tls.VersionTLS12, "pinned TLS 1.2"},
	}

	for _, tc := range tests {
		cfg, err := tlsConfigFor(tc.sslVersion)
		require.NoError(t, err, tc.description)
		assert.Equal(t, tc.wantMin, cfg.MinVersion, tc.description)
		assert.Equal(t, tc.wantMax, cfg.MaxVersion, tc.description)
		assert.True(t, cfg.InsecureSkipVerify, "iLO certificates are self-signed")
	}
}

func TestTLSConfigFor_UnknownVersion(t *testing.T) {
	_, err := tlsConfigFor("TLSv1_3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TLSv1_3")

	_, err = tlsConfigFor("")
	require.Error(t, err)
}

package ilo

import (
	"crypto/tls"
	"fmt"

	"github.com/jobcespedes/ansible.hpilo/pkg/types"
)

// tlsConfigFor maps one named ssl_version value to a crypto/tls client
// configuration. The mapping is an exhaustive lookup so unsupported values
// fail fast instead of being transformed dynamically.
//
// Certificate verification is skipped: iLO interfaces ship self-signed
// certificates and python-hpilo does not verify them either.
func tlsConfigFor(sslVersion string) (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // iLO self-signed certificates
	}

	switch sslVersion {
	case types.SSLVersionSSLv3:
		// Rejected by the TLS stack at handshake time on current Go; kept in
		// the table so the failure is a session-establish error, not a
		// parameter error, matching the original parameter contract.
		cfg.MinVersion = tls.VersionSSL30
		cfg.MaxVersion = tls.VersionSSL30
	case types.SSLVersionSSLv23:
		// Auto-negotiate, accepting anything from TLS 1.0 up.
		cfg.MinVersion = tls.VersionTLS10
	case types.SSLVersionTLSv1:
		cfg.MinVersion = tls.VersionTLS10
		cfg.MaxVersion = tls.VersionTLS10
	case types.SSLVersionTLSv1_1:
		cfg.MinVersion = tls.VersionTLS11
		cfg.MaxVersion = tls.VersionTLS11
	case types.SSLVersionTLSv1_2:
		cfg.MinVersion = tls.VersionTLS12
		cfg.MaxVersion = tls.VersionTLS12
	default:
		return nil, fmt.Errorf("unsupported ssl_version %q", sslVersion)
	}

	return cfg, nil
}

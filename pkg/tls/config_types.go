// Package tls builds the HTTPS configuration for the API server from files
// or a self-signed development certificate.
package tls

import (
	"crypto/tls"
	"time"
)

// Supported minimum protocol versions
const (
	Version12 = "1.2"
	Version13 = "1.3"
)

// DefaultValidFor is the lifetime of generated certificates
const DefaultValidFor = 365 * 24 * time.Hour

// Config holds TLS configuration options
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	// CAFile enables client certificate verification against this CA
	CAFile string `yaml:"ca_file"`

	// SelfSigned generates an in-memory certificate when no files are given
	SelfSigned bool     `yaml:"self_signed"`
	Hosts      []string `yaml:"hosts"`

	MinVersion string `yaml:"min_version"`
}

// DefaultConfig returns TLS disabled with secure settings for when it is enabled
func DefaultConfig() Config {
	return Config{
		Hosts:      []string{"localhost", "127.0.0.1"},
		MinVersion: Version12,
	}
}

// minVersion maps the configured version string to a protocol constant
func (c Config) minVersion() uint16 {
	if c.MinVersion == Version13 {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// SecureCipherSuites returns the TLS 1.2 suites offered alongside TLS 1.3
func SecureCipherSuites() []uint16 {
	return []uint16{
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
	}
}

package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/crmarques/cement/config"
	"github.com/crmarques/cement/faults"
)

// BuildTLSConfig returns nil when no TLS block is configured so callers keep
// the transport defaults. Custom CA bundles extend the system pool.
func BuildTLSConfig(settings *config.TLS, scope string) (*tls.Config, error) {
	if settings == nil {
		return nil, nil
	}

	result := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: settings.InsecureSkipVerify,
	}

	roots, err := loadRootCAs(strings.TrimSpace(settings.CACertFile), scope)
	if err != nil {
		return nil, err
	}
	result.RootCAs = roots

	certificate, err := loadClientCertificate(
		strings.TrimSpace(settings.ClientCertFile),
		strings.TrimSpace(settings.ClientKeyFile),
		scope,
	)
	if err != nil {
		return nil, err
	}
	if certificate != nil {
		result.Certificates = []tls.Certificate{*certificate}
	}
	return result, nil
}

func loadRootCAs(caFile string, scope string) (*x509.CertPool, error) {
	if caFile == "" {
		return nil, nil
	}

	pemBytes, err := os.ReadFile(caFile)
	if err != nil {
		return nil, invalid(scope, "ca-cert-file could not be read", err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, invalid(scope, "ca-cert-file does not contain a PEM certificate", nil)
	}
	return pool, nil
}

func loadClientCertificate(certFile string, keyFile string, scope string) (*tls.Certificate, error) {
	if certFile == "" && keyFile == "" {
		return nil, nil
	}
	if certFile == "" || keyFile == "" {
		return nil, invalid(scope, "client-cert-file and client-key-file must be set together", nil)
	}

	certificate, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, invalid(scope, "client certificate pair is invalid", err)
	}
	return &certificate, nil
}

func invalid(scope string, message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, fmt.Sprintf("%s.tls.%s", scope, message), cause)
}

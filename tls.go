package wrengo

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// configureTLSForLocalhost configures TLS settings for localhost development
// domains. Returns a custom TLS config if the baseURL is a .localhost domain
// and certificates are found under WREN_CERTS_DIR, otherwise nil so the
// client uses default TLS verification.
func configureTLSForLocalhost(baseURL string) (*tls.Config, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	hostname := parsedURL.Hostname()
	if !strings.HasSuffix(hostname, ".localhost") {
		return nil, nil // Not a localhost domain, use default TLS
	}

	certsDir := os.Getenv("WREN_CERTS_DIR")
	if certsDir == "" {
		return nil, nil // No certificate dir specified, use default TLS
	}

	caCertPool, err := loadCertificatesFromDir(certsDir)
	if err != nil {
		slog.Warn("failed to load development certificates", "dir", certsDir, "error", err)
		return nil, nil // Fall back to default TLS verification
	}
	if caCertPool == nil {
		return nil, nil // No certificates found, use default TLS
	}

	slog.Debug("loaded development certificates", "dir", certsDir, "host", hostname)
	return &tls.Config{RootCAs: caCertPool}, nil
}

// loadCertificatesFromDir loads all PEM certificate files from the directory
// into a certificate pool. Returns nil if no certificates are found.
func loadCertificatesFromDir(certsDir string) (*x509.CertPool, error) {
	entries, err := os.ReadDir(certsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificates directory: %w", err)
	}

	caCertPool := x509.NewCertPool()
	loaded := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".crt" && ext != ".pem" && ext != ".cer" {
			continue
		}

		certPath := filepath.Join(certsDir, entry.Name())
		certData, err := os.ReadFile(certPath)
		if err != nil {
			slog.Warn("failed to read certificate", "path", certPath, "error", err)
			continue // Skip this certificate but continue with others
		}
		if !strings.Contains(string(certData), "-----BEGIN CERTIFICATE-----") {
			continue // Not a PEM certificate
		}

		if caCertPool.AppendCertsFromPEM(certData) {
			loaded++
		} else {
			slog.Warn("failed to parse certificate", "path", certPath)
		}
	}

	if loaded == 0 {
		return nil, nil
	}
	return caCertPool, nil
}

// applyTLSConfig applies the TLS configuration to an HTTP client, reusing
// its transport when possible.
func applyTLSConfig(httpClient *http.Client, tlsConfig *tls.Config) {
	if tlsConfig == nil {
		return
	}

	transport, ok := httpClient.Transport.(*http.Transport)
	if !ok {
		transport = &http.Transport{}
		httpClient.Transport = transport
	}
	transport.TLSClientConfig = tlsConfig
}

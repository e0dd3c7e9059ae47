// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package eventstore

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Compression values for Config.Compression.
const (
	CompressionNone = ""
	CompressionZstd = "zstd"
)

// Config describes how to reach the event store. It is read once by
// NewClient; changing it afterwards has no effect on an existing client.
type Config struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	// UseTLS selects https. It is fixed at construction time.
	UseTLS bool `mapstructure:"use_tls" yaml:"use_tls"`
	// Timeout bounds every call, measured from when the call is issued.
	// Config files and env vars take a duration string such as "5s".
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// TLSCertFile is an optional PEM bundle of CA certificates to trust.
	TLSCertFile string `mapstructure:"tls_cert_file" yaml:"tls_cert_file"`
	// Compression is CompressionNone or CompressionZstd.
	Compression string `mapstructure:"compression" yaml:"compression"`
	UserAgent   string `mapstructure:"user_agent" yaml:"user_agent"`
}

// DefaultConfig returns the configuration for a local, plaintext service.
func DefaultConfig() Config {
	return Config{
		Host:      "localhost",
		Port:      50051,
		UseTLS:    false,
		Timeout:   5 * time.Second,
		UserAgent: "graveyard-go",
	}
}

// Target returns host:port.
func (c Config) Target() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL returns the scheme, target and path prefix of every call.
func (c Config) BaseURL() string {
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, c.Target(), PathPrefix)
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch {
	case c.Timeout <= 0:
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	case c.Timeout < time.Millisecond:
		// A bare integer such as 5000 decodes as nanoseconds.
		errs = append(errs, fmt.Errorf("timeout %v is below 1ms, give a unit such as 5s or 500ms", c.Timeout))
	}
	switch c.Compression {
	case CompressionNone, CompressionZstd:
	default:
		errs = append(errs, fmt.Errorf("unsupported compression %q", c.Compression))
	}
	if c.TLSCertFile != "" && !c.UseTLS {
		errs = append(errs, errors.New("tls_cert_file requires use_tls"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("eventstore: invalid config: %w", err)
	}
	return nil
}

// transport builds the HTTP transport for c.
func (c Config) transport() (*http.Transport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if !c.UseTLS {
		return t, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.TLSCertFile != "" {
		pem, err := os.ReadFile(c.TLSCertFile)
		if err != nil {
			return nil, fmt.Errorf("eventstore: reading TLS certificates: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("eventstore: no certificates found in %s", c.TLSCertFile)
		}
		tlsCfg.RootCAs = pool
	}
	t.TLSClientConfig = tlsCfg
	return t, nil
}

package main

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	log "github.com/cihub/seelog"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/pkg/errors"
)

// Connection is an authenticated client bound to one cluster. It is built once
// per invocation and never shared across commands.
type Connection struct {
	URL        *url.URL
	Auth       *Auth
	Validation CertValidation
	Timeout    time.Duration
	Proxy      string

	tlsConfig *tls.Config
	client    *opensearch.Client
}

// Connect validates the configuration and builds the client. No request is
// sent; an unreachable cluster only shows up on the first call.
func Connect(cfg ConnectionConfig) (*Connection, error) {
	u, err := parseClusterURL(cfg.ClusterURL)
	if err != nil {
		return nil, err
	}

	if strings.Contains(cfg.Username, ":") {
		return nil, errors.Wrap(ErrConnection, "malformed credentials: username must not contain ':'")
	}

	conn := &Connection{
		URL:        u,
		Validation: CertValidationNone,
		Timeout:    cfg.Timeout,
		Proxy:      cfg.Proxy,
	}
	if conn.Timeout <= 0 {
		conn.Timeout = defaultTimeout
	}
	if cfg.Username != "" || cfg.Password != "" {
		conn.Auth = &Auth{User: cfg.Username, Pass: cfg.Password}
	}

	conn.tlsConfig = &tls.Config{InsecureSkipVerify: true}
	if cfg.CACertPath != "" {
		pem, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, errors.Wrapf(ErrConnection, "failed to read ca certificate at %s: %v", cfg.CACertPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Wrapf(ErrConnection, "no certificate found in %s", cfg.CACertPath)
		}
		conn.tlsConfig = &tls.Config{RootCAs: pool}
		conn.Validation = CertValidationCA
	}

	tr := &http.Transport{
		TLSClientConfig: conn.tlsConfig,
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, errors.Wrapf(ErrConnection, "invalid proxy url %q", cfg.Proxy)
		}
		tr.Proxy = http.ProxyURL(proxyURL)
	}

	osCfg := opensearch.Config{
		Addresses:            []string{u.String()},
		Transport:            tr,
		DisableRetry:         true,
		UseResponseCheckOnly: true,
	}
	if conn.Auth != nil {
		osCfg.Username = conn.Auth.User
		osCfg.Password = conn.Auth.Pass
	}

	conn.client, err = opensearch.NewClient(osCfg)
	if err != nil {
		return nil, errors.Wrapf(ErrConnection, "failed to build client for %s: %v", u.Redacted(), err)
	}

	log.Debugf("connection to %s, certificate validation: %s, timeout: %s", u.Redacted(), conn.Validation, conn.Timeout)
	return conn, nil
}

func parseClusterURL(raw string) (*url.URL, error) {
	if raw == "" {
		raw = defaultClusterURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURL, "%q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Wrapf(ErrInvalidURL, "%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, errors.Wrapf(ErrInvalidURL, "%q: missing host", raw)
	}
	return u, nil
}

// API returns the cluster operations bound to this connection.
func (c *Connection) API() ClusterAPI {
	return &OpenSearchAPI{client: c.client, host: c.URL.Redacted()}
}

// endpoint joins path onto the cluster url for the raw HTTP helpers.
func (c *Connection) endpoint(path string) string {
	return strings.TrimSuffix(c.URL.String(), "/") + path
}

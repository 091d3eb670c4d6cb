package main

import (
	"bytes"
	"net/http"
	"strings"

	log "github.com/cihub/seelog"
	"github.com/pkg/errors"

	"github.com/camerondurham/painful-testing/util"
)

// ClusterVersion asks the cluster root endpoint who it is.
func (c *Connection) ClusterVersion() (*ClusterVersion, error) {
	url := c.endpoint("/")
	resp, body, err := Get(url, c.Auth, c.tlsConfig, c.Proxy, c.Timeout)
	defer closeResponse(resp)

	if err != nil {
		return nil, err
	}

	log.Debug(util.SubString(body, 0, 500))

	if resp.StatusCode != http.StatusOK {
		return nil, newClusterError(resp.StatusCode, strings.NewReader(body))
	}

	version := &ClusterVersion{}
	if err := DecodeJson(body, version); err != nil {
		return nil, errors.Wrapf(ErrInvalidDocument, "cluster info from %s: %v", url, err)
	}
	return version, nil
}

// ClusterHealth reads /_cluster/health, optionally gzip compressed.
func (c *Connection) ClusterHealth(compress bool) (*ClusterHealth, error) {
	url := c.endpoint("/_cluster/health")
	client := newFastHttpClient(c.tlsConfig, c.Proxy)

	status, body, err := DoRequest(client, compress, http.MethodGet, url, c.Auth, nil, c.Timeout)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, newClusterError(status, bytes.NewReader(body))
	}

	health := &ClusterHealth{}
	if err := DecodeJsonBytes(body, health); err != nil {
		return nil, errors.Wrapf(ErrInvalidDocument, "cluster health from %s: %v", url, err)
	}
	return health, nil
}

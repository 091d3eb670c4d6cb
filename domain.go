package main

import (
	"time"
)

type Auth struct {
	User string
	Pass string
}

type ClusterVersion struct {
	Name        string `json:"name,omitempty"`
	ClusterName string `json:"cluster_name,omitempty"`
	Version     struct {
		Distribution  string `json:"distribution,omitempty"`
		Number        string `json:"number,omitempty"`
		LuceneVersion string `json:"lucene_version,omitempty"`
	} `json:"version,omitempty"`
}

type ClusterHealth struct {
	Name                string `json:"cluster_name,omitempty"`
	Status              string `json:"status,omitempty"`
	NumberOfNodes       int    `json:"number_of_nodes,omitempty"`
	ActiveShards        int    `json:"active_shards,omitempty"`
	UnassignedShards    int    `json:"unassigned_shards,omitempty"`
	ActivePrimaryShards int    `json:"active_primary_shards,omitempty"`
}

// IndexResult is the answer to a single document write.
type IndexResult struct {
	Index   string `json:"_index,omitempty"`
	Id      string `json:"_id,omitempty"`
	Version int64  `json:"_version,omitempty"`
	Result  string `json:"result,omitempty"`
}

type acknowledged struct {
	Acknowledged bool   `json:"acknowledged"`
	Index        string `json:"index,omitempty"`
}

type CertValidation int

const (
	// CertValidationNone skips server certificate checks, only for local or
	// trusted clusters.
	CertValidationNone CertValidation = iota
	CertValidationCA
)

func (v CertValidation) String() string {
	if v == CertValidationCA {
		return "ca"
	}
	return "none"
}

// ConnectionConfig is built once at the CLI boundary and passed by value.
type ConnectionConfig struct {
	ClusterURL string
	Username   string
	Password   string
	CACertPath string
	Proxy      string
	Timeout    time.Duration
}

const (
	defaultClusterURL = "https://localhost:9200"
	defaultTimeout    = 30 * time.Second
)

// ConnectionOptions are the flags shared by every command talking to a cluster.
type ConnectionOptions struct {
	ClusterURL string        `long:"cluster-url" env:"OPENSEARCH_URL" description:"opensearch cluster url" default:"https://localhost:9200"`
	Username   string        `long:"username" env:"OPENSEARCH_USERNAME" description:"basic auth username" default:"admin"`
	Password   string        `long:"password" env:"OPENSEARCH_PASSWORD" description:"basic auth password" default:"admin"`
	Timeout    time.Duration `long:"timeout" description:"timeout of a single cluster request" default:"30s"`
	Proxy      string        `long:"proxy" description:"set proxy to cluster http connections, ie: http://127.0.0.1:8080"`
	CACert     string        `long:"ca-cert" description:"PEM bundle to validate the cluster certificate with, validation is disabled when empty"`
}

func (o ConnectionOptions) Config() ConnectionConfig {
	return ConnectionConfig{
		ClusterURL: o.ClusterURL,
		Username:   o.Username,
		Password:   o.Password,
		CACertPath: o.CACert,
		Proxy:      o.Proxy,
		Timeout:    o.Timeout,
	}
}

package main

import "context"

// ClusterAPI is the set of single request/response calls pf makes against a
// cluster. Non-2xx answers come back as *ClusterError, transport failures
// wrap ErrConnection.
type ClusterAPI interface {
	CreateIndex(ctx context.Context, name string, mapping []byte) error
	PutScript(ctx context.Context, id string, scriptContext string, body []byte) error
	IndexDocument(ctx context.Context, index string, id string, doc []byte, refresh bool) (*IndexResult, error)
	ExecuteScript(ctx context.Context, body []byte) ([]byte, error)
}

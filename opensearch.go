package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	log "github.com/cihub/seelog"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/pkg/errors"

	"github.com/camerondurham/painful-testing/util"
)

// OpenSearchAPI implements ClusterAPI with the opensearch-go client.
type OpenSearchAPI struct {
	client *opensearch.Client
	host   string
}

// CreateIndex creates index name with the given mapping body.
func (s *OpenSearchAPI) CreateIndex(ctx context.Context, name string, mapping []byte) error {
	log.Debug("start create index: ", name)

	req := opensearchapi.IndicesCreateRequest{
		Index: name,
		Body:  bytes.NewReader(mapping),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.Wrapf(ErrConnection, "create index %s on %s: %v", name, s.host, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return newClusterError(res.StatusCode, res.Body)
	}

	var ack acknowledged
	if err := json.NewDecoder(res.Body).Decode(&ack); err != nil {
		return errors.Wrapf(err, "failed to decode create index response for %s", name)
	}
	log.Debugf("create index %s acknowledged: %v", name, ack.Acknowledged)
	return nil
}

// PutScript stores a script under id, overwriting any previous version.
func (s *OpenSearchAPI) PutScript(ctx context.Context, id string, scriptContext string, body []byte) error {
	log.Debug("start put script: ", id)

	req := opensearchapi.PutScriptRequest{
		ScriptID:      id,
		ScriptContext: scriptContext,
		Body:          bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.Wrapf(ErrConnection, "put script %s on %s: %v", id, s.host, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return newClusterError(res.StatusCode, res.Body)
	}
	return nil
}

// IndexDocument upserts doc under index/id.
func (s *OpenSearchAPI) IndexDocument(ctx context.Context, index string, id string, doc []byte, refresh bool) (*IndexResult, error) {
	log.Debugf("start index document: %s/%s", index, id)

	req := opensearchapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(doc),
	}
	if refresh {
		req.Refresh = "true"
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, errors.Wrapf(ErrConnection, "index document %s/%s on %s: %v", index, id, s.host, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return nil, newClusterError(res.StatusCode, res.Body)
	}

	result := &IndexResult{}
	if err := json.NewDecoder(res.Body).Decode(result); err != nil {
		return nil, errors.Wrapf(err, "failed to decode index response for %s/%s", index, id)
	}
	return result, nil
}

// ExecuteScript posts body to the painless execute endpoint and returns the
// raw response.
func (s *OpenSearchAPI) ExecuteScript(ctx context.Context, body []byte) ([]byte, error) {
	log.Trace("execute script: ", util.SubString(string(body), 0, 500))

	req := opensearchapi.ScriptsPainlessExecuteRequest{
		Body: bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, errors.Wrapf(ErrConnection, "execute script on %s: %v", s.host, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return nil, newClusterError(res.StatusCode, res.Body)
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrConnection, "failed to read execute response from %s: %v", s.host, err)
	}
	log.Trace("execute script response: ", util.SubString(string(b), 0, 500))
	return b, nil
}

func closeBody(res *opensearchapi.Response) {
	if res != nil && res.Body != nil {
		io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}
}

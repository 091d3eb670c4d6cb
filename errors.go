package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/camerondurham/painful-testing/util"
)

var (
	ErrInvalidURL         = errors.New("invalid cluster url")
	ErrConnection         = errors.New("connection error")
	ErrInvalidDocument    = errors.New("invalid json document")
	ErrNotFound           = errors.New("file not found")
	ErrIO                 = errors.New("i/o error")
	ErrIndexAlreadyExists = errors.New("index already exists")
)

const indexExistsType = "resource_already_exists_exception"

// ClusterError is a non-2xx answer from the cluster.
type ClusterError struct {
	StatusCode int
	Type       string
	Reason     string
}

func (e *ClusterError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("cluster returned status %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("cluster returned status %d: %s: %s", e.StatusCode, e.Type, e.Reason)
}

func (e *ClusterError) Is(target error) bool {
	return target == ErrIndexAlreadyExists && e.Type == indexExistsType
}

// errorBody is the error envelope OpenSearch returns, the error field is
// either an object or a bare string depending on the endpoint.
type errorBody struct {
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error"`
}

type errorDetails struct {
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	RootCause []struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"root_cause"`
}

func newClusterError(statusCode int, body io.Reader) *ClusterError {
	ce := &ClusterError{StatusCode: statusCode}

	raw, err := io.ReadAll(body)
	if err != nil || len(raw) == 0 {
		ce.Reason = "empty response"
		return ce
	}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil || len(eb.Error) == 0 {
		ce.Reason = util.Abbreviate(string(raw), 500)
		return ce
	}

	var reason string
	if err := json.Unmarshal(eb.Error, &reason); err == nil {
		ce.Reason = reason
		return ce
	}

	var details errorDetails
	if err := json.Unmarshal(eb.Error, &details); err != nil {
		ce.Reason = util.Abbreviate(string(eb.Error), 500)
		return ce
	}

	ce.Type = details.Type
	ce.Reason = details.Reason
	if len(details.RootCause) != 0 && details.RootCause[0].Reason != "" && details.Reason == "" {
		ce.Type = details.RootCause[0].Type
		ce.Reason = details.RootCause[0].Reason
	}
	return ce
}

// exitError carries the process exit code up to main.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

const (
	exitOK = iota
	exitFailure
	exitInfraError
)

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

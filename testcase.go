package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/cihub/seelog"
	"github.com/pkg/errors"
)

// TestCase is one painless script test. PriorState nil means the document
// does not exist yet; Expected nil means only the success of the call is
// checked.
type TestCase struct {
	ID         string
	PriorState *DocRef
	Incoming   DocRef
	Expected   *DocRef
}

type OutcomeStatus int

const (
	OutcomePass OutcomeStatus = iota
	OutcomeMismatch
	OutcomeFailed
	OutcomeError
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomePass:
		return "PASS"
	case OutcomeMismatch:
		return "MISMATCH"
	case OutcomeFailed:
		return "FAILED"
	case OutcomeError:
		return "ERROR"
	}
	return fmt.Sprintf("OutcomeStatus(%d)", int(s))
}

// Outcome is the verdict of a test run. Mismatch and Failed mean the script
// under test is wrong, Error means the cluster could not be asked.
type Outcome struct {
	TestID string
	Status OutcomeStatus
	Diffs  []Difference
	Reason string
	Cause  error
}

func (o *Outcome) String() string {
	switch o.Status {
	case OutcomeMismatch:
		lines := make([]string, 0, len(o.Diffs))
		for _, d := range o.Diffs {
			lines = append(lines, "  "+d.String())
		}
		return fmt.Sprintf("[%s] %s\n%s", o.TestID, o.Status, strings.Join(lines, "\n"))
	case OutcomeFailed:
		return fmt.Sprintf("[%s] %s: %s", o.TestID, o.Status, o.Reason)
	case OutcomeError:
		return fmt.Sprintf("[%s] %s: %v", o.TestID, o.Status, o.Cause)
	}
	return fmt.Sprintf("[%s] %s", o.TestID, o.Status)
}

func (o *Outcome) exitCode() int {
	switch o.Status {
	case OutcomePass:
		return exitOK
	case OutcomeError:
		return exitInfraError
	}
	return exitFailure
}

const defaultScriptContext = "painless_test"

// Runner executes test cases with one script against one cluster.
type Runner struct {
	api           ClusterAPI
	script        string
	scriptContext string
	index         string
}

func NewRunner(api ClusterAPI, script, scriptContext, index string) *Runner {
	if scriptContext == "" {
		scriptContext = defaultScriptContext
	}
	return &Runner{api: api, script: script, scriptContext: scriptContext, index: index}
}

// Run resolves the test documents, sends a single execute request and grades
// the answer. The returned error is reserved for problems with the test
// documents themselves, found before anything is sent.
func (r *Runner) Run(ctx context.Context, tc *TestCase) (*Outcome, error) {
	incoming, err := tc.Incoming.ResolveJSON()
	if err != nil {
		return nil, errors.WithMessagef(err, "test %s: incoming document", tc.ID)
	}

	var state interface{}
	if tc.PriorState != nil {
		if state, err = tc.PriorState.ResolveJSON(); err != nil {
			return nil, errors.WithMessagef(err, "test %s: current state document", tc.ID)
		}
	}

	var expected interface{}
	if tc.Expected != nil {
		if expected, err = tc.Expected.ResolveJSON(); err != nil {
			return nil, errors.WithMessagef(err, "test %s: expected document", tc.ID)
		}
	}

	body, err := r.executeBody(tc.PriorState != nil, state, incoming)
	if err != nil {
		return nil, errors.WithMessagef(err, "test %s", tc.ID)
	}

	log.Debugf("[%s] executing script in context %s", tc.ID, r.scriptContext)
	raw, err := r.api.ExecuteScript(ctx, body)
	if err != nil {
		var ce *ClusterError
		if errors.As(err, &ce) {
			log.Debugf("[%s] cluster rejected the script: %v", tc.ID, ce)
			return &Outcome{TestID: tc.ID, Status: OutcomeFailed, Reason: ce.Error()}, nil
		}
		log.Debugf("[%s] execute request failed: %v", tc.ID, err)
		return &Outcome{TestID: tc.ID, Status: OutcomeError, Cause: err}, nil
	}

	if tc.Expected == nil {
		return &Outcome{TestID: tc.ID, Status: OutcomePass}, nil
	}

	got, err := scriptResult(raw)
	if err != nil {
		return &Outcome{TestID: tc.ID, Status: OutcomeError, Cause: err}, nil
	}

	diffs := CompareDocuments(expected, got)
	if len(diffs) > 0 {
		return &Outcome{TestID: tc.ID, Status: OutcomeMismatch, Diffs: diffs}, nil
	}
	return &Outcome{TestID: tc.ID, Status: OutcomePass}, nil
}

func (r *Runner) executeBody(hasState bool, state, incoming interface{}) ([]byte, error) {
	params := map[string]interface{}{
		"incoming": incoming,
	}
	if hasState {
		params["state"] = state
	}

	body := map[string]interface{}{
		"script": map[string]interface{}{
			"lang":   "painless",
			"source": r.script,
			"params": params,
		},
		"context": r.scriptContext,
	}

	if r.scriptContext != defaultScriptContext {
		if r.index == "" {
			return nil, errors.Errorf("context %s needs an index name", r.scriptContext)
		}
		setup := map[string]interface{}{
			"index": r.index,
		}
		if hasState {
			setup["document"] = state
		}
		body["context_setup"] = setup
	}

	return json.Marshal(body)
}

// scriptResult extracts the payload of an execute response: the result field
// when there is one, decoded again if the script produced a JSON object or
// array as text.
func scriptResult(raw []byte) (interface{}, error) {
	var resp interface{}
	if err := DecodeJsonBytes(raw, &resp); err != nil {
		return nil, errors.Wrapf(ErrInvalidDocument, "execute response: %v", err)
	}

	payload := resp
	if m, ok := resp.(map[string]interface{}); ok {
		if result, ok := m["result"]; ok {
			payload = result
		}
	}

	// only serialized objects and arrays are unwrapped, "1" stays a string
	if s, ok := payload.(string); ok {
		var decoded interface{}
		if err := DecodeJson(s, &decoded); err == nil {
			switch decoded.(type) {
			case map[string]interface{}, []interface{}:
				payload = decoded
			}
		}
	}
	return payload, nil
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const incrementScript = "def s = params.state; s.count = s.count + 1; return s;"

type executeRequest struct {
	Script struct {
		Lang   string                 `json:"lang"`
		Source string                 `json:"source"`
		Params map[string]interface{} `json:"params"`
	} `json:"script"`
	Context      string                 `json:"context"`
	ContextSetup map[string]interface{} `json:"context_setup"`
}

// executeCluster answers the painless execute endpoint with result.
func executeCluster(t *testing.T, status int, result string) *fakeCluster {
	return newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		if r.URL.Path != "/_scripts/painless/_execute" {
			writeJSON(w, http.StatusNotFound, `{"error":"no handler","status":404}`)
			return
		}
		writeJSON(w, status, result)
	})
}

// echoCluster returns the incoming param as the script result.
func echoCluster(t *testing.T) *fakeCluster {
	return newFakeCluster(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req executeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, `{"error":{"type":"parse_exception","reason":"bad body"},"status":400}`)
			return
		}
		result, _ := json.Marshal(map[string]interface{}{"result": req.Script.Params["incoming"]})
		writeJSON(w, http.StatusOK, string(result))
	})
}

func refTo(d DocRef) *DocRef {
	return &d
}

func runCase(t *testing.T, fc *fakeCluster, tc *TestCase) *Outcome {
	t.Helper()
	runner := NewRunner(fc.connect(t).API(), incrementScript, "", "")
	outcome, err := runner.Run(context.Background(), tc)
	require.NoError(t, err)
	return outcome
}

func TestRunnerIncrementPass(t *testing.T) {
	dir := t.TempDir()
	fc := executeCluster(t, http.StatusOK, `{"result":{"count":2}}`)

	tc := &TestCase{
		ID:         "doc-1",
		PriorState: refTo(PathRef(writeFile(t, dir, "current_state.json", `{"count":1}`))),
		Incoming:   PathRef(writeFile(t, dir, "incoming.json", `{"op":"increment"}`)),
		Expected:   refTo(PathRef(writeFile(t, dir, "expected.json", `{"count":2}`))),
	}
	outcome := runCase(t, fc, tc)
	assert.Equal(t, OutcomePass, outcome.Status)
	assert.Equal(t, "[doc-1] PASS", outcome.String())

	reqs := fc.recorded()
	require.Len(t, reqs, 1)
	var sent executeRequest
	require.NoError(t, json.Unmarshal(reqs[0].Body, &sent))
	assert.Equal(t, "painless", sent.Script.Lang)
	assert.Equal(t, incrementScript, sent.Script.Source)
	assert.Equal(t, defaultScriptContext, sent.Context)
	assert.Equal(t, map[string]interface{}{"count": float64(1)}, sent.Script.Params["state"])
	assert.Equal(t, map[string]interface{}{"op": "increment"}, sent.Script.Params["incoming"])
	assert.Nil(t, sent.ContextSetup)
}

func TestRunnerIncrementMismatch(t *testing.T) {
	fc := executeCluster(t, http.StatusOK, `{"result":{"count":1}}`)

	outcome := runCase(t, fc, &TestCase{
		ID:         "doc-1",
		PriorState: refTo(RawRef(`{"count":1}`)),
		Incoming:   RawRef(`{"op":"increment"}`),
		Expected:   refTo(RawRef(`{"count":2}`)),
	})
	require.Equal(t, OutcomeMismatch, outcome.Status)
	require.Len(t, outcome.Diffs, 1)
	assert.Equal(t, "count: expected 2, got 1", outcome.Diffs[0].String())
	assert.Equal(t, "[doc-1] MISMATCH\n  count: expected 2, got 1", outcome.String())
	assert.Equal(t, exitFailure, outcome.exitCode())
}

func TestRunnerStructurallyEqualPass(t *testing.T) {
	fc := echoCluster(t)

	outcome := runCase(t, fc, &TestCase{
		ID:       "echo",
		Incoming: RawRef(`{"a": 1, "b": {"c": [1, 2], "d": "x"}}`),
		Expected: refTo(RawRef(`{"b":{"d":"x","c":[1,2.0]},"a":1}`)),
	})
	assert.Equal(t, OutcomePass, outcome.Status)

	var sent executeRequest
	require.NoError(t, json.Unmarshal(fc.recorded()[0].Body, &sent))
	_, hasState := sent.Script.Params["state"]
	assert.False(t, hasState, "no prior state means no state param")
}

func TestRunnerMissingKeyMismatch(t *testing.T) {
	fc := executeCluster(t, http.StatusOK, `{"result":{"count":2}}`)

	outcome := runCase(t, fc, &TestCase{
		ID:       "missing",
		Incoming: RawRef(`{}`),
		Expected: refTo(RawRef(`{"count":2,"updated_by":"pf"}`)),
	})
	require.Equal(t, OutcomeMismatch, outcome.Status)
	require.Len(t, outcome.Diffs, 1)
	assert.Equal(t, "updated_by", outcome.Diffs[0].Path)
	assert.Equal(t, DiffMissing, outcome.Diffs[0].Kind)
}

func TestRunnerStringResultDecoded(t *testing.T) {
	fc := executeCluster(t, http.StatusOK, `{"result":"{\"count\":2}"}`)

	outcome := runCase(t, fc, &TestCase{
		ID:       "string",
		Incoming: RawRef(`{}`),
		Expected: refTo(RawRef(`{"count":2}`)),
	})
	assert.Equal(t, OutcomePass, outcome.Status)
}

func TestRunnerWithoutExpected(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fc := executeCluster(t, http.StatusOK, `{"result":"anything"}`)
		outcome := runCase(t, fc, &TestCase{ID: "ok", Incoming: RawRef(`{}`)})
		assert.Equal(t, OutcomePass, outcome.Status)
	})

	t.Run("non 2xx", func(t *testing.T) {
		fc := executeCluster(t, http.StatusBadRequest,
			`{"error":{"root_cause":[{"type":"script_exception","reason":"compile error"}],"type":"script_exception","reason":"compile error"},"status":400}`)
		outcome := runCase(t, fc, &TestCase{ID: "bad", Incoming: RawRef(`{}`)})
		require.Equal(t, OutcomeFailed, outcome.Status)
		assert.Contains(t, outcome.Reason, "script_exception")
		assert.Contains(t, outcome.Reason, "compile error")
		assert.Equal(t, exitFailure, outcome.exitCode())
	})
}

func TestRunnerFailedWithExpected(t *testing.T) {
	fc := executeCluster(t, http.StatusInternalServerError, `{"error":"boom","status":500}`)
	outcome := runCase(t, fc, &TestCase{ID: "boom", Incoming: RawRef(`{}`), Expected: refTo(RawRef(`{}`))})
	require.Equal(t, OutcomeFailed, outcome.Status)
	assert.Contains(t, outcome.Reason, "boom")
}

func TestRunnerConnectionError(t *testing.T) {
	conn, err := Connect(ConnectionConfig{ClusterURL: closedClusterURL(t), Timeout: 2 * time.Second})
	require.NoError(t, err)

	outcome, err := NewRunner(conn.API(), incrementScript, "", "").Run(context.Background(), &TestCase{
		ID:       "down",
		Incoming: RawRef(`{}`),
		Expected: refTo(RawRef(`{}`)),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeError, outcome.Status)
	assert.True(t, errors.Is(outcome.Cause, ErrConnection), "got %v", outcome.Cause)
	assert.Equal(t, exitInfraError, outcome.exitCode())
}

func TestRunnerInvalidDocumentsFailBeforeRequest(t *testing.T) {
	dir := t.TempDir()
	fc := executeCluster(t, http.StatusOK, `{"result":{}}`)
	runner := NewRunner(fc.connect(t).API(), incrementScript, "", "")

	tests := []struct {
		name string
		tc   *TestCase
		want error
	}{
		{name: "incoming", tc: &TestCase{ID: "x", Incoming: RawRef(`{"op":`)}, want: ErrInvalidDocument},
		{name: "state", tc: &TestCase{ID: "x", PriorState: refTo(RawRef(`nope`)), Incoming: RawRef(`{}`)}, want: ErrInvalidDocument},
		{name: "expected", tc: &TestCase{ID: "x", Incoming: RawRef(`{}`), Expected: refTo(RawRef(`[1,`))}, want: ErrInvalidDocument},
		{name: "missing file", tc: &TestCase{ID: "x", Incoming: PathRef(filepath.Join(dir, "missing.json"))}, want: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := runner.Run(context.Background(), tt.tc)
			assert.Nil(t, outcome)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.Empty(t, fc.recorded())
}

func TestRunnerContextSetup(t *testing.T) {
	fc := executeCluster(t, http.StatusOK, `{"result":true}`)
	runner := NewRunner(fc.connect(t).API(), "doc['count'].value > 0", "filter", "counters")

	outcome, err := runner.Run(context.Background(), &TestCase{
		ID:         "filter",
		PriorState: refTo(RawRef(`{"count":1}`)),
		Incoming:   RawRef(`{}`),
		Expected:   refTo(RawRef(`true`)),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, outcome.Status)

	var sent executeRequest
	require.NoError(t, json.Unmarshal(fc.recorded()[0].Body, &sent))
	assert.Equal(t, "filter", sent.Context)
	assert.Equal(t, "counters", sent.ContextSetup["index"])
	assert.Equal(t, map[string]interface{}{"count": float64(1)}, sent.ContextSetup["document"])

	_, err = NewRunner(fc.connect(t).API(), "true", "score", "").Run(context.Background(), &TestCase{ID: "x", Incoming: RawRef(`{}`)})
	assert.Error(t, err)
}

func TestScriptResult(t *testing.T) {
	got, err := scriptResult([]byte(`{"result":"plain text"}`))
	require.NoError(t, err)
	assert.Equal(t, "plain text", got)

	got, err = scriptResult([]byte(`{"count":3}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"count": json.Number("3")}, got)

	_, err = scriptResult([]byte(`not json`))
	assert.True(t, errors.Is(err, ErrInvalidDocument))
}

func TestRunnerScalarStringResultKeepsType(t *testing.T) {
	fc := executeCluster(t, http.StatusOK, `{"result":"1"}`)

	outcome := runCase(t, fc, &TestCase{ID: "s", Incoming: RawRef(`{}`), Expected: refTo(RawRef(`"1"`))})
	assert.Equal(t, OutcomePass, outcome.Status)

	outcome = runCase(t, fc, &TestCase{ID: "n", Incoming: RawRef(`{}`), Expected: refTo(RawRef(`1`))})
	require.Equal(t, OutcomeMismatch, outcome.Status)
	require.Len(t, outcome.Diffs, 1)
	assert.Equal(t, `<root>: expected 1, got "1"`, outcome.Diffs[0].String())
}

func TestScriptResultStringScalars(t *testing.T) {
	for _, s := range []string{"1", "true", "null", "2.5"} {
		raw, err := json.Marshal(map[string]string{"result": s})
		require.NoError(t, err)
		got, err := scriptResult(raw)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := scriptResult([]byte(`{"result":"[1,{\"a\":true}]"}`))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{json.Number("1"), map[string]interface{}{"a": true}}, got)
}

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// fakeCluster is an httptest server standing in for OpenSearch.
type fakeCluster struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeCluster(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body []byte)) *fakeCluster {
	t.Helper()
	fc := &fakeCluster{}
	fc.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fc.mu.Lock()
		fc.requests = append(fc.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
		fc.mu.Unlock()
		handler(w, r, body)
	}))
	t.Cleanup(fc.Close)
	return fc
}

func (fc *fakeCluster) recorded() []recordedRequest {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]recordedRequest(nil), fc.requests...)
}

func (fc *fakeCluster) connect(t *testing.T) *Connection {
	t.Helper()
	conn, err := Connect(ConnectionConfig{
		ClusterURL: fc.URL,
		Username:   "admin",
		Password:   "admin",
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	return conn
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// closedClusterURL returns the url of a server that no longer listens.
func closedClusterURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

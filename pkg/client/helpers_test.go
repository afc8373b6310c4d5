package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testToken = "s.test-token"

type recordedRequest struct {
	Method  string
	Path    string
	RawPath string
	Query   string
	Header  http.Header
	Body    []byte
}

func (r recordedRequest) decodeBody(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(r.Body, &out))
	return out
}

// requestLog records every request a test server received.
type requestLog struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (l *requestLog) add(r recordedRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reqs = append(l.reqs, r)
}

func (l *requestLog) all() []recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedRequest(nil), l.reqs...)
}

func (l *requestLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.reqs)
}

func (l *requestLog) countPath(path string) int {
	n := 0
	for _, r := range l.all() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (l *requestLog) last(t *testing.T) recordedRequest {
	t.Helper()
	reqs := l.all()
	require.NotEmpty(t, reqs, "no request recorded")
	return reqs[len(reqs)-1]
}

// clearVaultEnv keeps the caller's VAULT_* environment out of the test.
func clearVaultEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{EnvAddress, EnvToken, EnvNamespace, EnvCACert} {
		t.Setenv(env, "")
	}
}

// newTestServer starts an HTTP server that records requests before passing
// them to handler.
func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *requestLog) {
	t.Helper()
	log := &requestLog{}
	srv := httptest.NewServer(recording(log, handler))
	t.Cleanup(srv.Close)
	return srv, log
}

func recording(log *requestLog, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		log.add(recordedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			RawPath: r.URL.EscapedPath(),
			Query:   r.URL.RawQuery,
			Header:  r.Header.Clone(),
			Body:    body,
		})
		r.Body = io.NopCloser(bytes.NewReader(body))
		handler(w, r)
	}
}

// newTestClient returns a client pointed at a recording test server.
func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *requestLog) {
	t.Helper()
	clearVaultEnv(t)
	srv, log := newTestServer(t, handler)
	c, err := New(append([]Option{WithAddress(srv.URL), WithToken(testToken)}, opts...)...)
	require.NoError(t, err)
	return c, log
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, msgs ...string) {
	writeJSON(w, status, map[string]any{"errors": msgs})
}

func authBody(token string, lease int) map[string]any {
	return map[string]any{
		"auth": map[string]any{
			"client_token":   token,
			"accessor":       "accessor-" + token,
			"policies":       []string{"default"},
			"metadata":       nil,
			"lease_duration": lease,
			"renewable":      true,
		},
	}
}

func keyList(keys ...string) map[string]any {
	return map[string]any{"data": map[string]any{"keys": keys}}
}

package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVClient(t *testing.T) {
	c, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"user": "admin", "port": 5432}})
		case MethodList:
			writeJSON(w, http.StatusOK, keyList("app", "db/"))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	kv := c.KV()
	ctx := context.Background()

	require.NoError(t, kv.Create(ctx, "app/db", map[string]any{"user": "admin", "port": 5432}))
	req := log.last(t)
	assert.Equal(t, "POST /v1/kv/app/db", req.Method+" "+req.Path)
	assert.JSONEq(t, `{"user":"admin","port":5432}`, string(req.Body))

	secret, err := kv.Read(ctx, "app/db")
	require.NoError(t, err)
	assert.Equal(t, "admin", secret.Data["user"])
	assert.Equal(t, "GET /v1/kv/app/db", log.last(t).Method+" "+log.last(t).Path)

	keys, err := kv.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "db/"}, keys.Data.Keys)
	assert.Equal(t, "LIST /v1/kv", log.last(t).Method+" "+log.last(t).Path)

	require.NoError(t, kv.Delete(ctx, "app/db"))
	assert.Equal(t, "DELETE /v1/kv/app/db", log.last(t).Method+" "+log.last(t).Path)
}

func TestKVClientNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeErrors(w, http.StatusNotFound)
	})

	_, err := c.KV().Read(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestKVPathReservedCharactersAreEscaped(t *testing.T) {
	c, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == MethodGet {
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{}})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	_, err := c.KV().Read(ctx, "app?x")
	require.NoError(t, err)
	req := log.last(t)
	assert.Equal(t, "/v1/kv/app?x", req.Path)
	assert.Equal(t, "/v1/kv/app%3Fx", req.RawPath)
	assert.Empty(t, req.Query)

	require.NoError(t, c.KV().Delete(ctx, "team#1/a%b c"))
	req = log.last(t)
	assert.Equal(t, "/v1/kv/team#1/a%b c", req.Path)
	assert.Equal(t, "/v1/kv/team%231/a%25b%20c", req.RawPath)
	assert.Empty(t, req.Query)
}

func TestKV2VersionQuerySurvivesReservedPath(t *testing.T) {
	c, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeErrors(w, http.StatusNotFound)
	})

	_, err := c.KV2().Read(context.Background(), "app?version=9", 2)
	require.Error(t, err)
	req := log.last(t)
	assert.Equal(t, "/v1/secret/data/app?version=9", req.Path)
	assert.Equal(t, "version=2", req.Query)
}

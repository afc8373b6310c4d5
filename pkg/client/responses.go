package client

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/vaultkit/vault-client/pkg/api"
)

// Response is a response whose status was accepted.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Empty reports whether the response carried no body.
func (r *Response) Empty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r.Empty() {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "decode response body")
	}
	return nil
}

// decodeContract checks the body against the named contract before
// decoding it into v.
func (r *Response) decodeContract(contract string, v any) error {
	if err := api.Check(contract, r.Body); err != nil {
		return err
	}
	return r.Decode(v)
}

// KeyListData is the payload of every LIST response.
type KeyListData struct {
	Keys []string `json:"keys"`
}

// KeyListResponse is returned by every LIST operation.
type KeyListResponse struct {
	Data KeyListData `json:"data"`
}

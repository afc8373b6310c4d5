package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vaultkit/vault-client/pkg/api"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTP methods understood by the server. LIST is sent as its own method token.
const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodDelete = http.MethodDelete
	MethodList   = "LIST"
)

// Request headers.
const (
	HeaderToken     = "X-Vault-Token"
	HeaderNamespace = "X-Vault-Namespace"
)

var defaultAcceptedStatus = []int{http.StatusOK, http.StatusNoContent}

// RequestOption adjusts a single request.
type RequestOption func(*request)

// WithQuery adds query parameters to the request.
func WithQuery(params map[string]string) RequestOption {
	return func(r *request) {
		if r.query == nil {
			r.query = make(map[string]string, len(params))
		}
		for k, v := range params {
			r.query[k] = v
		}
	}
}

// WithAcceptedStatus replaces the accepted status codes (default 200, 204).
func WithAcceptedStatus(codes ...int) RequestOption {
	return func(r *request) {
		r.accepted = codes
	}
}

// WithoutTokenRenew disables the login-and-retry on a 403 response.
func WithoutTokenRenew() RequestOption {
	return func(r *request) {
		r.renewRetry = false
	}
}

type request struct {
	method     string
	path       []string
	body       any
	query      map[string]string
	accepted   []int
	renewRetry bool
}

func newRequest(method string, path []string, body any, opts []RequestOption) *request {
	req := &request{
		method:     method,
		path:       path,
		body:       body,
		accepted:   defaultAcceptedStatus,
		renewRetry: true,
	}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// attempt tracks which one-shot recoveries a call has already used.
type attempt struct {
	certReloaded bool
}

// do runs one logical request: resolve, send, recover once from a
// certificate failure and once from a 403, then classify the final response.
func (c *Client) do(ctx context.Context, req *request) (*Response, error) {
	u, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "vault.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("url.path", u.Path),
		),
	)
	defer span.End()

	resp, err := c.execute(ctx, req, u)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if slices.Contains(req.accepted, resp.StatusCode) {
		return resp, nil
	}

	reqErr := newRequestError(u, resp)
	err = classify(reqErr)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

// execute sends the request and applies the two one-shot recoveries. It
// returns the last response regardless of its status.
func (c *Client) execute(ctx context.Context, req *request, u *url.URL) (*Response, error) {
	body, err := encodeBody(req.body)
	if err != nil {
		return nil, err
	}

	var state attempt
	resp, err := c.send(ctx, req, u, body, &state)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusForbidden || !req.renewRetry {
		return resp, nil
	}
	tm := c.tokenManager()
	if tm == nil || !tm.HasProvider() {
		return resp, nil
	}

	c.log.Info("request forbidden, renewing token", "method", req.method, "path", u.Path)
	c.metrics.observeRetry(retryTokenRenew)
	if _, loginErr := tm.Login(ctx); loginErr != nil {
		return nil, errors.WithSecondaryError(
			errors.Wrap(loginErr, "renew token after 403"),
			classify(newRequestError(u, resp)),
		)
	}
	return c.send(ctx, req, u, body, &state)
}

// send performs one HTTP round trip, retrying once with a reloaded CA
// certificate when the server certificate cannot be verified.
func (c *Client) send(ctx context.Context, req *request, u *url.URL, body []byte, state *attempt) (*Response, error) {
	for {
		resp, err := c.roundTrip(ctx, req, u, body)
		if err == nil {
			return resp, nil
		}
		if state.certReloaded || !isCertificateSignatureError(err) || !c.ca.hasPath() {
			return nil, err
		}

		state.certReloaded = true
		c.log.Info("server certificate not trusted, reloading CA certificate", "path", u.Path)
		c.metrics.observeRetry(retryCertificate)
		if reloadErr := c.ca.reload(); reloadErr != nil {
			return nil, errors.WithSecondaryError(reloadErr, err)
		}
	}
}

func (c *Client) roundTrip(ctx context.Context, req *request, u *url.URL, body []byte) (*Response, error) {
	httpClient, err := c.ca.httpClient()
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		httpReq.Header.Set(HeaderToken, token)
	}
	if c.namespace != "" {
		httpReq.Header.Set(HeaderNamespace, c.namespace)
	}

	start := time.Now()
	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		c.metrics.observeRequest(req.method, 0, time.Since(start))
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	c.metrics.observeRequest(req.method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	c.log.V(1).Info("request", "method", req.method, "path", u.Path, "status", httpResp.StatusCode)
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func (c *Client) resolve(req *request) (*url.URL, error) {
	parts := make([]string, 0, len(req.path)+2)
	parts = append(parts, c.address, c.apiVersion)
	parts = append(parts, req.path...)
	u, err := ResolveURL(parts...)
	if err != nil {
		return nil, err
	}

	query, err := api.EncodeQuery(req.query)
	if err != nil {
		return nil, err
	}
	u.RawQuery = query
	return u, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode request body")
	}
	return data, nil
}

func newRequestError(u *url.URL, resp *Response) *RequestError {
	errResp := ErrorResponse{StatusCode: resp.StatusCode}

	var body ErrorBody
	if json.Unmarshal(resp.Body, &body) == nil && len(body.Errors) > 0 {
		errResp.Body = &body
	}

	return &RequestError{
		Message:  fmt.Sprintf("request to %s failed (status %d)", u.Redacted(), resp.StatusCode),
		URL:      u.String(),
		Response: errResp,
	}
}

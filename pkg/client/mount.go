package client

import (
	"context"
	"os"
)

// mount is the shared base of every sub-client: all paths are resolved
// below prefix.
type mount struct {
	c      *Client
	prefix string
}

func (m mount) path(parts ...string) []string {
	return append([]string{m.prefix}, parts...)
}

func (m mount) read(ctx context.Context, path []string, opts ...RequestOption) (*Response, error) {
	return m.c.do(ctx, newRequest(MethodGet, m.path(path...), nil, opts))
}

func (m mount) write(ctx context.Context, path []string, body any, opts ...RequestOption) (*Response, error) {
	return m.c.do(ctx, newRequest(MethodPost, m.path(path...), body, opts))
}

func (m mount) delete(ctx context.Context, path []string, body any, opts ...RequestOption) (*Response, error) {
	return m.c.do(ctx, newRequest(MethodDelete, m.path(path...), body, opts))
}

func (m mount) list(ctx context.Context, path []string, opts ...RequestOption) (*Response, error) {
	return m.c.do(ctx, newRequest(MethodList, m.path(path...), nil, opts))
}

// MountPoint returns the path prefix the sub-client operates under.
func (m mount) MountPoint() string {
	return m.prefix
}

var readFile = os.ReadFile

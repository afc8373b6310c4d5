package client

import (
	"context"
	"net/url"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"
)

const tracerName = "github.com/vaultkit/vault-client/pkg/client"

// Client is the root of the library: it holds connection settings and
// builds the sub-clients for each secrets engine and auth method.
//
// A Client is safe for concurrent use by multiple goroutines. It maintains
// an internal HTTP connection pool, shared across requests.
//
// Do not copy a Client after first use.
type Client struct {
	address    string
	apiVersion string
	namespace  string
	token      string

	ca      *caStore
	log     logr.Logger
	metrics *metrics
	tracer  trace.Tracer
	clock   clock.WithDelayedExecution
	backoff *renewBackoff

	mu sync.Mutex
	tm *TokenManager
}

// New creates a client. Settings not given as options are read from the
// VAULT_ADDR, VAULT_TOKEN, VAULT_NAMESPACE and VAULT_CACERT environment
// variables.
func New(opts ...Option) (*Client, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.address == "" {
		return nil, errors.New("address cannot be empty")
	}
	if _, err := url.Parse(options.address); err != nil {
		return nil, errors.Wrapf(ErrInvalidURL, "address %q: %v", options.address, err)
	}
	if options.apiVersion == "" {
		return nil, errors.New("API version cannot be empty")
	}
	if options.timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}
	if options.renewWaitMin <= 0 || options.renewWaitMax < options.renewWaitMin {
		return nil, errors.New("renew retry wait must be positive with min <= max")
	}

	return &Client{
		address:    options.address,
		apiVersion: options.apiVersion,
		namespace:  options.namespace,
		token:      options.token,
		ca:         newCAStore(options),
		log:        options.logger.WithName("vault"),
		metrics:    newMetrics(options.registerer),
		tracer:     options.tracerProvider.Tracer(tracerName),
		clock:      options.clock,
		backoff:    newRenewBackoff(options),
	}, nil
}

// Address returns the configured server address.
func (c *Client) Address() string { return c.address }

// APIVersion returns the API version path segment.
func (c *Client) APIVersion() string { return c.apiVersion }

// Namespace returns the namespace header value, if any.
func (c *Client) Namespace() string { return c.namespace }

// Token returns the token sent with requests: the token manager's current
// token when it holds one, otherwise the static token.
func (c *Client) Token() string {
	if tm := c.tokenManager(); tm != nil {
		if token := tm.Token(); token != "" {
			return token
		}
	}
	return c.token
}

// Read issues a GET for path relative to the API root.
func (c *Client) Read(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, newRequest(MethodGet, []string{path}, nil, opts))
}

// Write issues a POST with body for path relative to the API root.
func (c *Client) Write(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, newRequest(MethodPost, []string{path}, body, opts))
}

// Delete issues a DELETE for path relative to the API root. body may be nil.
func (c *Client) Delete(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, newRequest(MethodDelete, []string{path}, body, opts))
}

// List issues a LIST for path relative to the API root.
func (c *Client) List(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, newRequest(MethodList, []string{path}, nil, opts))
}

// MountOption configures a sub-client.
type MountOption func(*mountConfig)

type mountConfig struct {
	mountPoint string
}

// WithMountPoint overrides the default mount point of a sub-client.
func WithMountPoint(mountPoint string) MountOption {
	return func(m *mountConfig) {
		m.mountPoint = mountPoint
	}
}

func (c *Client) mountAt(defaultMount string, opts []MountOption) mount {
	cfg := mountConfig{mountPoint: defaultMount}
	for _, opt := range opts {
		opt(&cfg)
	}
	return mount{c: c, prefix: cfg.mountPoint}
}

// KV returns a client for a version 1 key/value engine, mounted at "kv"
// unless overridden.
func (c *Client) KV(opts ...MountOption) *KVClient {
	return &KVClient{mount: c.mountAt("kv", opts)}
}

// KV2 returns a client for a version 2 key/value engine, mounted at "secret"
// unless overridden.
func (c *Client) KV2(opts ...MountOption) *KV2Client {
	return &KV2Client{mount: c.mountAt("secret", opts)}
}

// Transit returns a client for the transit engine, mounted at "transit"
// unless overridden.
func (c *Client) Transit(opts ...MountOption) *TransitClient {
	return &TransitClient{mount: c.mountAt("transit", opts)}
}

// TOTP returns a client for the TOTP engine, mounted at "totp" unless
// overridden.
func (c *Client) TOTP(opts ...MountOption) *TOTPClient {
	return &TOTPClient{mount: c.mountAt("totp", opts)}
}

// Health returns a client for the sys/health endpoint.
func (c *Client) Health() *HealthClient {
	return &HealthClient{mount: c.mountAt("sys", nil)}
}

// KubernetesAuth returns a client for the Kubernetes auth method, mounted at
// "auth/kubernetes" unless overridden. cfg may be nil and passed to Login
// later.
func (c *Client) KubernetesAuth(cfg *KubernetesLoginConfig, opts ...MountOption) *KubernetesAuthClient {
	k := &KubernetesAuthClient{
		mount:   c.mountAt("auth/kubernetes", opts),
		readJWT: readFile,
	}
	if cfg != nil {
		k.setConfig(cfg)
	}
	return k
}

// Auth returns the client's token manager, creating it on first call.
// Later calls return the same manager; provider and opts are only applied
// on creation. provider may be nil, in which case Login fails and a 403 is
// never retried.
func (c *Client) Auth(provider AuthProvider, opts ...MountOption) *TokenManager {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tm == nil {
		c.tm = newTokenManager(c.mountAt("auth/token", opts), provider)
	}
	return c.tm
}

func (c *Client) tokenManager() *TokenManager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tm
}

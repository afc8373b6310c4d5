package client

import (
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"
)

// Environment variables consulted when no explicit option is given.
const (
	EnvAddress   = "VAULT_ADDR"
	EnvToken     = "VAULT_TOKEN"
	EnvNamespace = "VAULT_NAMESPACE"
	EnvCACert    = "VAULT_CACERT"
)

const (
	DefaultAddress    = "http://127.0.0.1:8200"
	DefaultAPIVersion = "v1"
)

// Options configures the client behavior.
type Options struct {
	address        string
	token          string
	apiVersion     string
	namespace      string
	caCert         []byte
	caCertPath     string
	timeout        time.Duration
	httpClient     *http.Client
	logger         logr.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	clock          clock.WithDelayedExecution
	renewWaitMin   time.Duration
	renewWaitMax   time.Duration
}

func defaultOptions() *Options {
	address := os.Getenv(EnvAddress)
	if address == "" {
		address = DefaultAddress
	}
	return &Options{
		address:        address,
		token:          os.Getenv(EnvToken),
		apiVersion:     DefaultAPIVersion,
		namespace:      os.Getenv(EnvNamespace),
		caCertPath:     os.Getenv(EnvCACert),
		timeout:        60 * time.Second,
		logger:         logr.Discard(),
		tracerProvider: otel.GetTracerProvider(),
		clock:          clock.RealClock{},
		renewWaitMin:   1 * time.Second,
		renewWaitMax:   30 * time.Second,
	}
}

// Option configures the client.
type Option func(*Options)

// WithAddress sets the server address, e.g. https://vault.example.com:8200.
// Default is $VAULT_ADDR, then http://127.0.0.1:8200.
func WithAddress(address string) Option {
	return func(o *Options) {
		o.address = address
	}
}

// WithToken sets the static token sent with every request.
// Default is $VAULT_TOKEN.
func WithToken(token string) Option {
	return func(o *Options) {
		o.token = token
	}
}

// WithAPIVersion sets the API version path segment. Default is "v1".
func WithAPIVersion(version string) Option {
	return func(o *Options) {
		o.apiVersion = version
	}
}

// WithNamespace sets the X-Vault-Namespace header value.
func WithNamespace(namespace string) Option {
	return func(o *Options) {
		o.namespace = namespace
	}
}

// WithCACertificate sets PEM encoded CA certificates used to verify the server.
func WithCACertificate(pem []byte) Option {
	return func(o *Options) {
		o.caCert = pem
	}
}

// WithCACertificatePath sets a PEM file read on first use. The file is read
// again when the server certificate fails verification.
func WithCACertificatePath(path string) Option {
	return func(o *Options) {
		o.caCertPath = path
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.timeout = d
	}
}

// WithHTTPClient sets the HTTP client. If its transport is an
// *http.Transport it is cloned when CA certificates are configured.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger. Default discards everything.
func WithLogger(l logr.Logger) Option {
	return func(o *Options) {
		o.logger = l
	}
}

// WithMetrics registers client metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.registerer = reg
	}
}

// WithTracerProvider sets the tracer provider. Default is the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.tracerProvider = tp
	}
}

// WithClock sets the clock used for token expiry and renewal scheduling.
func WithClock(c clock.WithDelayedExecution) Option {
	return func(o *Options) {
		o.clock = c
	}
}

// WithRenewRetryWait sets the min/max backoff between failed automatic
// token renewals. Default is 1s min, 30s max.
func WithRenewRetryWait(min, max time.Duration) Option {
	return func(o *Options) {
		o.renewWaitMin = min
		o.renewWaitMax = max
	}
}

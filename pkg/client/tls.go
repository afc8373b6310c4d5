package client

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-rootcerts"
)

// caStore owns the CA certificate material and the HTTP client built from it.
// The certificate file is read once and cached; reload reads it again and
// rebuilds the client.
type caStore struct {
	mu       sync.Mutex
	path     string
	pem      []byte
	loaded   bool
	base     *http.Transport
	custom   *http.Client
	timeout  time.Duration
	client   *http.Client
	readFile func(string) ([]byte, error)
}

func newCAStore(opts *Options) *caStore {
	s := &caStore{
		path:     opts.caCertPath,
		pem:      opts.caCert,
		loaded:   len(opts.caCert) > 0,
		timeout:  opts.timeout,
		custom:   opts.httpClient,
		readFile: os.ReadFile,
	}
	if opts.httpClient != nil {
		if tr, ok := opts.httpClient.Transport.(*http.Transport); ok {
			s.base = tr
		}
	}
	if s.base == nil && opts.httpClient == nil {
		s.base = cleanhttp.DefaultPooledTransport()
	}
	return s
}

// hasPath reports whether the certificate can be reloaded from disk.
func (s *caStore) hasPath() bool {
	return s.path != ""
}

// httpClient returns the client for the next attempt, loading the CA file
// on first use.
func (s *caStore) httpClient() (*http.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded && s.path != "" {
		if err := s.readLocked(); err != nil {
			return nil, err
		}
	}
	if s.client == nil {
		c, err := s.buildLocked()
		if err != nil {
			return nil, err
		}
		s.client = c
	}
	return s.client, nil
}

// reload re-reads the CA file and rebuilds the client.
func (s *caStore) reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	if err := s.readLocked(); err != nil {
		return err
	}
	c, err := s.buildLocked()
	if err != nil {
		return err
	}
	s.client = c
	return nil
}

func (s *caStore) readLocked() error {
	pem, err := s.readFile(s.path)
	if err != nil {
		return errors.Wrapf(err, "read CA certificate %s", s.path)
	}
	s.pem = pem
	s.loaded = true
	return nil
}

func (s *caStore) buildLocked() (*http.Client, error) {
	if s.base == nil {
		// Custom client with a transport we cannot configure; use as is.
		return s.custom, nil
	}
	if len(s.pem) == 0 {
		if s.custom != nil {
			return s.custom, nil
		}
		return &http.Client{Transport: s.base, Timeout: s.timeout}, nil
	}

	tr := s.base.Clone()
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if tr.TLSClientConfig != nil {
		tlsConfig = tr.TLSClientConfig.Clone()
	}
	if err := rootcerts.ConfigureTLS(tlsConfig, &rootcerts.Config{CACertificate: s.pem}); err != nil {
		return nil, errors.Wrap(err, "configure CA certificate")
	}
	tr.TLSClientConfig = tlsConfig

	timeout := s.timeout
	if s.custom != nil {
		timeout = s.custom.Timeout
	}
	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

// isCertificateSignatureError reports a server certificate that could not be
// verified against the configured roots.
func isCertificateSignatureError(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	return errors.As(err, &unknownAuthority)
}

package client

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"github.com/vaultkit/vault-client/pkg/api"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"
)

const (
	// renewBefore is how long before expiry the automatic renewal runs.
	renewBefore = 10 * time.Second
	// minRenewInterval bounds the schedule for very short leases.
	minRenewInterval = time.Second
)

// TokenAuth is the auth block of a login or renewal response.
type TokenAuth struct {
	ClientToken   string         `json:"client_token"`
	Accessor      string         `json:"accessor"`
	Policies      []string       `json:"policies"`
	Metadata      map[string]any `json:"metadata"`
	LeaseDuration int            `json:"lease_duration"`
	Renewable     bool           `json:"renewable"`
}

// Lease returns the lease duration as a time.Duration.
func (a TokenAuth) Lease() time.Duration {
	return time.Duration(a.LeaseDuration) * time.Second
}

// TokenAuthResponse is returned by logins and token renewals.
type TokenAuthResponse struct {
	Auth TokenAuth `json:"auth"`
}

// AuthProvider obtains a fresh token, e.g. by logging in with an auth method.
type AuthProvider interface {
	Auth(ctx context.Context) (*TokenAuthResponse, error)
}

// AuthProviderFunc adapts a function to AuthProvider.
type AuthProviderFunc func(ctx context.Context) (*TokenAuthResponse, error)

func (f AuthProviderFunc) Auth(ctx context.Context) (*TokenAuthResponse, error) {
	return f(ctx)
}

// TokenRenewOptions renews an explicitly named token.
type TokenRenewOptions struct {
	Token     string `json:"token"`
	Increment string `json:"increment,omitempty"`
}

// TokenRenewSelfOptions renews the token the client currently holds.
type TokenRenewSelfOptions struct {
	Increment string `json:"increment,omitempty"`
}

// TokenManager holds the active token, renews it and optionally keeps it
// renewed in the background.
//
// It is safe for concurrent use by multiple goroutines.
type TokenManager struct {
	mount
	provider AuthProvider
	clock    clock.WithDelayedExecution
	log      logr.Logger
	logins   singleflight.Group

	mu      sync.RWMutex
	auth    *TokenAuth
	issued  time.Time
	expires time.Time

	loopMu     sync.Mutex
	running    bool
	generation int
	failures   int
	timer      clock.Timer
	handlers   []func(error)
}

func newTokenManager(m mount, provider AuthProvider) *TokenManager {
	return &TokenManager{
		mount:    m,
		provider: provider,
		clock:    m.c.clock,
		log:      m.c.log.WithName("token"),
	}
}

// HasProvider reports whether Login can obtain a new token.
func (t *TokenManager) HasProvider() bool {
	return t.provider != nil
}

// Token returns the current token, or "" before the first login or renewal.
func (t *TokenManager) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.auth == nil {
		return ""
	}
	return t.auth.ClientToken
}

// Expires returns when the current token expires. The zero time means there
// is no token or it does not expire.
func (t *TokenManager) Expires() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.expires
}

// Renew renews the named token. The manager's own state is left untouched.
func (t *TokenManager) Renew(ctx context.Context, opts TokenRenewOptions) (*TokenAuthResponse, error) {
	resp, err := t.write(ctx, []string{"renew"}, opts)
	if err != nil {
		return nil, err
	}
	var out TokenAuthResponse
	if err := resp.decodeContract(api.ContractTokenAuth, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenewSelf renews the lease of the current token. If that fails and
// fallback is set, a new token is obtained from the auth provider instead.
func (t *TokenManager) RenewSelf(ctx context.Context, opts TokenRenewSelfOptions, fallback bool) (*TokenAuthResponse, error) {
	out, err := t.renewSelf(ctx, opts)
	if err != nil && fallback && t.provider != nil {
		t.log.Info("token renewal failed, logging in again", "error", err.Error())
		renewErr := err
		out, err = t.authenticate(ctx)
		if err != nil {
			err = errors.WithSecondaryError(errors.Wrap(err, "login after failed renewal"), renewErr)
		}
	}
	t.metrics().observeRenewal(err)
	if err != nil {
		return nil, err
	}
	t.set(out)
	return out, nil
}

func (t *TokenManager) renewSelf(ctx context.Context, opts TokenRenewSelfOptions) (*TokenAuthResponse, error) {
	resp, err := t.write(ctx, []string{"renew-self"}, opts, WithoutTokenRenew())
	if err != nil {
		return nil, err
	}
	var out TokenAuthResponse
	if err := resp.decodeContract(api.ContractTokenAuth, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login replaces the held token with a fresh one from the auth provider.
// Concurrent calls share a single provider call.
func (t *TokenManager) Login(ctx context.Context) (*TokenAuthResponse, error) {
	if t.provider == nil {
		return nil, &ConfigurationError{
			Operation: "login",
			Message:   "no authentication provider configured",
		}
	}

	v, err, _ := t.logins.Do("login", func() (any, error) {
		return t.authenticate(ctx)
	})
	t.metrics().observeRenewal(err)
	if err != nil {
		return nil, err
	}
	out := v.(*TokenAuthResponse)
	t.set(out)
	return out, nil
}

// authenticate asks the provider for a token. A provider answering with
// neither a response nor an error is treated as a failed login.
func (t *TokenManager) authenticate(ctx context.Context) (*TokenAuthResponse, error) {
	out, err := t.provider.Auth(ctx)
	if err == nil && out == nil {
		err = errors.New("auth provider returned no token")
	}
	return out, err
}

func (t *TokenManager) set(resp *TokenAuthResponse) {
	now := t.clock.Now()
	auth := resp.Auth

	t.mu.Lock()
	defer t.mu.Unlock()
	t.auth = &auth
	t.issued = now
	t.expires = time.Time{}
	if auth.LeaseDuration > 0 {
		t.expires = now.Add(auth.Lease())
	}
}

// EnableAutoRenew renews the token now and keeps renewing it shortly before
// it expires. Failed renewals are passed to every registered handler and
// retried with backoff.
//
// Calling it while renewal is already running only registers the extra
// handlers. The first renewal's error is returned.
func (t *TokenManager) EnableAutoRenew(ctx context.Context, onError ...func(error)) error {
	t.loopMu.Lock()
	t.handlers = append(t.handlers, onError...)
	if t.running {
		t.loopMu.Unlock()
		return nil
	}
	t.running = true
	t.failures = 0
	t.generation++
	gen := t.generation
	t.loopMu.Unlock()

	t.log.Info("auto renew enabled")
	return t.autoRenew(context.WithoutCancel(ctx), gen)
}

// DisableAutoRenew stops background renewal. Registered handlers are kept.
func (t *TokenManager) DisableAutoRenew() {
	t.loopMu.Lock()
	defer t.loopMu.Unlock()

	t.running = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// autoRenew performs one renewal and schedules the next. A callback from a
// previous generation is a no-op.
func (t *TokenManager) autoRenew(ctx context.Context, gen int) error {
	_, err := t.RenewSelf(ctx, TokenRenewSelfOptions{}, true)

	t.loopMu.Lock()
	if !t.running || t.generation != gen {
		t.loopMu.Unlock()
		return err
	}

	var next time.Duration
	if err != nil {
		t.failures++
		next = t.backoff().delay(t.failures)
		t.log.Error(err, "token renewal failed", "attempt", t.failures, "next", next)
	} else {
		t.failures = 0
		expires := t.Expires()
		if expires.IsZero() {
			t.running = false
			t.timer = nil
			t.loopMu.Unlock()
			t.log.Info("token does not expire, auto renew stopped")
			return nil
		}
		next = max(expires.Sub(t.clock.Now())-renewBefore, minRenewInterval)
		t.log.V(1).Info("token renewed", "next", next)
	}

	t.timer = t.clock.AfterFunc(next, func() {
		go func() { _ = t.autoRenew(ctx, gen) }()
	})
	handlers := append([]func(error){}, t.handlers...)
	t.loopMu.Unlock()

	if err != nil {
		t.report(handlers, err)
	}
	return err
}

// report calls every handler; a panicking handler does not stop the others.
func (t *TokenManager) report(handlers []func(error), err error) {
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.log.Info("auto renew error handler panicked", "panic", r)
				}
			}()
			h(err)
		}()
	}
}

func (t *TokenManager) metrics() *metrics { return t.c.metrics }

func (t *TokenManager) backoff() *renewBackoff { return t.c.backoff }

package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vaultkit/vault-client/pkg/api"
)

// DefaultServiceAccountTokenPath is where Kubernetes mounts the pod's
// service account token.
const DefaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// KubernetesLoginConfig are the login parameters of the Kubernetes auth
// method. When JWT is empty it is read from JWTPath, or from
// DefaultServiceAccountTokenPath when that is empty too.
type KubernetesLoginConfig struct {
	Role    string `json:"role"`
	JWT     string `json:"jwt"`
	JWTPath string `json:"-"`
}

// KubernetesAuthClient exchanges a service account token for a Vault token.
// It implements AuthProvider.
//
// A token read from a file is read again once its exp claim has passed, so
// rotated projected tokens keep working.
type KubernetesAuthClient struct {
	mount
	readJWT func(string) ([]byte, error)

	mu       sync.Mutex
	config   *KubernetesLoginConfig
	fromFile bool
}

var _ AuthProvider = (*KubernetesAuthClient)(nil)

func (k *KubernetesAuthClient) setConfig(cfg *KubernetesLoginConfig) {
	k.mu.Lock()
	defer k.mu.Unlock()

	c := *cfg
	k.config = &c
	k.fromFile = false
}

// Login replaces the login parameters with cfg, if not nil, and logs in.
func (k *KubernetesAuthClient) Login(ctx context.Context, cfg *KubernetesLoginConfig) (*TokenAuthResponse, error) {
	if cfg != nil {
		k.setConfig(cfg)
	}
	return k.Auth(ctx)
}

// Auth logs in with the configured parameters.
func (k *KubernetesAuthClient) Auth(ctx context.Context) (*TokenAuthResponse, error) {
	body, err := k.loginBody()
	if err != nil {
		return nil, err
	}

	resp, err := k.write(ctx, []string{"login"}, body, WithoutTokenRenew())
	if err != nil {
		return nil, err
	}
	var out TokenAuthResponse
	if err := resp.decodeContract(api.ContractTokenAuth, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (k *KubernetesAuthClient) loginBody() (KubernetesLoginConfig, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.config == nil {
		return KubernetesLoginConfig{}, &ConfigurationError{
			Operation: "kubernetes auth",
			Message:   "login config not set",
		}
	}

	if k.config.JWT == "" || (k.fromFile && jwtExpired(k.config.JWT, k.c.clock.Now())) {
		path := k.config.JWTPath
		if path == "" {
			path = DefaultServiceAccountTokenPath
		}
		data, err := k.readJWT(path)
		if err != nil {
			return KubernetesLoginConfig{}, errors.Wrapf(err, "read service account token %s", path)
		}
		k.config.JWT = strings.TrimSpace(string(data))
		k.fromFile = true
	}
	return *k.config, nil
}

// jwtExpired reports whether the token's exp claim lies before now. Tokens
// that cannot be parsed or carry no exp are treated as valid.
func jwtExpired(token string, now time.Time) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}

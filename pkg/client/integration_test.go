//go:build integration

package client

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/vault"
)

const (
	integrationImage = "hashicorp/vault:1.17.2"
	rootToken        = "root-token"
)

// startVault runs a dev server with the engines under test enabled and
// returns its address together with an official API client for
// cross-checking.
func startVault(t *testing.T) (string, *vaultapi.Client) {
	t.Helper()
	ctx := context.Background()

	ctr, err := vault.Run(ctx, integrationImage,
		vault.WithToken(rootToken),
		vault.WithInitCommand("secrets enable transit"),
		vault.WithInitCommand("secrets enable -path=kv kv"),
		vault.WithInitCommand("secrets enable totp"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	address, err := ctr.HttpHostAddress(ctx)
	require.NoError(t, err)

	config := vaultapi.DefaultConfig()
	config.Address = address
	official, err := vaultapi.NewClient(config)
	require.NoError(t, err)
	official.SetToken(rootToken)

	return address, official
}

func TestIntegration(t *testing.T) {
	address, official := startVault(t)
	clearVaultEnv(t)

	c, err := New(WithAddress(address), WithToken(rootToken))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("health", func(t *testing.T) {
		health, err := c.Health().Health(ctx)
		require.NoError(t, err)
		assert.True(t, health.IsHealthy())
		assert.NotEmpty(t, health.Version)
	})

	t.Run("kv2", func(t *testing.T) {
		kv2 := c.KV2()

		created, err := kv2.Create(ctx, "app/config", KV2CreateBody{Data: map[string]any{"user": "admin"}})
		require.NoError(t, err)
		assert.Equal(t, 1, created.Data.Version)

		secret, err := official.KVv2("secret").Get(ctx, "app/config")
		require.NoError(t, err)
		assert.Equal(t, "admin", secret.Data["user"])

		_, err = official.KVv2("secret").Put(ctx, "app/config", map[string]any{"user": "root"})
		require.NoError(t, err)

		latest, err := kv2.Read(ctx, "app/config", 0)
		require.NoError(t, err)
		assert.Equal(t, "root", latest.Data.Data["user"])
		assert.Equal(t, 2, latest.Data.Metadata.Version)

		first, err := kv2.Read(ctx, "app/config", 1)
		require.NoError(t, err)
		assert.Equal(t, "admin", first.Data.Data["user"])

		cas := 1
		_, err = kv2.Create(ctx, "app/config", KV2CreateBody{
			Data:    map[string]any{"user": "stale"},
			Options: &KV2CreateOptions{CAS: &cas},
		})
		require.Error(t, err)
		assert.Equal(t, 400, StatusCode(err))

		keys, err := kv2.List(ctx, "app")
		require.NoError(t, err)
		assert.Equal(t, []string{"config"}, keys.Data.Keys)

		require.NoError(t, kv2.DeleteVersion(ctx, "app/config", 1))
		meta, err := kv2.ReadMetadata(ctx, "app/config")
		require.NoError(t, err)
		assert.Equal(t, 2, meta.Data.CurrentVersion)
		assert.False(t, meta.Data.Versions["1"].Deleted().IsZero())

		require.NoError(t, kv2.UndeleteVersion(ctx, "app/config", 1))
		require.NoError(t, kv2.DestroyVersion(ctx, "app/config", 2))
		require.NoError(t, kv2.Delete(ctx, "app/config"))

		_, err = kv2.Read(ctx, "app/config", 0)
		assert.Equal(t, 404, StatusCode(err))
	})

	t.Run("kv", func(t *testing.T) {
		kv := c.KV()

		require.NoError(t, kv.Create(ctx, "db", map[string]any{"password": "hunter2"}))
		secret, err := kv.Read(ctx, "db")
		require.NoError(t, err)
		assert.Equal(t, "hunter2", secret.Data["password"])

		keys, err := kv.List(ctx, "")
		require.NoError(t, err)
		assert.Contains(t, keys.Data.Keys, "db")

		require.NoError(t, kv.Delete(ctx, "db"))
		_, err = kv.Read(ctx, "db")
		assert.Equal(t, 404, StatusCode(err))
	})

	t.Run("transit", func(t *testing.T) {
		transit := c.Transit()

		exists, err := transit.KeyExists(ctx, "orders")
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, transit.Create(ctx, "orders", nil))
		ciphertext, err := transit.EncryptText(ctx, "orders", "4242 4242 4242 4242")
		require.NoError(t, err)

		decrypted, err := official.Logical().WriteWithContext(ctx, "transit/decrypt/orders", map[string]any{
			"ciphertext": ciphertext,
		})
		require.NoError(t, err)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("4242 4242 4242 4242")), decrypted.Data["plaintext"])

		require.NoError(t, transit.Rotate(ctx, "orders"))
		key, err := transit.Read(ctx, "orders")
		require.NoError(t, err)
		assert.Equal(t, 2, key.Data.LatestVersion)

		plaintext, err := transit.DecryptText(ctx, "orders", ciphertext)
		require.NoError(t, err)
		assert.Equal(t, "4242 4242 4242 4242", plaintext)

		batch, err := transit.Encrypt(ctx, "orders", TransitEncryptRequest{Batch: []TransitBatchPlaintext{
			{Plaintext: base64.StdEncoding.EncodeToString([]byte("a"))},
			{Plaintext: ""},
		}})
		require.NoError(t, err)
		require.Len(t, batch.Data.BatchResults, 2)

		dec, err := transit.Decrypt(ctx, "orders", TransitDecryptRequest{Batch: []TransitBatchCiphertext{
			{Ciphertext: batch.Data.BatchResults[0].Ciphertext},
			{Ciphertext: batch.Data.BatchResults[1].Ciphertext},
		}})
		require.NoError(t, err)
		assert.Equal(t, "YQ==", dec.Data.BatchResults[0].Plaintext)
		assert.Equal(t, "", dec.Data.BatchResults[1].Plaintext)

		require.NoError(t, transit.Create(ctx, "signer", &TransitCreateOptions{Type: TransitKeyED25519}))
		input := base64.StdEncoding.EncodeToString([]byte("release-1.0.0"))
		sig, err := transit.Sign(ctx, "signer", TransitSignRequest{Input: input})
		require.NoError(t, err)
		ver, err := transit.Verify(ctx, "signer", TransitVerifyRequest{Input: input, Signature: sig.Data.Signature})
		require.NoError(t, err)
		assert.True(t, ver.Data.Valid)

		require.NoError(t, transit.ForceDelete(ctx, "orders"))
		require.NoError(t, transit.ForceDelete(ctx, "orders"))
		_, err = transit.DecryptText(ctx, "orders", ciphertext)
		require.Error(t, err)
		assert.True(t, IsDecryptionKeyNotFound(err), "got %v", err)
	})

	t.Run("totp", func(t *testing.T) {
		totp := c.TOTP()

		exported := false
		_, err := totp.Create(ctx, "github", TOTPGenerateOptions{
			Issuer:      "GitHub",
			AccountName: "dev@example.com",
			Exported:    &exported,
		})
		require.NoError(t, err)

		key, err := totp.Read(ctx, "github")
		require.NoError(t, err)
		assert.Equal(t, "GitHub", key.Data.Issuer)

		code, err := totp.GenerateCode(ctx, "github")
		require.NoError(t, err)
		assert.Len(t, code.Data.Code, 6)

		valid, err := totp.ValidateCode(ctx, "github", code.Data.Code)
		require.NoError(t, err)
		assert.True(t, valid.Data.Valid)

		require.NoError(t, totp.Delete(ctx, "github"))
	})

	t.Run("token", func(t *testing.T) {
		child, err := official.Auth().Token().CreateWithContext(ctx, &vaultapi.TokenCreateRequest{
			TTL:       "1h",
			Renewable: boolPtr(true),
			Policies:  []string{"default"},
		})
		require.NoError(t, err)

		tc, err := New(WithAddress(address), WithToken(child.Auth.ClientToken))
		require.NoError(t, err)

		resp, err := tc.Auth(nil).RenewSelf(ctx, TokenRenewSelfOptions{Increment: "30m"}, false)
		require.NoError(t, err)
		assert.Equal(t, child.Auth.ClientToken, resp.Auth.ClientToken)
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), tc.Auth(nil).Expires(), time.Minute)
	})

	t.Run("login after forbidden", func(t *testing.T) {
		var logins int
		tc, err := New(WithAddress(address), WithToken("not-a-token"))
		require.NoError(t, err)
		tc.Auth(AuthProviderFunc(func(ctx context.Context) (*TokenAuthResponse, error) {
			logins++
			return &TokenAuthResponse{Auth: TokenAuth{ClientToken: rootToken}}, nil
		}))

		_, err = tc.KV2().Create(ctx, "retry", KV2CreateBody{Data: map[string]any{"ok": true}})
		require.NoError(t, err)
		assert.Equal(t, 1, logins)
	})
}

func boolPtr(b bool) *bool { return &b }

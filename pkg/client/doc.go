// Package client is an HTTP client for the Vault secrets management API.
//
// A Client holds the connection settings and hands out sub-clients for the
// secrets engines and auth methods it supports:
//   - KV and KV2 for the key/value engines
//   - Transit for encryption as a service
//   - TOTP for one-time passwords
//   - Health for sys/health
//   - Auth and KubernetesAuth for tokens and logins
//
// Every request goes through one pipeline that attaches the token and
// namespace, retries once after a certificate failure when a CA file is
// configured, retries once after a 403 when a token manager can log in
// again, and turns unexpected statuses into typed errors. Responses are
// checked against the shapes declared in pkg/api before they are decoded.
//
// # Basic Usage
//
//	c, err := client.New(
//	    client.WithAddress("https://vault.example.com:8200"),
//	    client.WithToken(os.Getenv("VAULT_TOKEN")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	secret, err := c.KV2().Read(ctx, "app/config", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(secret.Data.Data["password"])
//
// Without options the address, token, namespace and CA file are taken from
// VAULT_ADDR, VAULT_TOKEN, VAULT_NAMESPACE and VAULT_CACERT.
//
// # Authentication
//
// Auth returns the client's single token manager. Given an AuthProvider,
// such as the Kubernetes auth client, it can log in, renew the token ahead
// of expiry and recover from a 403:
//
//	k8s := c.KubernetesAuth(&client.KubernetesLoginConfig{Role: "app"})
//	tm := c.Auth(k8s)
//	if _, err := tm.Login(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	err = tm.EnableAutoRenew(ctx, func(err error) {
//	    log.Printf("token renewal failed: %v", err)
//	})
//	defer tm.DisableAutoRenew()
//
// # Error Handling
//
// Every response outside the accepted statuses is a *RequestError carrying
// the status and the server's messages. Some are refined further:
//
//	plaintext, err := c.Transit().DecryptText(ctx, "orders", ciphertext)
//	if err != nil {
//	    switch {
//	    case client.IsDecryptionKeyNotFound(err):
//	        // The key was deleted
//	    case client.IsPermissionDenied(err):
//	        // Policy does not allow decrypt
//	    case client.IsValidationError(err):
//	        // Bad key name, nothing was sent
//	    default:
//	        log.Printf("status %d: %v", client.StatusCode(err), err)
//	    }
//	}
package client

package client

import (
	"context"
	"encoding/base64"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/vaultkit/vault-client/pkg/api"
)

// TransitKeyType is the type of a transit key.
type TransitKeyType string

const (
	TransitKeyAES256GCM96      TransitKeyType = "aes256-gcm96"
	TransitKeyChaCha20Poly1305 TransitKeyType = "chacha20-poly1305"
	TransitKeyED25519          TransitKeyType = "ed25519"
	TransitKeyECDSAP256        TransitKeyType = "ecdsa-p256"
	TransitKeyRSA2048          TransitKeyType = "rsa-2048"
	TransitKeyRSA4096          TransitKeyType = "rsa-4096"
)

// TransitExportKeyType selects which key material Export returns.
type TransitExportKeyType string

const (
	TransitExportEncryptionKey TransitExportKeyType = "encryption-key"
	TransitExportSigningKey    TransitExportKeyType = "signing-key"
	TransitExportHMACKey       TransitExportKeyType = "hmac-key"
)

// TransitCreateOptions configures a new key.
type TransitCreateOptions struct {
	ConvergentEncryption bool           `json:"convergent_encryption,omitempty"`
	Derived              bool           `json:"derived,omitempty"`
	Exportable           bool           `json:"exportable,omitempty"`
	AllowPlaintextBackup bool           `json:"allow_plaintext_backup,omitempty"`
	Type                 TransitKeyType `json:"type,omitempty"`
}

// TransitUpdateOptions changes the configuration of a key. Nil fields are
// left unchanged.
type TransitUpdateOptions struct {
	MinDecryptionVersion *int  `json:"min_decryption_version,omitempty"`
	MinEncryptionVersion *int  `json:"min_encryption_version,omitempty"`
	DeletionAllowed      *bool `json:"deletion_allowed,omitempty"`
	Exportable           *bool `json:"exportable,omitempty"`
	AllowPlaintextBackup *bool `json:"allow_plaintext_backup,omitempty"`
}

// TransitExportOptions selects the key material and version to export.
// An empty Version exports all versions; "latest" exports the current one.
type TransitExportOptions struct {
	KeyType TransitExportKeyType
	Version string
}

// TransitKey describes a named key.
type TransitKey struct {
	Type                 TransitKeyType `json:"type"`
	DeletionAllowed      bool           `json:"deletion_allowed"`
	Derived              bool           `json:"derived"`
	Exportable           bool           `json:"exportable"`
	AllowPlaintextBackup bool           `json:"allow_plaintext_backup"`
	Keys                 map[string]any `json:"keys"`
	MinDecryptionVersion int            `json:"min_decryption_version"`
	MinEncryptionVersion int            `json:"min_encryption_version"`
	Name                 string         `json:"name"`
	SupportsEncryption   bool           `json:"supports_encryption"`
	SupportsDecryption   bool           `json:"supports_decryption"`
	SupportsDerivation   bool           `json:"supports_derivation"`
	SupportsSigning      bool           `json:"supports_signing"`
	LatestVersion        int            `json:"latest_version,omitempty"`
}

// TransitReadResponse is returned by TransitClient.Read.
type TransitReadResponse struct {
	Data TransitKey `json:"data"`
}

// TransitExportResponse holds exported key material by version.
type TransitExportResponse struct {
	Data struct {
		Name string            `json:"name"`
		Keys map[string]string `json:"keys"`
		Type TransitKeyType    `json:"type"`
	} `json:"data"`
}

// TransitBatchPlaintext is one item of a batch encryption, or one result of
// a batch decryption.
type TransitBatchPlaintext struct {
	Plaintext string `json:"plaintext"`
	Context   string `json:"context,omitempty"`
	Nonce     string `json:"nonce,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TransitBatchCiphertext is one item of a batch decryption, or one result of
// a batch encryption.
type TransitBatchCiphertext struct {
	Ciphertext string `json:"ciphertext"`
	Context    string `json:"context,omitempty"`
	Nonce      string `json:"nonce,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TransitEncryptRequest encrypts either Plaintext or, when Batch is set,
// every item of Batch. Plaintext and Context are base64 encoded.
type TransitEncryptRequest struct {
	Plaintext            string                  `json:"plaintext"`
	Context              string                  `json:"context,omitempty"`
	Nonce                string                  `json:"nonce,omitempty"`
	KeyVersion           int                     `json:"key_version,omitempty"`
	Type                 TransitKeyType          `json:"type,omitempty"`
	ConvergentEncryption string                  `json:"convergent_encryption,omitempty"`
	Batch                []TransitBatchPlaintext `json:"batch_input,omitempty"`
}

// IsBatch reports whether the request is a batch request.
func (r TransitEncryptRequest) IsBatch() bool { return r.Batch != nil }

// TransitEncryptResponse holds Ciphertext for a single request or
// BatchResults for a batch request.
type TransitEncryptResponse struct {
	Data struct {
		Ciphertext   string                   `json:"ciphertext,omitempty"`
		BatchResults []TransitBatchCiphertext `json:"batch_results,omitempty"`
	} `json:"data"`
}

// IsBatch reports whether the response answers a batch request.
func (r *TransitEncryptResponse) IsBatch() bool { return r.Data.BatchResults != nil }

// TransitDecryptRequest decrypts either Ciphertext or, when Batch is set,
// every item of Batch.
type TransitDecryptRequest struct {
	Ciphertext string                   `json:"ciphertext"`
	Context    string                   `json:"context,omitempty"`
	Nonce      string                   `json:"nonce,omitempty"`
	Batch      []TransitBatchCiphertext `json:"batch_input,omitempty"`
}

// IsBatch reports whether the request is a batch request.
func (r TransitDecryptRequest) IsBatch() bool { return r.Batch != nil }

// TransitDecryptResponse holds the base64 Plaintext for a single request or
// BatchResults for a batch request. An empty plaintext is returned as "".
type TransitDecryptResponse struct {
	Data struct {
		Plaintext    string                  `json:"plaintext"`
		BatchResults []TransitBatchPlaintext `json:"batch_results,omitempty"`
	} `json:"data"`
}

// IsBatch reports whether the response answers a batch request.
func (r *TransitDecryptResponse) IsBatch() bool { return r.Data.BatchResults != nil }

// TransitBatchInput is one item of a batch sign or verify request.
type TransitBatchInput struct {
	Input     string `json:"input"`
	Context   string `json:"context,omitempty"`
	Signature string `json:"signature,omitempty"`
	HMAC      string `json:"hmac,omitempty"`
}

// TransitSignRequest signs either Input or, when Batch is set, every item
// of Batch. Input is base64 encoded.
type TransitSignRequest struct {
	Input               string              `json:"input"`
	Context             string              `json:"context,omitempty"`
	KeyVersion          int                 `json:"key_version,omitempty"`
	HashAlgorithm       string              `json:"hash_algorithm,omitempty"`
	Prehashed           bool                `json:"prehashed,omitempty"`
	SignatureAlgorithm  string              `json:"signature_algorithm,omitempty"`
	MarshalingAlgorithm string              `json:"marshaling_algorithm,omitempty"`
	Batch               []TransitBatchInput `json:"batch_input,omitempty"`
}

// IsBatch reports whether the request is a batch request.
func (r TransitSignRequest) IsBatch() bool { return r.Batch != nil }

// TransitSignature is one signature of a batch sign response.
type TransitSignature struct {
	Signature  string `json:"signature"`
	KeyVersion int    `json:"key_version,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TransitSignResponse holds Signature for a single request or BatchResults
// for a batch request.
type TransitSignResponse struct {
	Data struct {
		Signature    string             `json:"signature,omitempty"`
		KeyVersion   int                `json:"key_version,omitempty"`
		BatchResults []TransitSignature `json:"batch_results,omitempty"`
	} `json:"data"`
}

// IsBatch reports whether the response answers a batch request.
func (r *TransitSignResponse) IsBatch() bool { return r.Data.BatchResults != nil }

// TransitVerifyRequest verifies either Input against Signature or HMAC, or
// when Batch is set, every item of Batch.
type TransitVerifyRequest struct {
	Input               string              `json:"input"`
	Signature           string              `json:"signature,omitempty"`
	HMAC                string              `json:"hmac,omitempty"`
	Context             string              `json:"context,omitempty"`
	HashAlgorithm       string              `json:"hash_algorithm,omitempty"`
	Prehashed           bool                `json:"prehashed,omitempty"`
	SignatureAlgorithm  string              `json:"signature_algorithm,omitempty"`
	MarshalingAlgorithm string              `json:"marshaling_algorithm,omitempty"`
	Batch               []TransitBatchInput `json:"batch_input,omitempty"`
}

// IsBatch reports whether the request is a batch request.
func (r TransitVerifyRequest) IsBatch() bool { return r.Batch != nil }

// TransitVerification is one result of a batch verify response.
type TransitVerification struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// TransitVerifyResponse holds Valid for a single request or BatchResults
// for a batch request.
type TransitVerifyResponse struct {
	Data struct {
		Valid        bool                  `json:"valid"`
		BatchResults []TransitVerification `json:"batch_results,omitempty"`
	} `json:"data"`
}

// IsBatch reports whether the response answers a batch request.
func (r *TransitVerifyResponse) IsBatch() bool { return r.Data.BatchResults != nil }

// TransitClient talks to the transit secrets engine. Every method taking a
// key name rejects an empty name or one containing "/" with a
// *ValidationError before sending anything.
type TransitClient struct {
	mount
}

// Create creates the named key. opts may be nil.
func (t *TransitClient) Create(ctx context.Context, name string, opts *TransitCreateOptions) error {
	if err := validateKeyName(name); err != nil {
		return err
	}
	var body any
	if opts != nil {
		body = opts
	}
	_, err := t.write(ctx, []string{"keys", name}, body)
	return err
}

// Read returns the named key.
func (t *TransitClient) Read(ctx context.Context, name string) (*TransitReadResponse, error) {
	if err := validateKeyName(name); err != nil {
		return nil, err
	}
	resp, err := t.read(ctx, []string{"keys", name})
	if err != nil {
		return nil, err
	}
	var out TransitReadResponse
	if err := resp.decodeContract(api.ContractTransitRead, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the names of all keys.
func (t *TransitClient) List(ctx context.Context) (*KeyListResponse, error) {
	resp, err := t.list(ctx, []string{"keys"})
	if err != nil {
		return nil, err
	}
	var out KeyListResponse
	if err := resp.decodeContract(api.ContractTransitList, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete deletes the named key. The key must allow deletion.
func (t *TransitClient) Delete(ctx context.Context, name string) error {
	if err := validateKeyName(name); err != nil {
		return err
	}
	_, err := t.delete(ctx, []string{"keys", name}, nil)
	return err
}

// ForceDelete allows deletion of the named key and deletes it. A key that
// does not exist is not an error.
func (t *TransitClient) ForceDelete(ctx context.Context, name string) error {
	exists, err := t.KeyExists(ctx, name)
	if err != nil || !exists {
		return err
	}
	allowed := true
	if err := t.Update(ctx, name, TransitUpdateOptions{DeletionAllowed: &allowed}); err != nil {
		return errors.Wrapf(err, "allow deletion of %s", name)
	}
	return t.Delete(ctx, name)
}

// Update changes the configuration of the named key.
func (t *TransitClient) Update(ctx context.Context, name string, opts TransitUpdateOptions) error {
	if err := validateKeyName(name); err != nil {
		return err
	}
	_, err := t.write(ctx, []string{"keys", name, "config"}, opts)
	return err
}

// Rotate adds a new version to the named key.
func (t *TransitClient) Rotate(ctx context.Context, name string) error {
	if err := validateKeyName(name); err != nil {
		return err
	}
	_, err := t.write(ctx, []string{"keys", name, "rotate"}, nil)
	return err
}

// Export returns the key material of the named key. The key must be
// exportable.
func (t *TransitClient) Export(ctx context.Context, name string, opts TransitExportOptions) (*TransitExportResponse, error) {
	if err := validateKeyName(name); err != nil {
		return nil, err
	}
	path := []string{"export", string(opts.KeyType), name}
	if opts.Version != "" {
		path = append(path, opts.Version)
	}
	resp, err := t.read(ctx, path)
	if err != nil {
		return nil, err
	}
	var out TransitExportResponse
	if err := resp.decodeContract(api.ContractTransitExport, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// KeyExists reports whether the named key is in the key list. An engine
// without any key answers the list with 404, which counts as absent.
func (t *TransitClient) KeyExists(ctx context.Context, name string) (bool, error) {
	if err := validateKeyName(name); err != nil {
		return false, err
	}
	keys, err := t.List(ctx)
	if err != nil {
		if StatusCode(err) == 404 {
			return false, nil
		}
		return false, err
	}
	return slices.Contains(keys.Data.Keys, name), nil
}

// Encrypt encrypts with the named key.
func (t *TransitClient) Encrypt(ctx context.Context, name string, req TransitEncryptRequest) (*TransitEncryptResponse, error) {
	contract := api.ContractTransitEncryptSingle
	if req.IsBatch() {
		contract = api.ContractTransitEncryptBatch
	}
	var out TransitEncryptResponse
	if err := t.post(ctx, "encrypt", name, req, contract, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Decrypt decrypts with the named key. Batch results whose plaintext was
// empty are returned with Plaintext "".
func (t *TransitClient) Decrypt(ctx context.Context, name string, req TransitDecryptRequest) (*TransitDecryptResponse, error) {
	contract := api.ContractTransitDecryptSingle
	if req.IsBatch() {
		contract = api.ContractTransitDecryptBatch
	}
	var out TransitDecryptResponse
	if err := t.post(ctx, "decrypt", name, req, contract, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sign signs with the named key.
func (t *TransitClient) Sign(ctx context.Context, name string, req TransitSignRequest) (*TransitSignResponse, error) {
	contract := api.ContractTransitSignSingle
	if req.IsBatch() {
		contract = api.ContractTransitSignBatch
	}
	var out TransitSignResponse
	if err := t.post(ctx, "sign", name, req, contract, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify verifies a signature or HMAC with the named key.
func (t *TransitClient) Verify(ctx context.Context, name string, req TransitVerifyRequest) (*TransitVerifyResponse, error) {
	contract := api.ContractTransitVerifySingle
	if req.IsBatch() {
		contract = api.ContractTransitVerifyBatch
	}
	var out TransitVerifyResponse
	if err := t.post(ctx, "verify", name, req, contract, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EncryptText encrypts plaintext with default options and returns the
// ciphertext.
func (t *TransitClient) EncryptText(ctx context.Context, name, plaintext string) (string, error) {
	resp, err := t.Encrypt(ctx, name, TransitEncryptRequest{
		Plaintext: base64.StdEncoding.EncodeToString([]byte(plaintext)),
	})
	if err != nil {
		return "", err
	}
	return resp.Data.Ciphertext, nil
}

// DecryptText decrypts ciphertext with default options and returns the
// plaintext.
func (t *TransitClient) DecryptText(ctx context.Context, name, ciphertext string) (string, error) {
	resp, err := t.Decrypt(ctx, name, TransitDecryptRequest{Ciphertext: ciphertext})
	if err != nil {
		return "", err
	}
	plaintext, err := base64.StdEncoding.DecodeString(resp.Data.Plaintext)
	if err != nil {
		return "", errors.Wrap(err, "decode plaintext")
	}
	return string(plaintext), nil
}

func (t *TransitClient) post(ctx context.Context, op, name string, body any, contract string, out any) error {
	if err := validateKeyName(name); err != nil {
		return err
	}
	resp, err := t.write(ctx, []string{op, name}, body)
	if err != nil {
		return err
	}
	return resp.decodeContract(contract, out)
}

package client

import (
	"context"
	"encoding/json"

	"github.com/vaultkit/vault-client/pkg/api"
)

// TOTPCreateOptions is either TOTPGenerateOptions or TOTPImportOptions.
type TOTPCreateOptions interface {
	totpCreateOptions()
}

// TOTPGenerateOptions lets the server generate the shared secret.
type TOTPGenerateOptions struct {
	Issuer      string `json:"issuer"`
	AccountName string `json:"account_name"`
	Exported    *bool  `json:"exported,omitempty"`
	KeySize     int    `json:"key_size,omitempty"`
	Period      int    `json:"period,omitempty"`
	Algorithm   string `json:"algorithm,omitempty"`
	Digits      int    `json:"digits,omitempty"`
	Skew        *int   `json:"skew,omitempty"`
	QRSize      *int   `json:"qr_size,omitempty"`
}

func (TOTPGenerateOptions) totpCreateOptions() {}

// MarshalJSON adds generate=true.
func (o TOTPGenerateOptions) MarshalJSON() ([]byte, error) {
	type plain TOTPGenerateOptions
	return json.Marshal(struct {
		Generate bool `json:"generate"`
		plain
	}{true, plain(o)})
}

// TOTPImportOptions imports an existing key, usually from an otpauth URL.
type TOTPImportOptions struct {
	URL         string `json:"url,omitempty"`
	Key         string `json:"key,omitempty"`
	Issuer      string `json:"issuer,omitempty"`
	AccountName string `json:"account_name,omitempty"`
	Period      int    `json:"period,omitempty"`
	Algorithm   string `json:"algorithm,omitempty"`
	Digits      int    `json:"digits,omitempty"`
}

func (TOTPImportOptions) totpCreateOptions() {}

// MarshalJSON adds generate=false.
func (o TOTPImportOptions) MarshalJSON() ([]byte, error) {
	type plain TOTPImportOptions
	return json.Marshal(struct {
		Generate bool `json:"generate"`
		plain
	}{false, plain(o)})
}

// TOTPCreateResponse carries the generated key when it was exported. It is
// empty otherwise.
type TOTPCreateResponse struct {
	Data struct {
		Barcode string `json:"barcode"`
		URL     string `json:"url"`
	} `json:"data"`
}

// TOTPReadResponse describes a key.
type TOTPReadResponse struct {
	Data struct {
		AccountName string `json:"account_name"`
		Algorithm   string `json:"algorithm"`
		Digits      int    `json:"digits"`
		Issuer      string `json:"issuer"`
		Period      int    `json:"period"`
	} `json:"data"`
}

// TOTPGenerateCodeResponse holds the current code of a key.
type TOTPGenerateCodeResponse struct {
	Data struct {
		Code string `json:"code"`
	} `json:"data"`
}

// TOTPValidateCodeResponse reports whether a code was valid.
type TOTPValidateCodeResponse struct {
	Data struct {
		Valid bool `json:"valid"`
	} `json:"data"`
}

// TOTPClient talks to the TOTP secrets engine.
type TOTPClient struct {
	mount
}

// Create generates or imports the key name.
func (t *TOTPClient) Create(ctx context.Context, name string, opts TOTPCreateOptions) (*TOTPCreateResponse, error) {
	resp, err := t.write(ctx, []string{"keys", name}, opts)
	if err != nil {
		return nil, err
	}
	var out TOTPCreateResponse
	if resp.Empty() {
		return &out, nil
	}
	if err := resp.decodeContract(api.ContractTOTPCreate, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Read returns the configuration of the key name.
func (t *TOTPClient) Read(ctx context.Context, name string) (*TOTPReadResponse, error) {
	resp, err := t.read(ctx, []string{"keys", name})
	if err != nil {
		return nil, err
	}
	var out TOTPReadResponse
	if err := resp.decodeContract(api.ContractTOTPRead, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the names of all keys.
func (t *TOTPClient) List(ctx context.Context) (*KeyListResponse, error) {
	resp, err := t.list(ctx, []string{"keys"})
	if err != nil {
		return nil, err
	}
	var out KeyListResponse
	if err := resp.decodeContract(api.ContractTOTPList, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the key name.
func (t *TOTPClient) Delete(ctx context.Context, name string) error {
	_, err := t.delete(ctx, []string{"keys", name}, nil)
	return err
}

// GenerateCode returns the current code for a generated key.
func (t *TOTPClient) GenerateCode(ctx context.Context, name string) (*TOTPGenerateCodeResponse, error) {
	resp, err := t.read(ctx, []string{"code", name})
	if err != nil {
		return nil, err
	}
	var out TOTPGenerateCodeResponse
	if err := resp.decodeContract(api.ContractTOTPGenerateCode, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateCode checks code against the key name.
func (t *TOTPClient) ValidateCode(ctx context.Context, name, code string) (*TOTPValidateCodeResponse, error) {
	resp, err := t.write(ctx, []string{"code", name}, map[string]string{"code": code})
	if err != nil {
		return nil, err
	}
	var out TOTPValidateCodeResponse
	if err := resp.decodeContract(api.ContractTOTPValidateCode, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

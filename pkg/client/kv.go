package client

import (
	"context"

	"github.com/vaultkit/vault-client/pkg/api"
)

// KVReadResponse is a version 1 secret.
type KVReadResponse struct {
	Data map[string]any `json:"data"`
}

// KVClient talks to a version 1 key/value secrets engine.
type KVClient struct {
	mount
}

// Read returns the secret at path.
func (k *KVClient) Read(ctx context.Context, path string) (*KVReadResponse, error) {
	resp, err := k.read(ctx, []string{path})
	if err != nil {
		return nil, err
	}
	var out KVReadResponse
	if err := resp.decodeContract(api.ContractKVRead, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the key names below path. An empty path lists the mount root.
func (k *KVClient) List(ctx context.Context, path string) (*KeyListResponse, error) {
	resp, err := k.list(ctx, []string{path})
	if err != nil {
		return nil, err
	}
	var out KeyListResponse
	if err := resp.decodeContract(api.ContractKVList, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create creates or replaces the secret at path. Values are stored as given;
// nested objects are not flattened.
func (k *KVClient) Create(ctx context.Context, path string, data map[string]any) error {
	_, err := k.write(ctx, []string{path}, data)
	return err
}

// Delete removes the secret at path.
func (k *KVClient) Delete(ctx context.Context, path string) error {
	_, err := k.delete(ctx, []string{path}, nil)
	return err
}

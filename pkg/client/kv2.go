package client

import (
	"context"
	"strconv"
	"time"

	"github.com/vaultkit/vault-client/pkg/api"
)

// KV2VersionMetadata describes a single version of a secret.
type KV2VersionMetadata struct {
	CreatedTime  string `json:"created_time"`
	DeletionTime string `json:"deletion_time"`
	Destroyed    bool   `json:"destroyed"`
	Version      int    `json:"version,omitempty"`
}

// Created returns CreatedTime parsed, or the zero time.
func (m KV2VersionMetadata) Created() time.Time {
	return parseTimestamp(m.CreatedTime)
}

// Deleted returns DeletionTime parsed, or the zero time when the version
// has not been deleted.
func (m KV2VersionMetadata) Deleted() time.Time {
	return parseTimestamp(m.DeletionTime)
}

// KV2ReadData holds a secret version and its metadata. Data is nil for a
// deleted or destroyed version.
type KV2ReadData struct {
	Data     map[string]any      `json:"data"`
	Metadata *KV2VersionMetadata `json:"metadata,omitempty"`
}

// KV2ReadResponse is returned by KV2Client.Read.
type KV2ReadResponse struct {
	Data KV2ReadData `json:"data"`
}

// KV2CreateOptions are the write options of a secret version.
type KV2CreateOptions struct {
	// CAS makes the write succeed only if the current version matches.
	// 0 allows the write only when the key does not exist.
	CAS *int `json:"cas,omitempty"`
}

// KV2CreateBody is the payload of KV2Client.Create.
type KV2CreateBody struct {
	Data    map[string]any    `json:"data"`
	Options *KV2CreateOptions `json:"options,omitempty"`
}

// KV2CreateResponse is the metadata of the version that was written.
type KV2CreateResponse struct {
	Data KV2VersionMetadata `json:"data"`
}

// KV2Metadata is the metadata of a secret across all versions.
type KV2Metadata struct {
	CreatedTime    string                        `json:"created_time"`
	CurrentVersion int                           `json:"current_version"`
	MaxVersions    int                           `json:"max_versions"`
	OldestVersion  int                           `json:"oldest_version"`
	UpdatedTime    string                        `json:"updated_time"`
	Versions       map[string]KV2VersionMetadata `json:"versions"`
}

// KV2ReadMetadataResponse is returned by KV2Client.ReadMetadata.
type KV2ReadMetadataResponse struct {
	Data KV2Metadata `json:"data"`
}

type kv2Versions struct {
	Versions []int `json:"versions"`
}

// KV2Client talks to a version 2 key/value secrets engine.
type KV2Client struct {
	mount
}

// Read returns a version of the secret at path. Version 0 reads the latest.
func (k *KV2Client) Read(ctx context.Context, path string, version int) (*KV2ReadResponse, error) {
	var opts []RequestOption
	if version > 0 {
		opts = append(opts, WithQuery(map[string]string{"version": strconv.Itoa(version)}))
	}
	resp, err := k.read(ctx, []string{"data", path}, opts...)
	if err != nil {
		return nil, err
	}
	var out KV2ReadResponse
	if err := resp.decodeContract(api.ContractKV2Read, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the key names below path.
func (k *KV2Client) List(ctx context.Context, path string) (*KeyListResponse, error) {
	resp, err := k.list(ctx, []string{"metadata", path})
	if err != nil {
		return nil, err
	}
	var out KeyListResponse
	if err := resp.decodeContract(api.ContractKV2List, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create writes a new version of the secret at path.
func (k *KV2Client) Create(ctx context.Context, path string, body KV2CreateBody) (*KV2CreateResponse, error) {
	resp, err := k.write(ctx, []string{"data", path}, body)
	if err != nil {
		return nil, err
	}
	var out KV2CreateResponse
	if err := resp.decodeContract(api.ContractKV2Create, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteVersion soft deletes versions of the secret at path. Without
// versions the latest version is deleted.
func (k *KV2Client) DeleteVersion(ctx context.Context, path string, versions ...int) error {
	if len(versions) == 0 {
		_, err := k.delete(ctx, []string{"data", path}, nil)
		return err
	}
	_, err := k.write(ctx, []string{"delete", path}, kv2Versions{Versions: versions})
	return err
}

// UndeleteVersion restores soft deleted versions of the secret at path.
func (k *KV2Client) UndeleteVersion(ctx context.Context, path string, versions ...int) error {
	_, err := k.write(ctx, []string{"undelete", path}, kv2Versions{Versions: versions})
	return err
}

// DestroyVersion permanently removes versions of the secret at path.
func (k *KV2Client) DestroyVersion(ctx context.Context, path string, versions ...int) error {
	_, err := k.write(ctx, []string{"destroy", path}, kv2Versions{Versions: versions})
	return err
}

// ReadMetadata returns the metadata and version history of the secret at path.
func (k *KV2Client) ReadMetadata(ctx context.Context, path string) (*KV2ReadMetadataResponse, error) {
	resp, err := k.read(ctx, []string{"metadata", path})
	if err != nil {
		return nil, err
	}
	var out KV2ReadMetadataResponse
	if err := resp.decodeContract(api.ContractKV2ReadMetadata, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the metadata and every version of the secret at path.
func (k *KV2Client) Delete(ctx context.Context, path string) error {
	_, err := k.delete(ctx, []string{"metadata", path}, nil)
	return err
}

package api

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadContracts(t *testing.T) {
	c, err := LoadContracts()
	if err != nil {
		t.Fatalf("LoadContracts error: %v", err)
	}

	want := []string{
		ContractTokenAuth, ContractKVRead, ContractKVList, ContractKV2Read, ContractKV2Create,
		ContractKV2List, ContractKV2ReadMetadata, ContractTransitRead, ContractTransitList,
		ContractTransitExport, ContractTransitEncryptSingle, ContractTransitEncryptBatch,
		ContractTransitDecryptSingle, ContractTransitDecryptBatch, ContractTransitSignSingle,
		ContractTransitSignBatch, ContractTransitVerifySingle, ContractTransitVerifyBatch,
		ContractTOTPCreate, ContractTOTPRead, ContractTOTPList, ContractTOTPGenerateCode,
		ContractTOTPValidateCode, ContractHealth, ContractErrorBody,
	}
	names := make(map[string]bool)
	for _, n := range c.Names() {
		names[n] = true
	}
	for _, n := range want {
		if !names[n] {
			t.Errorf("contract %q missing from document", n)
		}
	}
}

func TestLoadContractsRejectsBrokenDocument(t *testing.T) {
	if _, err := loadContracts([]byte("openapi: [")); err == nil {
		t.Fatal("expected error for malformed document")
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		contract string
		body     string
		wantErr  bool
	}{
		{
			name:     "token auth response",
			contract: ContractTokenAuth,
			body:     `{"auth":{"client_token":"s.abc","accessor":"acc","policies":["default"],"metadata":null,"lease_duration":3600,"renewable":true}}`,
		},
		{
			name:     "token auth response missing client_token",
			contract: ContractTokenAuth,
			body:     `{"auth":{"accessor":"acc","policies":[],"lease_duration":3600,"renewable":true}}`,
			wantErr:  true,
		},
		{
			name:     "lease duration must be an integer",
			contract: ContractTokenAuth,
			body:     `{"auth":{"client_token":"s","accessor":"a","policies":[],"lease_duration":"1h","renewable":true}}`,
			wantErr:  true,
		},
		{
			name:     "key list",
			contract: ContractTransitList,
			body:     `{"data":{"keys":["a","b"]},"lease_duration":0,"lease_id":"","renewable":false}`,
		},
		{
			name:     "key list with non-string key",
			contract: ContractKVList,
			body:     `{"data":{"keys":[1]}}`,
			wantErr:  true,
		},
		{
			name:     "kv2 read without metadata",
			contract: ContractKV2Read,
			body:     `{"data":{"data":{"foo":"bar"}}}`,
		},
		{
			name:     "kv2 read with broken metadata",
			contract: ContractKV2Read,
			body:     `{"data":{"data":{},"metadata":{"version":"one"}}}`,
			wantErr:  true,
		},
		{
			name:     "decrypt single without plaintext",
			contract: ContractTransitDecryptSingle,
			body:     `{"data":{}}`,
		},
		{
			name:     "health",
			contract: ContractHealth,
			body:     `{"initialized":true,"sealed":false,"standby":false,"version":"1.17.2","server_time_utc":1700000000}`,
		},
		{
			name:     "not json",
			contract: ContractHealth,
			body:     `<html>`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.contract, []byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected contract error")
				}
				var ce *ContractError
				if !errors.As(err, &ce) {
					t.Fatalf("expected *ContractError, got %T", err)
				}
				if ce.Contract != tt.contract {
					t.Errorf("contract: got %q, want %q", ce.Contract, tt.contract)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckUnknownContract(t *testing.T) {
	err := Check("NoSuchResponse", []byte(`{}`))
	if !errors.Is(err, ErrUnknownContract) {
		t.Fatalf("expected ErrUnknownContract, got %v", err)
	}
}

func TestPathParam(t *testing.T) {
	got, err := PathParam("name", "unknown key")
	if err != nil {
		t.Fatalf("PathParam error: %v", err)
	}
	if got != "unknown%20key" {
		t.Errorf("got %q", got)
	}
}

func TestEncodeQuery(t *testing.T) {
	got, err := EncodeQuery(map[string]string{"version": "2", "list": "true"})
	if err != nil {
		t.Fatalf("EncodeQuery error: %v", err)
	}
	if got != "list=true&version=2" {
		t.Errorf("unexpected query %q", got)
	}

	got, err = EncodeQuery(map[string]string{"q": "a b&c"})
	if err != nil {
		t.Fatalf("EncodeQuery error: %v", err)
	}
	if !strings.HasPrefix(got, "q=") || strings.Contains(got, " ") || strings.Count(got, "&") != 0 {
		t.Errorf("value not escaped: %q", got)
	}

	got, err = EncodeQuery(nil)
	if err != nil || got != "" {
		t.Errorf("expected empty query, got %q, %v", got, err)
	}
}

// Package api holds the wire-level contract of the Vault HTTP API as used by
// pkg/client: the declared response schemas and the parameter styling rules
// for path and query values.
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/getkin/kin-openapi/openapi3"
)

// Contract names, one per component schema in contracts.yaml.
const (
	ContractTokenAuth            = "TokenAuthResponse"
	ContractKVRead               = "KVReadResponse"
	ContractKVList               = "KVListResponse"
	ContractKV2Read              = "KV2ReadResponse"
	ContractKV2Create            = "KV2CreateResponse"
	ContractKV2List              = "KV2ListResponse"
	ContractKV2ReadMetadata      = "KV2ReadMetadataResponse"
	ContractTransitRead          = "TransitReadResponse"
	ContractTransitList          = "TransitListResponse"
	ContractTransitExport        = "TransitExportResponse"
	ContractTransitEncryptSingle = "TransitEncryptResponseSingle"
	ContractTransitEncryptBatch  = "TransitEncryptResponseBatch"
	ContractTransitDecryptSingle = "TransitDecryptResponseSingle"
	ContractTransitDecryptBatch  = "TransitDecryptResponseBatch"
	ContractTransitSignSingle    = "TransitSignResponseSingle"
	ContractTransitSignBatch     = "TransitSignResponseBatch"
	ContractTransitVerifySingle  = "TransitVerifyResponseSingle"
	ContractTransitVerifyBatch   = "TransitVerifyResponseBatch"
	ContractTOTPCreate           = "TOTPCreateResponse"
	ContractTOTPRead             = "TOTPReadResponse"
	ContractTOTPList             = "TOTPListResponse"
	ContractTOTPGenerateCode     = "TOTPGenerateCodeResponse"
	ContractTOTPValidateCode     = "TOTPValidateCodeResponse"
	ContractHealth               = "HealthResponse"
	ContractErrorBody            = "ErrorBody"
)

//go:embed contracts.yaml
var contractsDocument []byte

// ErrUnknownContract is returned when a contract name has no schema.
var ErrUnknownContract = errors.New("unknown response contract")

// ContractError reports a response body that does not match its declared shape.
type ContractError struct {
	Contract string
	Err      error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("response does not match %s: %v", e.Contract, e.Err)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// Contracts is a loaded and validated set of response schemas.
// It is safe for concurrent use.
type Contracts struct {
	doc *openapi3.T
}

// LoadContracts parses and validates the embedded contract document.
func LoadContracts() (*Contracts, error) {
	return loadContracts(contractsDocument)
}

func loadContracts(data []byte) (*Contracts, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, errors.Wrap(err, "load response contracts")
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, errors.Wrap(err, "validate response contracts")
	}
	return &Contracts{doc: doc}, nil
}

// Names returns the contract names known to c.
func (c *Contracts) Names() []string {
	names := make([]string, 0, len(c.doc.Components.Schemas))
	for name := range c.doc.Components.Schemas {
		names = append(names, name)
	}
	return names
}

// CheckValue validates an already decoded JSON value against the named contract.
func (c *Contracts) CheckValue(name string, value any) error {
	ref, ok := c.doc.Components.Schemas[name]
	if !ok || ref.Value == nil {
		return errors.Wrapf(ErrUnknownContract, "%q", name)
	}
	if err := ref.Value.VisitJSON(value); err != nil {
		return &ContractError{Contract: name, Err: err}
	}
	return nil
}

// Check decodes body and validates it against the named contract.
func (c *Contracts) Check(name string, body []byte) error {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return &ContractError{Contract: name, Err: errors.Wrap(err, "decode body")}
	}
	return c.CheckValue(name, value)
}

var defaultContracts = sync.OnceValues(LoadContracts)

// Check validates body against the named contract of the embedded document.
func Check(name string, body []byte) error {
	contracts, err := defaultContracts()
	if err != nil {
		return err
	}
	return contracts.Check(name, body)
}

// Package openapi loads and indexes the portal's OpenAPI description,
// providing operation lookup by operationId and pre-flight request
// validation before a submission leaves the client.
package openapi

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed portal.yaml
var portalSpec []byte

// IndexedOperation holds a resolved OpenAPI operation with its context.
type IndexedOperation struct {
	OperationID  string
	Method       string
	PathTemplate string
	Parameters   []*openapi3.Parameter
	RequestBody  *openapi3.RequestBody
	Responses    *openapi3.Responses
}

// ValidationError describes a schema validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Index is an in-memory index of the portal's operations keyed by
// operationId.
type Index struct {
	operations map[string]IndexedOperation
}

// NewIndex loads and indexes the embedded portal description.
func NewIndex() (*Index, error) {
	return NewIndexFromData(portalSpec)
}

// NewIndexFromFile loads a portal description from disk, for deployments
// that override the bundled one.
func NewIndexFromFile(path string) (*Index, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("openapi: loading %s: %w", path, err)
	}
	return index(loader, doc)
}

// NewIndexFromData loads a portal description from raw bytes.
func NewIndexFromData(data []byte) (*Index, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: parsing spec: %w", err)
	}
	return index(loader, doc)
}

func index(loader *openapi3.Loader, doc *openapi3.T) (*Index, error) {
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("openapi: validating spec: %w", err)
	}

	idx := &Index{operations: make(map[string]IndexedOperation)}
	for path, pathItem := range doc.Paths.Map() {
		for method, op := range pathItem.Operations() {
			if op.OperationID == "" {
				continue
			}

			// Merge path-level and operation-level parameters.
			params := make([]*openapi3.Parameter, 0)
			for _, ref := range pathItem.Parameters {
				if ref.Value != nil {
					params = append(params, ref.Value)
				}
			}
			for _, ref := range op.Parameters {
				if ref.Value != nil {
					params = append(params, ref.Value)
				}
			}

			var reqBody *openapi3.RequestBody
			if op.RequestBody != nil && op.RequestBody.Value != nil {
				reqBody = op.RequestBody.Value
			}

			idx.operations[op.OperationID] = IndexedOperation{
				OperationID:  op.OperationID,
				Method:       method,
				PathTemplate: path,
				Parameters:   params,
				RequestBody:  reqBody,
				Responses:    op.Responses,
			}
		}
	}
	return idx, nil
}

// GetOperation returns the indexed operation for the given operation ID.
func (idx *Index) GetOperation(operationID string) (IndexedOperation, bool) {
	op, ok := idx.operations[operationID]
	return op, ok
}

// AllOperationIDs returns every indexed operation ID, sorted.
func (idx *Index) AllOperationIDs() []string {
	ids := make([]string, 0, len(idx.operations))
	for id := range idx.operations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PathFor renders the operation's path template with the given path
// parameter values.
func (idx *Index) PathFor(operationID string, params map[string]string) (string, error) {
	op, ok := idx.operations[operationID]
	if !ok {
		return "", fmt.Errorf("openapi: operation %s not found", operationID)
	}
	path := op.PathTemplate
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", value)
	}
	if strings.ContainsRune(path, '{') {
		return "", fmt.Errorf("openapi: unresolved path parameters in %s", path)
	}
	return path, nil
}

// ValidateRequest validates a request body against the operation's request
// schema. Returns an empty slice if valid, or a list of validation errors.
func (idx *Index) ValidateRequest(operationID string, body map[string]any) []ValidationError {
	op, ok := idx.operations[operationID]
	if !ok {
		return []ValidationError{{Message: fmt.Sprintf("operation %s not found", operationID)}}
	}

	if op.RequestBody == nil {
		return nil
	}

	ct := op.RequestBody.Content.Get("application/json")
	if ct == nil || ct.Schema == nil || ct.Schema.Value == nil {
		return nil
	}

	schema := ct.Schema.Value
	var errs []ValidationError

	for _, req := range schema.Required {
		if v, exists := body[req]; !exists || v == nil || v == "" {
			errs = append(errs, ValidationError{
				Field:   req,
				Message: fmt.Sprintf("%s is required", req),
			})
		}
	}

	return errs
}

package graphqlwsclient

import (
	"encoding/json"
	"fmt"

	"github.com/dolmen-go/jsonmap"
	"github.com/mitchellh/mapstructure"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/obmarg/graphql-ws-client/transport"
)

// Operation is the capability a caller supplies per subscription: a
// serializable request payload, and a way to decode a raw next/error
// payload into a typed result. The engine never inspects R; decode
// failures are delivered as items, not connection failures.
type Operation[R any] interface {
	// Payload returns the JSON value to place under subscribe.payload.
	Payload() (json.RawMessage, error)
	// Decode shapes a raw payload (already reshaped to {"errors": [...]}
	// for a server-side error event) into R.
	Decode(raw json.RawMessage) (R, error)
}

// request is the {query, variables, operationName} shape every
// subscribe.payload takes on the wire, shared by every Operation below.
type request struct {
	Query         string          `json:"query"`
	Variables     json.RawMessage `json:"variables,omitempty"`
	OperationName string          `json:"operationName,omitempty"`
}

func buildRequest(query string, variables map[string]interface{}, operationName string) (json.RawMessage, error) {
	req := request{Query: query, OperationName: operationName}
	if len(variables) > 0 {
		buf, err := json.Marshal(variables)
		if err != nil {
			return nil, transport.NewSerializingError(err.Error())
		}
		req.Variables = buf
	}
	buf, err := json.Marshal(req)
	if err != nil {
		return nil, transport.NewSerializingError(err.Error())
	}
	return buf, nil
}

// RawOperation is the simplest Operation: its payload is an unvalidated
// query string, and it decodes each response into a jsonmap.Ordered,
// preserving the server's field order instead of flattening into an
// unordered map[string]interface{}.
type RawOperation struct {
	Query         string
	Variables     map[string]interface{}
	OperationName string
}

func (o RawOperation) Payload() (json.RawMessage, error) {
	return buildRequest(o.Query, o.Variables, o.OperationName)
}

func (o RawOperation) Decode(raw json.RawMessage) (jsonmap.Ordered, error) {
	out := jsonmap.Ordered{
		Data:  make(map[string]interface{}),
		Order: make([]string, 0),
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return jsonmap.Ordered{}, transport.NewDecodeError(err.Error())
	}
	return out, nil
}

// ValidatedOperation wraps a query that has been parsed and validated
// against a schema (via gqlparser) at construction time, so a malformed
// query or an unknown field is caught locally instead of being discovered
// only once the server rejects the subscribe.
type ValidatedOperation struct {
	RawOperation
	doc *ast.QueryDocument
}

// NewValidatedOperation parses and validates query against schema. schema
// may be nil to skip validation and only check that the query parses.
func NewValidatedOperation(schema *ast.Schema, query string, variables map[string]interface{}, operationName string) (*ValidatedOperation, error) {
	if schema == nil {
		var empty ast.Schema
		schema = &empty
	}
	doc, gqlErrs := gqlparser.LoadQuery(schema, query)
	if gqlErrs != nil {
		return nil, transport.NewSerializingError(gqlErrs.Error())
	}
	return &ValidatedOperation{
		RawOperation: RawOperation{Query: query, Variables: variables, OperationName: operationName},
		doc:          doc,
	}, nil
}

// Document returns the parsed query AST, useful for callers that want to
// introspect the operation (e.g. pick the Subscription root field name)
// before sending it.
func (o *ValidatedOperation) Document() *ast.QueryDocument { return o.doc }

// StructOperation decodes each response directly into a caller-supplied
// struct type T using weakly-typed field binding, so numeric and string
// mismatches between the GraphQL response and the Go struct are coerced
// rather than rejected.
type StructOperation[T any] struct {
	RawOperation
}

func NewStructOperation[T any](query string, variables map[string]interface{}, operationName string) StructOperation[T] {
	return StructOperation[T]{RawOperation: RawOperation{Query: query, Variables: variables, OperationName: operationName}}
}

func (o StructOperation[T]) Decode(raw json.RawMessage) (T, error) {
	var generic map[string]interface{}
	var zero T
	if err := json.Unmarshal(raw, &generic); err != nil {
		return zero, transport.NewDecodeError(err.Error())
	}

	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
		TagName:          "json",
	})
	if err != nil {
		return zero, transport.NewDecodeError(fmt.Sprintf("building decoder: %s", err))
	}
	if err := dec.Decode(generic); err != nil {
		return zero, transport.NewDecodeError(err.Error())
	}
	return out, nil
}

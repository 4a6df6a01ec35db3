package upload

import (
	"encoding/json"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// Operation is a single GraphQL query or mutation
type Operation struct {
	Query         string
	OperationName string
	Variables     map[string]any
}

// Response is the decoded body of a GraphQL response
type Response struct {
	Data       json.RawMessage            `json:"data,omitempty"`
	Errors     gqlerror.List              `json:"errors,omitempty"`
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// UnmarshalData decodes the data member into v
func (r *Response) UnmarshalData(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Result is the single value delivered by Link.Go
type Result struct {
	Response *Response
	Err      error
}

// requestBody is the JSON shape of an operation on the wire
type requestBody struct {
	Query         string `json:"query"`
	Variables     any    `json:"variables"`
	OperationName string `json:"operationName,omitempty"`
}

func (o Operation) body(variables any) requestBody {
	name := o.OperationName
	if name == "" {
		name = operationName(o.Query)
	}
	return requestBody{
		Query:         o.Query,
		Variables:     variables,
		OperationName: name,
	}
}

func (o Operation) variables() map[string]any {
	if o.Variables == nil {
		return map[string]any{}
	}
	return o.Variables
}

// operationName returns the name of the first named operation in the
// document, or "" when there is none or the document does not parse
func operationName(query string) string {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return ""
	}
	for _, op := range doc.Operations {
		if op.Name != "" {
			return op.Name
		}
	}
	return ""
}

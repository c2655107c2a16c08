// Package ownership parses ownership form documents (forms 3, 4 and 5)
// into typed domain objects.
//
// Parsing runs in three steps: the XML is decoded into a generic Tree,
// the static Schema table is applied by Coerce, and the coerced tree is
// decoded into domain.OwnershipForm. A document either passes all three
// steps or yields a *domain.FormParseError; partial forms are never
// returned.
package ownership

import (
	"encoding/json"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

// RootElement is the document element of every ownership form.
const RootElement = "ownershipDocument"

// Parse converts ownership XML into a typed form.
func Parse(content string) (*domain.OwnershipForm, error) {
	tree, err := Normalise(content)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(tree)
	if err != nil {
		return nil, &domain.FormParseError{Reason: "encode tree", Err: err}
	}
	var form domain.OwnershipForm
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, &domain.FormParseError{Reason: "unexpected structure", Err: err}
	}
	return &form, nil
}

// Normalise decodes ownership XML and applies the Schema, returning the
// coerced tree of the document element.
func Normalise(content string) (Tree, error) {
	tree, err := decodeTree([]byte(content))
	if err != nil {
		return nil, &domain.FormParseError{Reason: "malformed xml", Err: err}
	}

	doc, ok := tree[RootElement].(Tree)
	if !ok {
		return nil, &domain.FormParseError{Reason: "missing " + RootElement}
	}

	coerced, err := Coerce(doc, Schema)
	if err != nil {
		return nil, &domain.FormParseError{Reason: "coerce", Err: err}
	}

	if _, ok := coerced["issuer"].(Tree); !ok {
		return nil, &domain.FormParseError{Reason: "missing issuer"}
	}
	if owners, ok := coerced["reportingOwner"].([]any); !ok || len(owners) == 0 {
		return nil, &domain.FormParseError{Reason: "missing reportingOwner"}
	}
	return coerced, nil
}

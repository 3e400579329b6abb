// Package validation checks WaveJSON documents in two stages: structure
// against a JSON Schema, then a lint pass that decodes every signal.
package validation

import (
	"encoding/json"

	"github.com/rendis/wavetikz/pkg/schema"
)

// DocumentValidator runs both validation stages.
type DocumentValidator struct {
	jsonSchema *JSONSchemaValidator
}

// NewDocumentValidator creates a DocumentValidator.
func NewDocumentValidator() (*DocumentValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &DocumentValidator{jsonSchema: jsv}, nil
}

// Validate checks a raw document. Structural errors short-circuit: the
// document is only decoded and linted when it matches the schema. The
// description is returned whenever it could be decoded.
func (v *DocumentValidator) Validate(data []byte) (*schema.Description, *schema.ValidationResult) {
	result := v.jsonSchema.ValidateJSON(data)
	if !result.Valid() {
		return nil, result
	}
	return v.decodeAndLint(data, result)
}

// ValidateValue is Validate for an already decoded JSON value.
func (v *DocumentValidator) ValidateValue(doc any) (*schema.Description, *schema.ValidationResult) {
	result := v.jsonSchema.ValidateDocument(doc)
	if !result.Valid() {
		return nil, result
	}
	data, err := json.Marshal(doc)
	if err != nil {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return nil, result
	}
	return v.decodeAndLint(data, result)
}

// ValidateDescription lints a Description built in code and checks that it
// serialises to a schema-valid document.
func (v *DocumentValidator) ValidateDescription(desc *schema.Description) *schema.ValidationResult {
	if desc == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "description is nil")
		return r
	}
	result := v.jsonSchema.ValidateDocument(desc)
	if !result.Valid() {
		return result
	}
	result.Merge(Lint(desc))
	return result
}

func (v *DocumentValidator) decodeAndLint(data []byte, result *schema.ValidationResult) (*schema.Description, *schema.ValidationResult) {
	var desc schema.Description
	if err := json.Unmarshal(data, &desc); err != nil {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return nil, result
	}
	result.Merge(Lint(&desc))
	return &desc, result
}

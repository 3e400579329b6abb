package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/wavetikz/pkg/schema"
)

const waveSchemaURL = "https://wavetikz.dev/schemas/wavejson.json"

// waveSchemaJSON is the JSON Schema of a WaveJSON description document.
const waveSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://wavetikz.dev/schemas/wavejson.json",
  "type": "object",
  "required": ["signal"],
  "properties": {
    "signal": {
      "type": "array",
      "items": { "$ref": "#/$defs/entry" }
    },
    "config": {
      "type": "object",
      "properties": {
        "hscale": { "type": "number", "exclusiveMinimum": 0 }
      }
    },
    "edge": {
      "type": "array",
      "items": { "type": "string" }
    },
    "head": { "type": "object" },
    "foot": { "type": "object" }
  },
  "$defs": {
    "entry": {
      "anyOf": [
        { "$ref": "#/$defs/spacer" },
        { "$ref": "#/$defs/signal" },
        { "$ref": "#/$defs/group" }
      ]
    },
    "spacer": {
      "type": "object",
      "maxProperties": 0
    },
    "signal": {
      "type": "object",
      "required": ["wave"],
      "properties": {
        "name": { "type": "string" },
        "wave": { "type": "string" },
        "data": {
          "anyOf": [
            { "type": "string" },
            { "type": "array", "items": { "type": ["string", "number", "null"] } }
          ]
        },
        "period": { "type": "integer", "minimum": 1, "maximum": 65536 },
        "phase": { "type": "number", "minimum": 0 },
        "node": { "type": "string" }
      },
      "additionalProperties": false
    },
    "group": {
      "type": "array",
      "prefixItems": [
        { "anyOf": [ { "type": "string" }, { "$ref": "#/$defs/entry" } ] }
      ],
      "items": { "$ref": "#/$defs/entry" }
    }
  }
}`

// JSONSchemaValidator checks the structure of WaveJSON documents.
// It is safe for concurrent use.
type JSONSchemaValidator struct {
	waveSchema *jsonschema.Schema
}

// NewJSONSchemaValidator compiles the WaveJSON schema.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(waveSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal wavejson schema: %w", err)
	}
	if err := c.AddResource(waveSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add wavejson schema resource: %w", err)
	}
	compiled, err := c.Compile(waveSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile wavejson schema: %w", err)
	}
	return &JSONSchemaValidator{waveSchema: compiled}, nil
}

// ValidateJSON validates a raw document.
func (v *JSONSchemaValidator) ValidateJSON(data []byte) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		result.AddError("/", schema.ErrCodeValidation, fmt.Sprintf("invalid JSON: %s", err))
		return result
	}
	v.validate(doc, result)
	return result
}

// ValidateDocument validates an already decoded document, such as the
// output of a jq selection or a Description value.
func (v *JSONSchemaValidator) ValidateDocument(doc any) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	value, err := toJSONValue(doc)
	if err != nil {
		result.AddError("/", schema.ErrCodeValidation, fmt.Sprintf("document is not JSON: %s", err))
		return result
	}
	v.validate(value, result)
	return result
}

func (v *JSONSchemaValidator) validate(doc any, result *schema.ValidationResult) {
	err := v.waveSchema.Validate(doc)
	if err == nil {
		return
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return
	}
	for _, viol := range collectViolations(verr) {
		result.AddError(viol.path, schema.ErrCodeValidation, viol.message)
	}
}

// toJSONValue round-trips a Go value through JSON so numbers become
// json.Number, which the jsonschema library requires.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}

type violation struct {
	path    string
	message string
}

// collectViolations walks a ValidationError tree and returns its leaves.
func collectViolations(verr *jsonschema.ValidationError) []violation {
	if len(verr.Causes) == 0 {
		path := "/"
		if len(verr.InstanceLocation) > 0 {
			path = strings.Join(verr.InstanceLocation, "/")
		}
		return []violation{{path: path, message: leafMessage(verr)}}
	}

	var out []violation
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}

// leafMessage keeps the last line of a leaf error and drops its
// "- at '<location>': " prefix; the location is reported as the issue path.
func leafMessage(verr *jsonschema.ValidationError) string {
	lines := strings.Split(strings.TrimSpace(verr.Error()), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if strings.HasPrefix(last, "- at '") {
		if i := strings.Index(last, "': "); i >= 0 {
			return last[i+3:]
		}
	}
	return last
}

package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

func Compile(schema string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// ValidateJSON validates a raw JSON document.
func (s *Schema) ValidateJSON(document []byte) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewBytesLoader(document))
}

// Validate validates any value that marshals to JSON.
func (s *Schema) Validate(document interface{}) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewGoLoader(document))
}

func (s *Schema) validate(loader gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := s.schema.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out, nil
}

// Summary joins the errors into one line suitable for an error detail.
func (r *ValidationResult) Summary() string {
	if r == nil || len(r.Errors) == 0 {
		return ""
	}
	msg := ""
	for i, e := range r.Errors {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return msg
}

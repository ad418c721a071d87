// Package jsonschema derives tool parameter schemas from Go argument structs
// using reflection.
//
// The schema is the flat object subset every backend accepts
// ([ai.ParameterSchema]): one property per exported field, typed from the
// field's kind. Field names come from the json tag. A field is required
// unless it is a pointer or tagged omitempty, or when its jsonschema tag says
// "required".
//
// The jsonschema tag takes comma-separated entries:
//
//	Style string `json:"style,omitempty" jsonschema:"description=Hook style,enum=suspense,enum=story"`
//
// Descriptions therefore cannot contain commas.
package jsonschema

package jsonschema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/leofalp/owlseer/providers/ai"
)

// Generate builds the parameter schema for the struct type T (or *T).
func Generate[T any]() (ai.ParameterSchema, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return ai.ParameterSchema{}, fmt.Errorf("jsonschema: %v is not a struct", t)
	}

	schema := ai.ParameterSchema{Type: "object", Properties: map[string]ai.PropertySchema{}}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}

		fieldType := field.Type
		isPointer := fieldType.Kind() == reflect.Ptr
		if isPointer {
			fieldType = fieldType.Elem()
		}
		property, err := primitiveSchema(fieldType)
		if err != nil {
			return ai.ParameterSchema{}, fmt.Errorf("jsonschema: field %s: %w", field.Name, err)
		}

		requiredByTag, err := parseJSONSchemaTag(fieldType, field.Tag, &property)
		if err != nil {
			return ai.ParameterSchema{}, fmt.Errorf("jsonschema: field %s: %w", field.Name, err)
		}

		schema.Properties[name] = property
		if (!isPointer && !omitEmpty) || requiredByTag {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema, nil
}

// MustGenerate is like Generate but panics on an unsupported type. Tool
// argument types are fixed at compile time, so failure is a programming error.
func MustGenerate[T any]() ai.ParameterSchema {
	schema, err := Generate[T]()
	if err != nil {
		panic(err)
	}
	return schema
}

func jsonName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = field.Name
	if tag == "" {
		return name, false, false
	}
	if commaIdx := strings.Index(tag, ","); commaIdx != -1 {
		if commaIdx > 0 {
			name = tag[:commaIdx]
		}
		omitEmpty = strings.Contains(tag[commaIdx:], "omitempty")
	} else {
		name = tag
	}
	return name, omitEmpty, false
}

func primitiveSchema(t reflect.Type) (ai.PropertySchema, error) {
	switch t.Kind() {
	case reflect.String:
		return ai.PropertySchema{Type: "string"}, nil
	case reflect.Bool:
		return ai.PropertySchema{Type: "boolean"}, nil
	case reflect.Float32, reflect.Float64:
		return ai.PropertySchema{Type: "number"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ai.PropertySchema{Type: "integer"}, nil
	default:
		return ai.PropertySchema{}, fmt.Errorf("unsupported kind %v, only flat primitive fields are allowed", t.Kind())
	}
}

// parseJSONSchemaTag applies description and enum entries to property and
// reports whether the field is marked required. Enum values are checked
// against the field kind but kept as strings.
func parseJSONSchemaTag(fieldType reflect.Type, tag reflect.StructTag, property *ai.PropertySchema) (bool, error) {
	jsonSchemaTag := tag.Get("jsonschema")
	if jsonSchemaTag == "" {
		return false, nil
	}

	required := false
	for _, item := range strings.Split(jsonSchemaTag, ",") {
		key, value, hasValue := strings.Cut(item, "=")
		if !hasValue {
			if key == "required" {
				required = true
			}
			continue
		}
		switch key {
		case "description":
			property.Description = value
		case "enum":
			if err := checkEnumValue(fieldType, value); err != nil {
				return false, err
			}
			property.Enum = append(property.Enum, value)
		}
	}
	return required, nil
}

func checkEnumValue(fieldType reflect.Type, value string) error {
	var err error
	switch fieldType.Kind() {
	case reflect.String:
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		_, err = strconv.ParseInt(value, 10, 64)
	case reflect.Float32, reflect.Float64:
		_, err = strconv.ParseFloat(value, 64)
	case reflect.Bool:
		_, err = strconv.ParseBool(value)
	default:
		return fmt.Errorf("enum tag unsupported for field type %v", fieldType)
	}
	if err != nil {
		return fmt.Errorf("enum value %q does not match %v: %w", value, fieldType, err)
	}
	return nil
}

package core

// FieldType represents the data type of a field
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeDate    FieldType = "date"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeObject  FieldType = "object"
)

// JSONSchema returns the nullable JSON Schema for the type
func (t FieldType) JSONSchema() map[string]interface{} {
	switch t {
	case FieldTypeDate:
		return map[string]interface{}{
			"type":   []string{"null", "string"},
			"format": "date-time",
		}
	case FieldTypeObject:
		return map[string]interface{}{
			"type":                 []string{"null", "object"},
			"additionalProperties": true,
		}
	case FieldTypeInteger, FieldTypeNumber, FieldTypeBoolean:
		return map[string]interface{}{
			"type": []string{"null", string(t)},
		}
	default:
		return map[string]interface{}{
			"type": []string{"null", "string"},
		}
	}
}

// Field represents a field in the schema
type Field struct {
	Name        string
	Type        FieldType
	Description string
}

// Schema represents a stream's output schema. Field order is publication order.
type Schema struct {
	Name   string
	Fields []Field
}

// Field looks up a field by name
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasField reports whether the schema declares name
func (s *Schema) HasField(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// FieldNames returns the field names in order
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// JSONSchema renders the schema as a JSON Schema object
func (s *Schema) JSONSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(s.Fields))
	for _, f := range s.Fields {
		prop := f.Type.JSONSchema()
		if f.Description != "" {
			prop["description"] = f.Description
		}
		properties[f.Name] = prop
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
}

package llm

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/generative-ai-go/genai"
)

// jsonSchema is the subset of JSON Schema that Gemini response schemas can express.
type jsonSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Enum        []string               `json:"enum"`
	Properties  map[string]*jsonSchema `json:"properties"`
	Required    []string               `json:"required"`
	Items       *jsonSchema            `json:"items"`
}

// ConvertSchema translates a JSON Schema document into a Gemini response schema.
// Keywords Gemini cannot express (minimum, $schema, title) are dropped; the full
// schema is still enforced locally after generation.
func ConvertSchema(schemaJSON string) (*genai.Schema, error) {
	var root jsonSchema
	if err := json.Unmarshal([]byte(schemaJSON), &root); err != nil {
		return nil, fmt.Errorf("failed to parse JSON schema: %w", err)
	}
	return convert(&root, "(root)")
}

func convert(s *jsonSchema, path string) (*genai.Schema, error) {
	out := &genai.Schema{
		Description: s.Description,
		Enum:        s.Enum,
	}

	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
		out.Required = s.Required
		if len(s.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		}
		names := make([]string, 0, len(s.Properties))
		for name := range s.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			prop, err := convert(s.Properties[name], path+"."+name)
			if err != nil {
				return nil, err
			}
			out.Properties[name] = prop
		}
	case "array":
		out.Type = genai.TypeArray
		if s.Items == nil {
			return nil, fmt.Errorf("array at %s has no items schema", path)
		}
		items, err := convert(s.Items, path+"[]")
		if err != nil {
			return nil, err
		}
		out.Items = items
	case "string":
		out.Type = genai.TypeString
		if len(s.Enum) > 0 {
			out.Format = "enum"
		}
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		return nil, fmt.Errorf("unsupported schema type %q at %s", s.Type, path)
	}

	return out, nil
}

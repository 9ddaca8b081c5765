package adapter

import (
	"encoding/json"
	"strings"

	"google.golang.org/genai"

	"github.com/m2tx/gemini_adapter/internal/chat"
)

// TransformTools converts tool declarations to native tools, one function
// declaration per tool.
func TransformTools(tools []chat.Tool) []*genai.Tool {
	result := make([]*genai.Tool, 0, len(tools))
	for _, tool := range tools {
		result = append(result, TransformTool(tool))
	}
	return result
}

// TransformTool converts one tool declaration. The declaration's parameters
// are upper-cased in place and never validated: parameters that do not fit
// genai.Schema, such as numeric enums or type unions, are forwarded as a raw
// JSON schema.
func TransformTool(tool chat.Tool) *genai.Tool {
	fn := tool.Function

	decl := &genai.FunctionDeclaration{
		Name:        fn.Name,
		Description: fn.Description,
	}

	if fn.Parameters != nil {
		UppercaseTypes(fn.Parameters)

		if schema, err := toSchema(fn.Parameters); err == nil {
			decl.Parameters = schema
		} else {
			decl.ParametersJsonSchema = fn.Parameters
		}
	}

	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{decl},
	}
}

// UppercaseTypes upper-cases every "type" string of schema, its properties
// and array items, at any depth. Levels without those keys are skipped.
func UppercaseTypes(schema map[string]any) {
	if t, ok := schema["type"].(string); ok {
		schema["type"] = strings.ToUpper(t)
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		for _, prop := range props {
			if p, ok := prop.(map[string]any); ok {
				UppercaseTypes(p)
			}
		}
	}

	if items, ok := schema["items"].(map[string]any); ok {
		UppercaseTypes(items)
	}
}

func toSchema(params map[string]any) (*genai.Schema, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	var schema genai.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

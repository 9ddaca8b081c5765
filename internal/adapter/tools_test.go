package adapter

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/m2tx/gemini_adapter/internal/chat"
)

func weatherParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"location": map[string]any{
				"type":        "string",
				"description": "City name",
			},
			"units": map[string]any{
				"description": "no type here",
			},
			"window": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"days": map[string]any{"type": "integer"},
				},
			},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []any{"location"},
	}
}

func TestUppercaseTypes(t *testing.T) {
	params := weatherParameters()
	UppercaseTypes(params)

	props := params["properties"].(map[string]any)
	require.Equal(t, "OBJECT", params["type"])
	require.Equal(t, "STRING", props["location"].(map[string]any)["type"])
	require.NotContains(t, props["units"].(map[string]any), "type")

	window := props["window"].(map[string]any)
	require.Equal(t, "OBJECT", window["type"])
	require.Equal(t, "INTEGER", window["properties"].(map[string]any)["days"].(map[string]any)["type"])

	tags := props["tags"].(map[string]any)
	require.Equal(t, "ARRAY", tags["type"])
	require.Equal(t, "STRING", tags["items"].(map[string]any)["type"])
}

func TestUppercaseTypesIsIdempotent(t *testing.T) {
	once := weatherParameters()
	UppercaseTypes(once)

	twice := weatherParameters()
	UppercaseTypes(twice)
	UppercaseTypes(twice)

	require.Equal(t, once, twice)
}

func TestTransformTools(t *testing.T) {
	tools := TransformTools([]chat.Tool{
		{Function: chat.Function{Name: "get_weather", Description: "Weather", Parameters: weatherParameters()}},
		{Function: chat.Function{Name: "ping"}},
	})
	require.Len(t, tools, 2)

	require.Len(t, tools[0].FunctionDeclarations, 1)
	decl := tools[0].FunctionDeclarations[0]
	require.Equal(t, "get_weather", decl.Name)
	require.Equal(t, "Weather", decl.Description)
	require.NotNil(t, decl.Parameters)
	require.Equal(t, genai.TypeObject, decl.Parameters.Type)
	require.Equal(t, genai.TypeString, decl.Parameters.Properties["location"].Type)
	require.Equal(t, genai.TypeInteger, decl.Parameters.Properties["window"].Properties["days"].Type)
	require.Equal(t, genai.TypeString, decl.Parameters.Properties["tags"].Items.Type)
	require.Equal(t, []string{"location"}, decl.Parameters.Required)

	require.Equal(t, "ping", tools[1].FunctionDeclarations[0].Name)
	require.Nil(t, tools[1].FunctionDeclarations[0].Parameters)
	require.Nil(t, tools[1].FunctionDeclarations[0].ParametersJsonSchema)
}

func TestTransformToolsEmpty(t *testing.T) {
	require.Empty(t, TransformTools(nil))
}

func TestTransformToolKeepsSchemasOutsideNativeShape(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{
			name: "numeric enum",
			params: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"n": map[string]any{"type": "integer", "enum": []any{1, 2}},
				},
			},
		},
		{
			name: "type union",
			params: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"s": map[string]any{"type": []any{"string", "null"}},
				},
			},
		},
		{
			name:   "properties not an object",
			params: map[string]any{"type": "object", "properties": "not an object"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := TransformTool(chat.Tool{Function: chat.Function{Name: "f", Parameters: tt.params}})

			require.Len(t, tool.FunctionDeclarations, 1)
			decl := tool.FunctionDeclarations[0]
			require.Equal(t, "f", decl.Name)
			require.Nil(t, decl.Parameters)
			require.Equal(t, tt.params, decl.ParametersJsonSchema)
			require.Equal(t, "OBJECT", tt.params["type"])
		})
	}
}

func TestTransformToolsAcceptsUnionTypedSchema(t *testing.T) {
	tools := TransformTools([]chat.Tool{
		{Function: chat.Function{Name: "get_weather", Parameters: weatherParameters()}},
		{Function: chat.Function{Name: "nullable", Parameters: map[string]any{
			"properties": map[string]any{"s": map[string]any{"type": []any{"string", "null"}}},
		}}},
	})
	require.Len(t, tools, 2)
	require.NotNil(t, tools[0].FunctionDeclarations[0].Parameters)
	require.NotNil(t, tools[1].FunctionDeclarations[0].ParametersJsonSchema)
}

package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"

	"github.com/m2tx/gemini_adapter/internal/chat"
)

// SystemMessagePrefix marks system messages folded into user turns, since
// the chat protocol has no system role inside the history.
const SystemMessagePrefix = "THE FOLLOWING MESSAGE IS A SYSTEM MESSAGE: "

// Native content roles.
const (
	RoleUser     = "user"
	RoleModel    = "model"
	RoleFunction = "function"
)

// TransformMessages converts a conversation history to native contents.
// Messages with an unrecognized role are dropped; order is preserved.
func TransformMessages(messages []chat.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for i, msg := range messages {
		content, err := TransformMessage(msg)
		if errors.Is(err, ErrUnsupportedMessageRole) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		contents = append(contents, content)
	}
	return contents, nil
}

// TransformMessage converts a single message to a native content.
func TransformMessage(msg chat.Message) (*genai.Content, error) {
	switch msg.Role {
	case chat.RoleUser:
		return textContent(RoleUser, msg.Content), nil

	case chat.RoleAssistant:
		if msg.FunctionCall != nil {
			var args map[string]any
			if err := json.Unmarshal([]byte(msg.FunctionCall.Arguments), &args); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrMalformedFunctionCallArguments, msg.FunctionCall.Name, err)
			}
			return &genai.Content{
				Role: RoleModel,
				Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{Name: msg.FunctionCall.Name, Args: args},
				}},
			}, nil
		}
		return textContent(RoleModel, strings.Replace(msg.Content, `\n`, "\n", 1)), nil

	case chat.RoleFunction:
		return &genai.Content{
			Role: RoleFunction,
			Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{
					Name: msg.Name,
					Response: map[string]any{
						"name":    msg.Name,
						"content": parseJSONOrRaw(msg.Content),
					},
				},
			}},
		}, nil

	case chat.RoleSystem:
		return textContent(RoleUser, SystemMessagePrefix+msg.Content), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMessageRole, msg.Role)
	}
}

// IsBaselineModel reports whether model is the first-generation variant that
// has no system instruction field.
func IsBaselineModel(model string) bool {
	return strings.TrimPrefix(model, "models/") == BaselineModel
}

// placeSystemInstruction applies the system instruction for model, either as
// a trailing user turn of history or as the config's system instruction.
func placeSystemInstruction(model, instruction string, history []*genai.Content, config *genai.GenerateContentConfig) []*genai.Content {
	if instruction == "" {
		return history
	}
	if IsBaselineModel(model) {
		return append(history, textContent(RoleUser, instruction))
	}
	config.SystemInstruction = textContent(RoleUser, instruction)
	return history
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{Role: role, Parts: []*genai.Part{{Text: text}}}
}

// parseJSONOrRaw decodes s as JSON, falling back to the raw text.
func parseJSONOrRaw(s string) any {
	if !gjson.Valid(s) {
		return s
	}
	return gjson.Parse(s).Value()
}

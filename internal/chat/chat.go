// Package chat holds the OpenAI-style chat-completion shapes exchanged with
// the hosting runtime: the forwarded request payload on the way in and the
// streamed completion chunks on the way out.
package chat

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
	RoleSystem    Role = "system"
)

// ErrInvalidRequest wraps every validation failure of a Request.
var ErrInvalidRequest = errors.New("invalid request")

var validate = validator.New(validator.WithRequiredStructEnabled())

// FunctionCall is a function invocation recorded on an assistant message.
// Arguments is JSON text.
type FunctionCall struct {
	Name      string `json:"name" validate:"required"`
	Arguments string `json:"arguments"`
}

// Message is one entry of the conversation history.
type Message struct {
	Role         Role          `json:"role" validate:"required"`
	Content      string        `json:"content"`
	Name         string        `json:"name,omitempty" validate:"required_if=Role function"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// Function describes a callable tool. Parameters is a JSON Schema object.
type Function struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Tool is an OpenAI-style tool declaration.
type Tool struct {
	Type     string   `json:"type,omitempty"`
	Function Function `json:"function"`
}

// Request is the payload forwarded by the hosting runtime.
//
// The first message is always treated as the system message, whatever its
// declared role.
type Request struct {
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
	Tools    []Tool    `json:"tools,omitempty" validate:"dive"`
	ThreadID string    `json:"threadId,omitempty"`
	RunID    string    `json:"runId,omitempty"`
}

// Validate checks the structural invariants of the request.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

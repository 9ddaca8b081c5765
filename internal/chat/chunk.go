package chat

// ToolCallFunction is the function half of a streamed tool call.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is one tool invocation announced in a chunk delta.
type ToolCall struct {
	Index    int              `json:"index"`
	ID       string           `json:"id"`
	Function ToolCallFunction `json:"function"`
}

// Delta is the incremental part of a streamed choice.
type Delta struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Choice wraps a single delta.
type Choice struct {
	Delta Delta `json:"delta"`
}

// CompletionChunk is one record of the outbound chat-completion stream.
type CompletionChunk struct {
	Choices []Choice `json:"choices"`
}

// TextChunk builds the chunk emitted for an incremental text fragment.
func TextChunk(text string) CompletionChunk {
	return CompletionChunk{
		Choices: []Choice{{Delta: Delta{Role: RoleAssistant, Content: text}}},
	}
}

// ToolCallsChunk builds the chunk announcing the tool calls of a turn.
func ToolCallsChunk(calls []ToolCall) CompletionChunk {
	return CompletionChunk{
		Choices: []Choice{{Delta: Delta{Role: RoleAssistant, ToolCalls: calls}}},
	}
}

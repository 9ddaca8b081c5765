package adapter

import (
	"context"
	"iter"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/m2tx/gemini_adapter/internal/chat"
	"github.com/m2tx/gemini_adapter/internal/sse"
)

// ChatSession is the part of *genai.Chat the adapter drives.
type ChatSession interface {
	SendMessageStream(ctx context.Context, parts ...genai.Part) iter.Seq2[*genai.GenerateContentResponse, error]
}

// streamResponse sends current on session and re-emits the reply on w: one
// chunk per text fragment, then at most one chunk carrying every function
// call, then the done marker. It returns the model's reply turn.
//
// An upstream failure is returned as *UpstreamStreamError and nothing more is
// written. Any other error means the consumer went away: either w failed or
// ctx was cancelled.
func streamResponse(ctx context.Context, session ChatSession, current *genai.Content, w *sse.Writer) (*genai.Content, error) {
	parts := make([]genai.Part, 0, len(current.Parts))
	for _, p := range current.Parts {
		if p != nil {
			parts = append(parts, *p)
		}
	}

	var (
		text  strings.Builder
		calls []*genai.FunctionCall
	)

	for resp, err := range session.SendMessageStream(ctx, parts...) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &UpstreamStreamError{Err: err}
		}

		fragment, fnCalls := splitResponse(resp)
		calls = append(calls, fnCalls...)
		if fragment == "" {
			continue
		}

		text.WriteString(fragment)
		if err := w.WriteChunk(chat.TextChunk(fragment)); err != nil {
			return nil, err
		}
	}

	if len(calls) > 0 {
		toolCalls, err := toToolCalls(calls)
		if err != nil {
			return nil, err
		}
		if err := w.WriteChunk(chat.ToolCallsChunk(toolCalls)); err != nil {
			return nil, err
		}
	}

	if err := w.WriteDone(); err != nil {
		return nil, err
	}

	return replyContent(text.String(), calls), nil
}

// splitResponse extracts the text fragment and the function calls of one
// streamed response. Thought parts are not part of the answer.
func splitResponse(resp *genai.GenerateContentResponse) (string, []*genai.FunctionCall) {
	if resp == nil {
		return "", nil
	}

	var (
		text  strings.Builder
		calls []*genai.FunctionCall
	)
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			switch {
			case part == nil || part.Thought:
			case part.FunctionCall != nil:
				calls = append(calls, part.FunctionCall)
			default:
				text.WriteString(part.Text)
			}
		}
	}

	return text.String(), calls
}

func toToolCalls(calls []*genai.FunctionCall) ([]chat.ToolCall, error) {
	result := make([]chat.ToolCall, 0, len(calls))
	for i, call := range calls {
		arguments := "{}"
		if call.Args != nil {
			raw, err := sse.Marshal(replaceEscapedNewlines(call.Args))
			if err != nil {
				return nil, err
			}
			arguments = string(raw)
		}

		result = append(result, chat.ToolCall{
			Index: i,
			ID:    strconv.Itoa(i),
			Function: chat.ToolCallFunction{
				Name:      call.Name,
				Arguments: arguments,
			},
		})
	}
	return result, nil
}

// replaceEscapedNewlines returns a copy of v where every literal `\n` inside
// a string, at any depth, is replaced by a newline.
func replaceEscapedNewlines(v any) any {
	switch val := v.(type) {
	case string:
		return strings.ReplaceAll(val, `\n`, "\n")
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = replaceEscapedNewlines(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = replaceEscapedNewlines(item)
		}
		return out
	default:
		return v
	}
}

func replyContent(text string, calls []*genai.FunctionCall) *genai.Content {
	reply := &genai.Content{Role: RoleModel}
	if text != "" {
		reply.Parts = append(reply.Parts, &genai.Part{Text: text})
	}
	for _, call := range calls {
		reply.Parts = append(reply.Parts, &genai.Part{FunctionCall: call})
	}
	return reply
}

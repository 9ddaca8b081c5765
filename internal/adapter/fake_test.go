package adapter

import (
	"context"
	"io"
	"iter"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeChats struct {
	session *fakeSession
	err     error

	calls   int
	model   string
	config  *genai.GenerateContentConfig
	history []*genai.Content
}

func (f *fakeChats) Create(_ context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (ChatSession, error) {
	f.calls++
	f.model = model
	f.config = config
	f.history = history
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeSession struct {
	responses []*genai.GenerateContentResponse
	err       error

	parts []genai.Part
}

func (s *fakeSession) SendMessageStream(_ context.Context, parts ...genai.Part) iter.Seq2[*genai.GenerateContentResponse, error] {
	s.parts = parts
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, resp := range s.responses {
			if !yield(resp, nil) {
				return
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: RoleModel, Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func callResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: RoleModel, Parts: []*genai.Part{{
				FunctionCall: &genai.FunctionCall{Name: name, Args: args},
			}}},
		}},
	}
}

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestAdapter(t *testing.T, model string, chats *fakeChats, opts ...func(*Options)) *Adapter {
	t.Helper()
	o := Options{Model: model, Chats: chats, Logger: quietLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	a, err := New(context.Background(), o)
	require.NoError(t, err)
	return a
}

// records splits an SSE body into the payloads of its data records.
func records(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	for _, rec := range strings.Split(body, "\n\n") {
		if rec == "" {
			continue
		}
		require.True(t, strings.HasPrefix(rec, "data: "), "unexpected record %q", rec)
		out = append(out, strings.TrimPrefix(rec, "data: "))
	}
	return out
}

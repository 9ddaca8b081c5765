// Package adapter drives Gemini chat sessions from OpenAI-style chat
// requests and re-emits the streamed reply as chat-completion chunks.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/m2tx/gemini_adapter/internal/chat"
	"github.com/m2tx/gemini_adapter/internal/model"
	"github.com/m2tx/gemini_adapter/internal/repository"
	"github.com/m2tx/gemini_adapter/internal/sse"
)

const (
	// BaselineModel has no system instruction field; the instruction is
	// sent as a trailing user turn instead.
	BaselineModel = "gemini-pro"

	// DefaultModel is used when Options.Model is empty.
	DefaultModel = BaselineModel

	// CredentialEnv names the environment variable holding the API key.
	CredentialEnv = "GOOGLE_API_KEY"
)

// ChatStarter opens chat sessions against a model.
type ChatStarter interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (ChatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

// NewChatStarter adapts a genai client to ChatStarter.
func NewChatStarter(client *genai.Client) ChatStarter {
	return genaiChats{chats: client.Chats}
}

func (g genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (ChatSession, error) {
	session, err := g.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Options configures an Adapter.
type Options struct {
	// Model is the model identifier. Defaults to DefaultModel.
	Model string

	// Chats is a caller-supplied model handle. When nil a genai client is
	// built from APIKey, or from CredentialEnv looked up with LookupEnv.
	Chats     ChatStarter
	APIKey    string
	LookupEnv func(key string) (string, bool)

	// Threads, when set, receives the history of every completed turn.
	Threads repository.ThreadRepository

	Logger *logrus.Entry
}

// Adapter is the entry point for chat requests.
type Adapter struct {
	model   string
	chats   ChatStarter
	threads repository.ThreadRepository
	log     *logrus.Entry
}

// Response is the result of GetResponse. Stream must be read to the end or
// closed by the caller.
type Response struct {
	Stream   io.ReadCloser
	ThreadID string
	RunID    string
	Model    string
}

// New creates an Adapter. The credential is read once, here.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	chats := opts.Chats
	if chats == nil {
		key := opts.APIKey
		if key == "" {
			lookup := opts.LookupEnv
			if lookup == nil {
				lookup = os.LookupEnv
			}
			key, _ = lookup(CredentialEnv)
			key = strings.TrimSpace(key)
		}
		if key == "" {
			return nil, ErrMissingCredential
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("adapter: create genai client: %w", err)
		}
		chats = NewChatStarter(client)
	}

	return &Adapter{
		model:   opts.Model,
		chats:   chats,
		threads: opts.Threads,
		log:     opts.Logger.WithField("model", opts.Model),
	}, nil
}

// Model returns the configured model identifier.
func (a *Adapter) Model() string {
	return a.model
}

// GetResponse transcodes req, opens a chat session and starts streaming the
// reply. The first message of req is always consumed as the system
// instruction, whatever its role; a caller without a system message must
// send an empty one. Transcoding errors are returned before any call to the
// model is made.
func (a *Adapter) GetResponse(ctx context.Context, req chat.Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	instruction := strings.TrimSpace(req.Messages[0].Content)
	messages := req.Messages[1:]
	if len(messages) == 0 {
		return nil, ErrEmptyConversation
	}

	history, err := TransformMessages(messages[:len(messages)-1])
	if err != nil {
		return nil, fmt.Errorf("adapter: transform history: %w", err)
	}

	current, err := TransformMessage(messages[len(messages)-1])
	if err != nil {
		return nil, fmt.Errorf("adapter: transform current message: %w", err)
	}

	tools := TransformTools(req.Tools)

	config := &genai.GenerateContentConfig{}
	if len(tools) > 0 {
		config.Tools = tools
	}
	sessionHistory := placeSystemInstruction(a.model, instruction, slices.Clone(history), config)

	session, err := a.chats.Create(ctx, a.model, config, sessionHistory)
	if err != nil {
		return nil, fmt.Errorf("adapter: create chat: %w", err)
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	log := a.log.WithFields(logrus.Fields{
		"thread_id": threadID,
		"run_id":    runID,
	})
	log.WithFields(logrus.Fields{
		"history": len(history),
		"tools":   len(tools),
	}).Debug("starting response stream")

	pr, pw := io.Pipe()
	streamCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer cancel()

		reply, err := streamResponse(streamCtx, session, current, sse.NewWriter(pw))
		if err != nil {
			var upstream *UpstreamStreamError
			if errors.As(err, &upstream) {
				log.WithError(err).Error("response stream failed")
			} else {
				log.WithError(err).Debug("response stream abandoned by consumer")
			}
			pw.CloseWithError(err)
			return
		}

		a.saveThread(context.WithoutCancel(ctx), log, repository.Turn{
			ThreadID: threadID,
			RunID:    runID,
			Model:    a.model,
			History:  model.FromGenAI(append(history, current, reply)),
		})
		pw.Close()
	}()

	return &Response{
		Stream:   pr,
		ThreadID: threadID,
		RunID:    runID,
		Model:    a.model,
	}, nil
}

func (a *Adapter) saveThread(ctx context.Context, log *logrus.Entry, turn repository.Turn) {
	if a.threads == nil {
		return
	}
	if err := a.threads.Save(ctx, turn); err != nil {
		log.WithError(err).Warn("failed to save thread")
	}
}

// Thread returns the stored history of threadID. It is empty when no
// repository is configured or the thread is unknown.
func (a *Adapter) Thread(ctx context.Context, threadID string) ([]model.Content, error) {
	if a.threads == nil {
		return []model.Content{}, nil
	}

	stored, err := a.threads.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("adapter: load thread: %w", err)
	}
	if stored == nil {
		return []model.Content{}, nil
	}

	return stored, nil
}

// DeleteThread removes the stored history of threadID.
func (a *Adapter) DeleteThread(ctx context.Context, threadID string) error {
	if a.threads == nil {
		return nil
	}
	if err := a.threads.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("adapter: delete thread: %w", err)
	}
	return nil
}

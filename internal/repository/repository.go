package repository

import (
	"context"

	"github.com/m2tx/gemini_adapter/internal/model"
)

// Turn is the state of a thread after one completed run.
type Turn struct {
	ThreadID string
	RunID    string
	Model    string
	History  []model.Content
}

// ThreadRepository persists the native history of a conversation thread.
type ThreadRepository interface {
	// Save replaces the stored history of turn.ThreadID and records the run
	// that produced it.
	Save(ctx context.Context, turn Turn) error

	// Load returns the stored history of threadID, or nil, nil when the
	// thread is unknown.
	Load(ctx context.Context, threadID string) ([]model.Content, error)

	// Delete removes the history of threadID. Unknown threads are a no-op.
	Delete(ctx context.Context, threadID string) error
}

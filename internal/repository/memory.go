package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/m2tx/gemini_adapter/internal/model"
)

// MemoryThreadRepository keeps thread histories in process memory. It backs
// the server when no MongoDB URI is configured.
type MemoryThreadRepository struct {
	mu      sync.RWMutex
	threads map[string][]model.Content
}

func NewMemoryThreadRepository() *MemoryThreadRepository {
	return &MemoryThreadRepository{threads: make(map[string][]model.Content)}
}

func (r *MemoryThreadRepository) Save(_ context.Context, turn Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads[turn.ThreadID] = slices.Clone(turn.History)
	return nil
}

func (r *MemoryThreadRepository) Load(_ context.Context, threadID string) ([]model.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history, ok := r.threads[threadID]
	if !ok {
		return nil, nil
	}
	return slices.Clone(history), nil
}

func (r *MemoryThreadRepository) Delete(_ context.Context, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, threadID)
	return nil
}

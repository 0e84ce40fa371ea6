package iface

import (
	"context"

	"github.com/clearpath/clearpath/llm/models"
)

// LLM is the generation client contract consumed by the pipeline.
type LLM interface {
	ListModels(ctx context.Context) ([]*models.Model, error)
	Chat(ctx context.Context, r *models.ChatRequest) (*models.ChatResponse, error)
	// ChatStream returns a finite channel of tagged chunks. The channel is
	// closed after a Done or Err chunk. Cancelling ctx releases the
	// upstream stream at the next chunk boundary.
	ChatStream(ctx context.Context, r *models.ChatRequest) (<-chan models.StreamChunk, error)
}

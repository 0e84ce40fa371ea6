package llm

import (
	"context"

	llm_iface "github.com/clearpath/clearpath/llm/iface"
	llm_models "github.com/clearpath/clearpath/llm/models"
)

// MockLLM is a scripted generation client for tests.
type MockLLM struct {
	Content      string
	Usage        llm_models.Usage
	StreamTokens []string
	Err          error

	// LastRequest records the most recent request for assertions.
	LastRequest *llm_models.ChatRequest
}

// Ensure MockLLM implements the LLM interface.
var _ llm_iface.LLM = (*MockLLM)(nil)

func (m *MockLLM) ListModels(ctx context.Context) ([]*llm_models.Model, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return []*llm_models.Model{{ID: "llama-3.1-8b-instant"}}, nil
}

func (m *MockLLM) Chat(ctx context.Context, r *llm_models.ChatRequest) (*llm_models.ChatResponse, error) {
	m.LastRequest = r
	if m.Err != nil {
		return nil, m.Err
	}
	usage := m.Usage
	return &llm_models.ChatResponse{Content: m.Content, Usage: &usage}, nil
}

func (m *MockLLM) ChatStream(ctx context.Context, r *llm_models.ChatRequest) (<-chan llm_models.StreamChunk, error) {
	m.LastRequest = r
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(chan llm_models.StreamChunk)
	go func() {
		defer close(out)
		for _, tok := range m.StreamTokens {
			select {
			case out <- llm_models.StreamChunk{Token: tok}:
			case <-ctx.Done():
				return
			}
		}
		usage := m.Usage
		select {
		case out <- llm_models.StreamChunk{Done: true, Usage: &usage}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

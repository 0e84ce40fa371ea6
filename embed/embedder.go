// Package embed produces the unit-L2 sentence embeddings behind the
// vector index. The model is served by an OpenAI-compatible embeddings
// endpoint hosting the all-MiniLM-L6-v2 family (384 dimensions).
package embed

import (
	"context"
	"errors"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clearpath/clearpath/errs"
)

// IngestionBatchSize is the number of texts embedded per upstream call
// on the ingestion path. Queries embed singly.
const IngestionBatchSize = 32

// Embedder is the embedding contract shared by ingestion and retrieval.
type Embedder interface {
	// Encode embeds a single text, returning a unit-L2 vector.
	Encode(ctx context.Context, text string) ([]float32, error)
	// EncodeBatch embeds many texts, batching upstream calls.
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder builds an embedder for the given endpoint and model.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dimension int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		dimension: dimension,
	}
}

// NewOpenAIEmbedderWithClient wraps an existing go-openai client.
func NewOpenAIEmbedderWithClient(client *openai.Client, model string, dimension int) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: model, dimension: dimension}
}

func (e *OpenAIEmbedder) Dimension() int    { return e.dimension }
func (e *OpenAIEmbedder) ModelName() string { return e.model }

func (e *OpenAIEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += IngestionBatchSize {
		end := start + IngestionBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		result = append(result, vecs...)
	}
	return result, nil
}

func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, errs.Internal("embeddings", errors.New("embedding count does not match input count"))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, errs.Internal("embeddings", errors.New("embedding index out of range"))
		}
		if len(d.Embedding) != e.dimension {
			return nil, errs.DimensionMismatch(e.dimension, len(d.Embedding))
		}
		vecs[d.Index] = Normalize(d.Embedding)
	}
	return vecs, nil
}

// Normalize divides v by its L2 norm in place and returns it. Zero-norm
// vectors are left untouched so they never produce NaN.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

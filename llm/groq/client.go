// Package groq wraps the Groq Chat Completions API (served through its
// OpenAI-compatible endpoint) with bounded retries.
//
// Retry policy: up to 2 additional attempts after the first, with delays
// of 1s and 3s before attempts 2 and 3. Timeouts, transport failures and
// 5xx responses are retried; explicit 4xx client errors never are. When
// all attempts fail the error is errs.ErrUpstreamUnavailable carrying the
// last underlying cause.
package groq

import (
	"context"
	"errors"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clearpath/clearpath/errs"
	"github.com/clearpath/clearpath/llm/iface"
	"github.com/clearpath/clearpath/llm/models"
)

const (
	// RequestTimeout bounds a single upstream attempt.
	RequestTimeout = 30 * time.Second

	maxRetries = 2
)

// backoffDelays[i] is slept before attempt i+2.
var backoffDelays = [maxRetries]time.Duration{1 * time.Second, 3 * time.Second}

type Client struct {
	client *openai.Client

	// sleep is swappable in tests; defaults to a context-aware wait.
	sleep func(ctx context.Context, d time.Duration) error
}

var _ iface.LLM = (*Client)(nil)

// NewClient builds a client against the given OpenAI-compatible base URL.
func NewClient(baseURL, apiKey string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		sleep:  sleepCtx,
	}
}

// NewClientWithOpenAIClient wraps an existing go-openai client. Used by
// tests to point the wrapper at a stub server.
func NewClientWithOpenAIClient(client *openai.Client) *Client {
	return &Client{client: client, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryable reports whether err is worth another attempt. Explicit 4xx
// statuses are terminal; everything else (timeouts, connection failures,
// 5xx) is considered transient.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 0 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || reqErr.HTTPStatusCode >= 500
	}
	return true
}

func toOpenAIRequest(r *models.ChatRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(r.Messages))
	for i, m := range r.Messages {
		msgs[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}
	return openai.ChatCompletionRequest{
		Model:     r.Model,
		Messages:  msgs,
		MaxTokens: r.MaxTokens,
	}
}

func (c *Client) ListModels(ctx context.Context) ([]*models.Model, error) {
	resp, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]*models.Model, 0, len(resp.Models))
	for _, m := range resp.Models {
		result = append(result, &models.Model{ID: m.ID, Name: m.ID, Model: m.ID})
	}
	return result, nil
}

// Chat performs a non-streaming completion with the retry policy above.
func (c *Client) Chat(ctx context.Context, r *models.ChatRequest) (*models.ChatResponse, error) {
	req := toOpenAIRequest(r)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoffDelays[attempt-1]); err != nil {
				return nil, err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
		resp, err := c.client.CreateChatCompletion(attemptCtx, req)
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				return nil, errs.Internal("chat completion", errors.New("no choices returned"))
			}
			return &models.ChatResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: &models.Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}, nil
		}

		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, errs.Upstream(lastErr)
}

// ChatStream establishes a streaming completion, retrying the initial
// connection with the same policy as Chat. Once the stream is open,
// chunks are forwarded on the returned channel; read errors end the
// stream with an Err chunk and are not retried.
func (c *Client) ChatStream(ctx context.Context, r *models.ChatRequest) (<-chan models.StreamChunk, error) {
	req := toOpenAIRequest(r)
	req.Stream = true
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	var stream *openai.ChatCompletionStream
	var cancel context.CancelFunc
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoffDelays[attempt-1]); err != nil {
				return nil, err
			}
		}

		var attemptCtx context.Context
		attemptCtx, cancel = context.WithTimeout(ctx, RequestTimeout)
		s, err := c.client.CreateChatCompletionStream(attemptCtx, req)
		if err == nil {
			stream = s
			break
		}
		cancel()

		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}

	if stream == nil {
		return nil, errs.Upstream(lastErr)
	}

	out := make(chan models.StreamChunk)
	go func() {
		defer close(out)
		defer cancel()
		defer stream.Close()

		var usage *models.Usage
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				emit(ctx, out, models.StreamChunk{Done: true, Usage: usage})
				return
			}
			if err != nil {
				emit(ctx, out, models.StreamChunk{Err: err})
				return
			}

			if resp.Usage != nil {
				usage = &models.Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				}
			}
			if len(resp.Choices) > 0 {
				if delta := resp.Choices[0].Delta.Content; delta != "" {
					if !emit(ctx, out, models.StreamChunk{Token: delta}) {
						return
					}
				}
			}
		}
	}()

	return out, nil
}

// emit sends a chunk unless the consumer has gone away.
func emit(ctx context.Context, out chan<- models.StreamChunk, chunk models.StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

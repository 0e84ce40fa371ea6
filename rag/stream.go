package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clearpath/clearpath/errs"
	"github.com/clearpath/clearpath/evaluator"
	"github.com/clearpath/clearpath/llm/models"
	"github.com/clearpath/clearpath/prompt"
)

// QueryStream runs the pipeline with incremental token emission. The
// returned channel carries token events followed by exactly one done or
// error event, then closes. Cancelling ctx releases the upstream stream
// at the next chunk boundary and logs the partial outcome as an error.
func (e *Engine) QueryStream(ctx context.Context, query, requestID string) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		e.runStream(ctx, strings.TrimSpace(query), requestID, out)
	}()
	return out
}

func (e *Engine) runStream(ctx context.Context, query, requestID string, out chan<- Event) {
	if query == "" {
		err := errs.Validation("query cannot be empty or whitespace only")
		e.logAttempt(requestID, query, "", "", nil, nil, 0, 0, 0, err)
		sendEvent(ctx, out, errorEvent(requestID, err))
		return
	}

	start := time.Now()
	classification, model, maxTokens := e.routeQuery(query)

	chunks, err := e.retriever.Retrieve(ctx, query)
	if err != nil {
		e.logAttempt(requestID, query, classification, model, nil, nil, 0, 0, elapsedMS(start), err)
		sendEvent(ctx, out, errorEvent(requestID, errs.Internal("retrieve", err)))
		return
	}

	messages := prompt.Assemble(query, chunks)
	stream, err := e.llm.ChatStream(ctx, &models.ChatRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
		Stream:    true,
	})
	if err != nil {
		e.logAttempt(requestID, query, classification, model, chunks, nil, 0, 0, elapsedMS(start), err)
		sendEvent(ctx, out, errorEvent(requestID, err))
		return
	}

	// Tee fragments into the accumulator: the evaluator and the log need
	// the full answer text once the stream ends.
	var answer strings.Builder
	var usage *models.Usage

	for chunk := range stream {
		switch {
		case chunk.Err != nil:
			err := chunk.Err
			e.logAttempt(requestID, query, classification, model, chunks, nil, 0, 0, elapsedMS(start), err)
			sendEvent(ctx, out, errorEvent(requestID, err))
			return

		case chunk.Done:
			usage = chunk.Usage

		case chunk.Token != "":
			answer.WriteString(chunk.Token)
			if !sendEvent(ctx, out, Event{Name: EventToken, Data: TokenData{Token: chunk.Token}}) {
				// Consumer went away: record the partial outcome.
				err := context.Cause(ctx)
				if err == nil {
					err = context.Canceled
				}
				e.logAttempt(requestID, query, classification, model, chunks, nil, 0, 0, elapsedMS(start),
					errs.Internal("stream cancelled", err))
				return
			}
		}
	}

	if ctx.Err() != nil {
		e.logAttempt(requestID, query, classification, model, chunks, nil, 0, 0, elapsedMS(start),
			errs.Internal("stream cancelled", ctx.Err()))
		return
	}

	tokensIn, tokensOut := usageCounts(usage)
	flags := evaluator.Evaluate(answer.String(), len(chunks), chunks)
	latency := elapsedMS(start)

	e.logAttempt(requestID, query, classification, model, chunks, flags, tokensIn, tokensOut, latency, nil)

	sendEvent(ctx, out, Event{Name: EventDone, Data: DoneData{
		RequestID: requestID,
		Sources:   sources(chunks),
		Debug: Debug{
			Classification: string(classification),
			ModelUsed:      model,
			TokensInput:    tokensIn,
			TokensOutput:   tokensOut,
			LatencyMS:      latency,
			RetrievalCount: len(chunks),
			EvaluatorFlags: flags,
		},
	}})
}

func sendEvent(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// errorEvent maps an error to its transport status code.
func errorEvent(requestID string, err error) Event {
	status := 500
	msg := "An internal error occurred during streaming."
	switch {
	case errors.Is(err, errs.ErrValidation):
		status = 400
		msg = err.Error()
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		status = 503
		msg = "The AI service is temporarily unavailable. Please try again in a few moments."
	}
	return Event{Name: EventError, Data: ErrorData{Error: msg, RequestID: requestID, StatusCode: status}}
}

package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/observability"
)

// Stream produces a single streamed reply without offering tools. onUpdate,
// if set, receives the accumulated text after every content chunk.
//
// Cancellation is cooperative: Cancel or a cancelled ctx is checked at every
// chunk boundary, and breaking out of the stream releases the connection.
// Whatever text arrived before the stop is persisted and returned. When
// nothing arrived, no assistant message is stored and the result is nil.
//
// A stream that fails after producing text returns the partial message along
// with the error.
func (o *Orchestrator) Stream(ctx context.Context, conversationID, text string, onUpdate func(accumulated string)) (reply *ai.Message, err error) {
	if err := o.begin(true); err != nil {
		return nil, err
	}

	ctx, span := observability.Start(ctx, o.observer, observability.SpanAgentStream,
		observability.String(observability.AttrAgentConversationID, conversationID),
	)
	defer func() {
		o.finish(ctx, err)
		observability.EndWithError(span, err)
	}()
	o.countTurn(ctx, "stream")

	turn, err := o.prepare(ctx, conversationID, text)
	if err != nil {
		return nil, err
	}

	o.setIteration(1)
	o.setStatus(ctx, Streaming)

	stream, err := turn.provider.StreamMessage(ctx, ai.ChatRequest{Messages: turn.context})
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	cancelled := false
	var streamErr error
	for event, eventErr := range stream.Iter() {
		if o.stopRequested(ctx) {
			cancelled = true
			break
		}
		if eventErr != nil {
			streamErr = eventErr
			break
		}
		switch {
		case event.Type == ai.StreamEventContent && event.Content != "":
			content.WriteString(event.Content)
			if onUpdate != nil {
				onUpdate(content.String())
			}
		case event.Type == ai.StreamEventDone:
			o.record(ctx, event.Usage, 0)
		}
		if o.stopRequested(ctx) {
			cancelled = true
			break
		}
	}

	// A transport error caused by our own cancellation is a stop, not a failure.
	if streamErr != nil && o.stopRequested(ctx) && errors.Is(streamErr, ai.ErrCancelled) {
		cancelled = true
		streamErr = nil
	}

	span.SetAttributes(
		observability.Bool(observability.AttrAgentCancelled, cancelled),
		observability.Int(observability.AttrAgentContentLength, content.Len()),
	)
	if cancelled {
		span.AddEvent(observability.EventStreamCancelled,
			observability.Int(observability.AttrAgentContentLength, content.Len()))
	}

	// The caller's context may already be cancelled; persistence must still
	// go through.
	storeCtx := context.WithoutCancel(ctx)

	if content.Len() > 0 {
		message := ai.Message{Role: ai.RoleAssistant, Content: content.String()}
		if err := o.persist(storeCtx, conversationID, message); err != nil {
			return nil, errors.Join(streamErr, err)
		}
		reply = &message
	}
	if err := o.touch(storeCtx, conversationID); err != nil {
		return reply, errors.Join(streamErr, err)
	}
	return reply, streamErr
}

func (o *Orchestrator) stopRequested(ctx context.Context) bool {
	return o.cancelled.Load() || ctx.Err() != nil
}

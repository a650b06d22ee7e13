package orchestrator

import (
	"context"
)

// DefaultEventBuffer is the channel capacity used by Stream when buf <= 0.
const DefaultEventBuffer = 16

// Stream runs Resolve in the background and delivers its events on the
// returned channel, which is closed after the terminal event. Progress
// events are dropped when the consumer falls behind; the terminal event is
// delivered unless ctx is cancelled first.
func (o *Orchestrator) Stream(ctx context.Context, req Request, buf int) <-chan Event {
	return o.stream(ctx, buf, func(oc *Orchestrator) {
		_, _ = oc.Resolve(ctx, req)
	})
}

// StreamFetch is Stream for Fetch.
func (o *Orchestrator) StreamFetch(ctx context.Context, req Request, opts FetchOptions, buf int) <-chan Event {
	return o.stream(ctx, buf, func(oc *Orchestrator) {
		_, _ = oc.Fetch(ctx, req, opts)
	})
}

func (o *Orchestrator) stream(ctx context.Context, buf int, run func(*Orchestrator)) <-chan Event {
	if buf <= 0 {
		buf = DefaultEventBuffer
	}
	events := make(chan Event, buf)
	parent := o.Hooks

	oc := *o
	oc.Hooks = Hooks{OnEvent: func(e Event) {
		emit(parent, e)
		if !e.Terminal() {
			select {
			case events <- e:
			default:
			}
			return
		}
		select {
		case events <- e:
		case <-ctx.Done():
		}
	}}

	go func() {
		defer close(events)
		run(&oc)
	}()
	return events
}

package fixchan

import (
	"context"
	"log/slog"
)

// Responder produces the Response for a Request. The in-process assistant
// implements this; tests script it.
type Responder interface {
	Respond(ctx context.Context, req Request) Response
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, req Request) Response

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// LoopbackTransport services fix requests in-process: each sent request is
// handed to a Responder on its own goroutine and the response dispatched
// straight back into the channel.
type LoopbackTransport struct {
	Responder Responder

	channel *Channel
}

// NewLoopback creates a loopback transport over responder and a Channel
// bound to it.
func NewLoopback(responder Responder) (*LoopbackTransport, *Channel) {
	transport := &LoopbackTransport{Responder: responder}
	channel := NewChannel(transport)
	transport.channel = channel
	return transport, channel
}

// Send implements Transport.
func (t *LoopbackTransport) Send(req Request) error {
	go func() {
		resp := t.Responder.Respond(context.Background(), req)
		if !t.channel.Dispatch(resp) {
			slog.Debug("Loopback response arrived after settlement", "request_id", req.RequestID)
		}
	}()
	return nil
}

// UnavailableTransport rejects every request immediately. Used when no
// assistant is configured, so the fix loop terminates with a clear error
// instead of waiting out the timeout.
type UnavailableTransport struct{}

// Send implements Transport.
func (UnavailableTransport) Send(req Request) error {
	return ErrNoAssistant
}

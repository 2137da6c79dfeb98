package fixchan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/panyam/vizfix/fixer"
)

// DefaultTimeout bounds how long a fix request waits for its response.
const DefaultTimeout = 30 * time.Second

var (
	// ErrAssistantDeclined indicates the assistant answered but could not
	// produce a fix.
	ErrAssistantDeclined = errors.New("assistant failed to provide a fix")

	// ErrFixTimeout indicates no matching response arrived in time.
	ErrFixTimeout = errors.New("fix request timed out waiting for assistant")

	// ErrNoAssistant indicates there is nothing on the far side of the
	// channel to answer fix requests.
	ErrNoAssistant = errors.New("no assistant is configured to handle fix requests")
)

// Transport delivers an outbound Request to the assistant boundary. The
// matching Response comes back through Channel.Dispatch.
type Transport interface {
	Send(req Request) error
}

// Channel correlates fix requests with their responses. Each in-flight
// request owns an entry in an explicit registry keyed by correlation id; the
// entry is removed on every settlement path, so a settled request can never
// react to a later response.
type Channel struct {
	Transport   Transport
	Timeout     time.Duration // zero means DefaultTimeout
	MaxAttempts int           // advertised to the assistant in each request

	mu      sync.Mutex
	pending map[string]chan Response
}

var _ fixer.Requester = (*Channel)(nil)

// NewChannel creates a Channel over the given transport.
func NewChannel(transport Transport) *Channel {
	return &Channel{
		Transport:   transport,
		Timeout:     DefaultTimeout,
		MaxAttempts: fixer.DefaultMaxAttempts,
		pending:     make(map[string]chan Response),
	}
}

func (c *Channel) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// RequestFix sends one correction request and blocks until the matching
// response, the timeout, or context cancellation. It implements
// fixer.Requester.
func (c *Channel) RequestFix(ctx context.Context, code string, errMsg string, attempt int) (string, error) {
	id := uuid.NewString()
	respCh := make(chan Response, 1)

	c.mu.Lock()
	if c.pending == nil {
		c.pending = make(map[string]chan Response)
	}
	c.pending[id] = respCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := Request{
		Type:      TypeFixRequest,
		RequestID: id,
		Text:      code,
		Values: RequestValues{
			Error:       errMsg,
			Attempt:     attempt,
			MaxAttempts: c.MaxAttempts,
		},
	}
	slog.Debug("Sending fix request", "request_id", id, "attempt", attempt)
	if err := c.Transport.Send(req); err != nil {
		return "", fmt.Errorf("sending fix request: %w", err)
	}

	timer := time.NewTimer(c.timeout())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		slog.Warn("Fix request timed out", "request_id", id)
		return "", fmt.Errorf("%w after %s", ErrFixTimeout, c.timeout())
	case resp := <-respCh:
		if !resp.Success || resp.FixedCode == "" {
			if resp.Error != "" {
				return "", fmt.Errorf("%w: %s", ErrAssistantDeclined, resp.Error)
			}
			return "", ErrAssistantDeclined
		}
		return resp.FixedCode, nil
	}
}

// Dispatch routes an inbound response to the request waiting on it. Reports
// whether the response matched a pending request; unmatched and duplicate
// responses are dropped.
func (c *Channel) Dispatch(resp Response) bool {
	c.mu.Lock()
	respCh, ok := c.pending[resp.RequestID]
	if ok {
		delete(c.pending, resp.RequestID)
	}
	c.mu.Unlock()

	if !ok {
		slog.Debug("Dropping unmatched fix response", "request_id", resp.RequestID)
		return false
	}
	respCh <- resp
	return true
}

// PendingCount reports the number of in-flight requests.
func (c *Channel) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// package fixchan implements the request/response channel through which
// invalid diagram source is sent to an external assistant for correction.
// Requests and responses are correlated by id; the set of inbound message
// kinds is closed and decoded once at the channel boundary.
package fixchan

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire message type tags.
const (
	TypeFixRequest  = "fixSyntaxRequest"
	TypeFixResponse = "fixSyntaxResponse"
)

// ErrUnknownMessage indicates an inbound payload whose type tag is not part
// of the protocol.
var ErrUnknownMessage = errors.New("unknown fix channel message type")

// RequestValues carries the context the assistant needs to produce a fix.
type RequestValues struct {
	Error       string `json:"error"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"maxAttempts"`
}

// Request is one outbound correction request.
type Request struct {
	Type      string        `json:"type"`
	RequestID string        `json:"requestId"`
	Text      string        `json:"text"`
	Values    RequestValues `json:"values"`
}

// Response is the correlated answer to a Request. Exactly one response per
// request id is expected; duplicates and unmatched ids are dropped.
type Response struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Success   bool   `json:"success"`
	FixedCode string `json:"fixedCode,omitempty"`
	Error     string `json:"error,omitempty"`
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeResponse decodes an inbound payload into a Response, rejecting
// payloads whose type tag is not fixSyntaxResponse. This is the only place
// inbound message shapes are inspected.
func DecodeResponse(data []byte) (*Response, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding message envelope: %w", err)
	}
	if env.Type != TypeFixResponse {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding fix response: %w", err)
	}
	return &resp, nil
}

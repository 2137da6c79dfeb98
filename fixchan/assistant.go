package fixchan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrAPIKeyMissing indicates the OpenAI API key was not found in the environment.
var ErrAPIKeyMissing = errors.New("OpenAI API key not found in environment variable OPENAI_API_KEY")

// LLMClient defines the interface for interacting with an LLM.
type LLMClient interface {
	// SimpleQuery sends a single prompt to the LLM and returns the text response.
	SimpleQuery(ctx context.Context, prompt string) (string, error)
}

// openaiClient implements LLMClient using the OpenAI API.
type openaiClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new client for interacting with the OpenAI API.
// It reads the API key from the OPENAI_API_KEY environment variable and
// the model name from OPENAI_MODEL (defaulting to gpt-4o).
func NewOpenAIClient() (LLMClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		slog.Error("OpenAI API key missing")
		return nil, ErrAPIKeyMissing
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4o
		slog.Info("OPENAI_MODEL not set, defaulting", "model", model)
	} else {
		slog.Info("Using OpenAI model from environment", "model", model)
	}

	client := openai.NewClient(apiKey)
	return &openaiClient{
		client: client,
		model:  model,
	}, nil
}

// SimpleQuery implements the LLMClient interface for OpenAI.
func (c *openaiClient) SimpleQuery(ctx context.Context, prompt string) (string, error) {
	slog.Debug("Sending simple query to OpenAI", "model", c.model, "prompt_length", len(prompt))

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("LLM API request failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		slog.Warn("OpenAI response missing choices or content")
		return "", errors.New("LLM returned empty response")
	}

	responseContent := resp.Choices[0].Message.Content
	slog.Debug("Received response from OpenAI", "response_length", len(responseContent))
	return responseContent, nil
}

// Assistant answers fix requests by asking an LLM to repair the diagram
// source. It never guarantees the repaired source means the same thing as
// the original, only that it is a plausible correction; validation is the
// caller's job.
type Assistant struct {
	Client LLMClient
}

// NewAssistant creates an Assistant over the given LLM client.
func NewAssistant(client LLMClient) *Assistant {
	if client == nil {
		slog.Warn("NewAssistant created with nil LLMClient")
	}
	return &Assistant{Client: client}
}

const fixPromptTemplate = `The following diagram source fails to parse.

Parser error:
%s

This is fix attempt %d of %d.

Diagram source:
%s

Reply with ONLY the corrected diagram source. No explanation, no markdown fences.`

// Respond implements Responder. Any client failure or empty reply becomes a
// failure response carrying the cause.
func (a *Assistant) Respond(ctx context.Context, req Request) Response {
	if a.Client == nil {
		return Response{
			Type:      TypeFixResponse,
			RequestID: req.RequestID,
			Error:     "LLM client not configured",
		}
	}

	prompt := fmt.Sprintf(fixPromptTemplate,
		req.Values.Error, req.Values.Attempt, req.Values.MaxAttempts, req.Text)

	slog.Info("Asking assistant for a fix", "request_id", req.RequestID, "attempt", req.Values.Attempt)
	reply, err := a.Client.SimpleQuery(ctx, prompt)
	if err != nil {
		slog.Error("Assistant query failed", "request_id", req.RequestID, "error", err)
		return Response{
			Type:      TypeFixResponse,
			RequestID: req.RequestID,
			Error:     err.Error(),
		}
	}

	fixed := StripCodeFences(reply)
	if strings.TrimSpace(fixed) == "" {
		return Response{
			Type:      TypeFixResponse,
			RequestID: req.RequestID,
			Error:     "assistant returned an empty correction",
		}
	}

	return Response{
		Type:      TypeFixResponse,
		RequestID: req.RequestID,
		Success:   true,
		FixedCode: fixed,
	}
}

// StripCodeFences removes a surrounding markdown code fence, if present.
// Models tend to wrap replies in fences no matter how firmly told not to.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop a language tag on the opening fence line.
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if firstLine == "" || !strings.ContainsAny(firstLine, " \t") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// --- Mock Client for Testing ---

// MockLLMClient provides a mock implementation for testing purposes.
type MockLLMClient struct {
	SimpleQueryFunc  func(ctx context.Context, prompt string) (string, error)
	ResponseToReturn string
	ErrorToReturn    error
	ReceivedPrompt   string
}

// SimpleQuery implements the LLMClient interface for the mock.
func (m *MockLLMClient) SimpleQuery(ctx context.Context, prompt string) (string, error) {
	m.ReceivedPrompt = prompt
	if m.SimpleQueryFunc != nil {
		return m.SimpleQueryFunc(ctx, prompt)
	}
	if m.ErrorToReturn != nil {
		return "", m.ErrorToReturn
	}
	return m.ResponseToReturn, nil
}

package fixchan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistantRespond(t *testing.T) {
	ctx := context.Background()
	req := Request{
		Type:      TypeFixRequest,
		RequestID: "req-1",
		Text:      "graph TD\nA -> ->",
		Values:    RequestValues{Error: "unexpected token", Attempt: 1, MaxAttempts: 2},
	}

	t.Run("Successful Correction", func(t *testing.T) {
		mock := &MockLLMClient{ResponseToReturn: "graph TD\nA --> B"}
		resp := NewAssistant(mock).Respond(ctx, req)

		assert.True(t, resp.Success)
		assert.Equal(t, "req-1", resp.RequestID)
		assert.Equal(t, "graph TD\nA --> B", resp.FixedCode)
		// The prompt must carry everything the model needs.
		assert.Contains(t, mock.ReceivedPrompt, "unexpected token")
		assert.Contains(t, mock.ReceivedPrompt, "graph TD\nA -> ->")
		assert.Contains(t, mock.ReceivedPrompt, "attempt 1 of 2")
	})

	t.Run("Strips Markdown Fences", func(t *testing.T) {
		mock := &MockLLMClient{ResponseToReturn: "```mermaid\ngraph TD\nA --> B\n```"}
		resp := NewAssistant(mock).Respond(ctx, req)
		require.True(t, resp.Success)
		assert.Equal(t, "graph TD\nA --> B", resp.FixedCode)
	})

	t.Run("Client Error Becomes Failure Response", func(t *testing.T) {
		mock := &MockLLMClient{ErrorToReturn: errors.New("rate limited")}
		resp := NewAssistant(mock).Respond(ctx, req)
		assert.False(t, resp.Success)
		assert.Equal(t, "req-1", resp.RequestID)
		assert.Contains(t, resp.Error, "rate limited")
	})

	t.Run("Empty Reply Becomes Failure Response", func(t *testing.T) {
		mock := &MockLLMClient{ResponseToReturn: "```\n\n```"}
		resp := NewAssistant(mock).Respond(ctx, req)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "empty")
	})

	t.Run("Nil Client Becomes Failure Response", func(t *testing.T) {
		resp := NewAssistant(nil).Respond(ctx, req)
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	})
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"no fence", "graph TD", "graph TD"},
		{"plain fence", "```\ngraph TD\n```", "graph TD"},
		{"language tag", "```mermaid\ngraph TD\n```", "graph TD"},
		{"surrounding whitespace", "  ```\ngraph TD\n```  ", "graph TD"},
		{"multiline body", "```\nA --> B\nB --> C\n```", "A --> B\nB --> C"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StripCodeFences(tc.input))
		})
	}
}

func TestNewOpenAIClient(t *testing.T) {
	t.Run("API Key Missing", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		client, err := NewOpenAIClient()
		require.Error(t, err)
		assert.Nil(t, client)
		assert.ErrorIs(t, err, ErrAPIKeyMissing)
	})

	t.Run("Model Defaulting", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "test-key-123")
		t.Setenv("OPENAI_MODEL", "")
		client, err := NewOpenAIClient()
		require.NoError(t, err)
		oaiClient, ok := client.(*openaiClient)
		require.True(t, ok)
		assert.NotEmpty(t, oaiClient.model, "Default model should be set")
	})

	t.Run("Model From Environment", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "test-key-123")
		t.Setenv("OPENAI_MODEL", "test-model-from-env")
		client, err := NewOpenAIClient()
		require.NoError(t, err)
		oaiClient, ok := client.(*openaiClient)
		require.True(t, ok)
		assert.Equal(t, "test-model-from-env", oaiClient.model)
	})
}

package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/panyam/vizfix/retry"
)

// ErrOracleURLMissing indicates no rendering service URL was configured.
var ErrOracleURLMissing = errors.New("rendering service URL not found in environment variable VIZFIX_ORACLE_URL")

// HTTPOracle talks to a kroki-style diagram rendering service over HTTP.
// Syntax rejections come back as 400s with a message body; anything else is
// treated as an engine failure. Transient transport errors and 5xx responses
// are retried with a short exponential backoff.
type HTTPOracle struct {
	BaseURL string
	Client  *http.Client
	Policy  retry.Policy
}

// NewHTTPOracleFromEnv creates an HTTPOracle from the VIZFIX_ORACLE_URL
// environment variable.
func NewHTTPOracleFromEnv() (*HTTPOracle, error) {
	baseURL := os.Getenv("VIZFIX_ORACLE_URL")
	if baseURL == "" {
		slog.Error("Rendering service URL missing")
		return nil, ErrOracleURLMissing
	}
	return NewHTTPOracle(baseURL), nil
}

// NewHTTPOracle creates an HTTPOracle for the given base URL.
func NewHTTPOracle(baseURL string) *HTTPOracle {
	return &HTTPOracle{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
		Policy: retry.Policy{
			MaxAttempts: 3,
			Backoff:     retry.Exponential(200*time.Millisecond, 2*time.Second),
			RetryIf:     isTransient,
		},
	}
}

type parseRequest struct {
	Text string `json:"text"`
}

type renderRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type renderResponse struct {
	SVG string `json:"svg"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// transientError marks failures worth re-trying (connection resets, 5xx).
type transientError struct{ err error }

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Parse implements Oracle.
func (o *HTTPOracle) Parse(ctx context.Context, text string) error {
	_, err := retry.Do(ctx, o.Policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.post(ctx, "/parse", parseRequest{Text: text}, nil)
	})
	return err
}

// Render implements Oracle.
func (o *HTTPOracle) Render(ctx context.Context, id string, text string) (string, error) {
	return retry.Do(ctx, o.Policy, func(ctx context.Context) (string, error) {
		var out renderResponse
		if err := o.post(ctx, "/render", renderRequest{ID: id, Text: text}, &out); err != nil {
			return "", err
		}
		return out.SVG, nil
	})
}

// post sends a JSON body and decodes the response into out (if non-nil).
// A 400 becomes a *SyntaxError; 5xx and transport failures are transient.
func (o *HTTPOracle) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return &transientError{fmt.Errorf("calling rendering service: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		var rejection errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&rejection); err != nil || rejection.Error == "" {
			rejection.Error = "syntax error"
		}
		return &SyntaxError{Message: rejection.Error}
	case resp.StatusCode >= 500:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &transientError{fmt.Errorf("rendering service returned %d: %s", resp.StatusCode, data)}
	default:
		return fmt.Errorf("rendering service returned unexpected status %d", resp.StatusCode)
	}
}

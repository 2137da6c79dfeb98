package oracle

import (
	"context"
	"fmt"
	"sync"
)

// --- Mock Oracle for Testing ---

// MockOracle provides a scriptable Oracle implementation for tests. Verdicts
// can either be driven per-call via ParseFunc/RenderFunc or scripted as a
// sequence of parse errors consumed one per call.
type MockOracle struct {
	mu sync.Mutex

	ParseFunc  func(ctx context.Context, text string) error
	RenderFunc func(ctx context.Context, id string, text string) (string, error)

	// ParseScript is consumed one entry per Parse call once ParseFunc is nil.
	// A nil entry means "accepted".
	ParseScript []error

	// AcceptOnly, when non-empty, accepts exactly this source and rejects
	// everything else with a syntax error.
	AcceptOnly string

	ParseCalls  []string // every source passed to Parse, in order
	RenderCalls []string // every source passed to Render, in order
}

// Parse implements Oracle.
func (m *MockOracle) Parse(ctx context.Context, text string) error {
	m.mu.Lock()
	m.ParseCalls = append(m.ParseCalls, text)
	m.mu.Unlock()

	if m.ParseFunc != nil {
		return m.ParseFunc(ctx, text)
	}
	m.mu.Lock()
	if len(m.ParseScript) > 0 {
		verdict := m.ParseScript[0]
		m.ParseScript = m.ParseScript[1:]
		m.mu.Unlock()
		return verdict
	}
	m.mu.Unlock()
	if m.AcceptOnly != "" && text != m.AcceptOnly {
		return &SyntaxError{Message: fmt.Sprintf("unexpected token near %q", firstLine(text))}
	}
	return nil
}

// Render implements Oracle. By default it succeeds with a trivial SVG wrapper
// whenever Parse would accept the same source.
func (m *MockOracle) Render(ctx context.Context, id string, text string) (string, error) {
	m.mu.Lock()
	m.RenderCalls = append(m.RenderCalls, text)
	m.mu.Unlock()

	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, id, text)
	}
	if m.AcceptOnly != "" && text != m.AcceptOnly {
		return "", &SyntaxError{Message: fmt.Sprintf("unexpected token near %q", firstLine(text))}
	}
	return fmt.Sprintf("<svg id=%q><!-- %d bytes --></svg>", id, len(text)), nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

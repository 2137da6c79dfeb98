// package oracle wraps the external diagram engine behind a narrow contract.
// The engine is treated as a black box: we only ever ask it to parse a piece
// of diagram source or to render it to SVG markup.
package oracle

import (
	"context"
	"errors"
	"log/slog"
)

// Oracle is the contract the external diagram engine is consumed through.
type Oracle interface {
	// Parse checks the diagram source for syntax errors. A nil return means
	// the engine accepted the source.
	Parse(ctx context.Context, text string) error

	// Render lays out and renders the diagram source, returning SVG markup.
	// The id is used by the engine to namespace element ids in the output.
	Render(ctx context.Context, id string, text string) (string, error)
}

// Result is the verdict of a single validation call. Err is only meaningful
// when IsValid is false.
type Result struct {
	IsValid bool
	Err     string
}

// genericEngineError is reported when the engine itself blows up rather than
// rejecting the source. Callers should never see raw engine internals.
const genericEngineError = "diagram engine failed to evaluate the source"

// Validator adapts an Oracle's parse stage into validation verdicts.
//
// It deliberately does NOT normalize its input: validation must reflect the
// exact candidate being judged, so normalization is the caller's job.
type Validator struct {
	Engine Oracle
}

// NewValidator creates a Validator over the given engine.
func NewValidator(engine Oracle) *Validator {
	return &Validator{Engine: engine}
}

// Validate asks the engine to parse code and converts the answer into a
// Result. Engine failures that are not syntax rejections are reported as an
// invalid result with a generic message rather than propagated.
func (v *Validator) Validate(ctx context.Context, code string) Result {
	err := v.Engine.Parse(ctx, code)
	if err == nil {
		return Result{IsValid: true}
	}

	var syntaxErr *SyntaxError
	if errors.As(err, &syntaxErr) {
		return Result{IsValid: false, Err: syntaxErr.Message}
	}

	// Transport failures, engine panics recovered upstream, etc. These are
	// not the author's fault, so don't leak internals into the fix loop.
	slog.Warn("Diagram engine failed during validation", "error", err)
	return Result{IsValid: false, Err: genericEngineError}
}

// SyntaxError is a rejection of the diagram source by the engine's parser,
// as opposed to an internal engine failure.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string { return e.Message }

// package fixer implements the bounded auto-repair loop for invalid diagram
// source: a free deterministic pass, validation against the diagram engine,
// and a small budget of assistant-provided corrections.
package fixer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panyam/vizfix/oracle"
)

// DefaultMaxAttempts bounds the number of assistant requests in one fix
// sequence. Deterministic passes are free and do not count.
const DefaultMaxAttempts = 2

// Outcome is the terminal result of a fix sequence. FixedCode is always
// populated with the best candidate seen, normalized, even on failure.
type Outcome struct {
	Success   bool
	FixedCode string
	Err       string
	Attempts  int
}

// Validator judges a single candidate. Implementations must reflect the
// exact input they are given; the Fixer normalizes before calling.
type Validator interface {
	Validate(ctx context.Context, code string) oracle.Result
}

// Requester asks the external assistant for a corrected version of code.
// An error return (decline, timeout, transport failure) is terminal for the
// fix sequence that issued it.
type Requester interface {
	RequestFix(ctx context.Context, code string, errMsg string, attempt int) (string, error)
}

// Fixer orchestrates the deterministic pass, the validator and the assistant
// channel into a bounded retry loop.
type Fixer struct {
	Validator   Validator
	Requester   Requester
	MaxAttempts int // zero means DefaultMaxAttempts
}

// New creates a Fixer with the default attempt budget.
func New(validator Validator, requester Requester) *Fixer {
	return &Fixer{Validator: validator, Requester: requester, MaxAttempts: DefaultMaxAttempts}
}

func (f *Fixer) maxAttempts() int {
	if f.MaxAttempts > 0 {
		return f.MaxAttempts
	}
	return DefaultMaxAttempts
}

// AutoFix runs the repair loop over code until a candidate validates, the
// attempt budget is exhausted, or the assistant fails. Attempts in the
// returned Outcome counts assistant requests only; a zero-attempt success
// means the deterministic pass alone resolved the defect.
//
// Requests to the assistant are strictly sequential: a new one is issued
// only after the previous correction has been validated and found invalid.
func (f *Fixer) AutoFix(ctx context.Context, code string) Outcome {
	candidate := code
	attempts := 0
	max := f.maxAttempts()

	for {
		candidate = Normalize(candidate)

		result := f.Validator.Validate(ctx, candidate)
		if result.IsValid {
			slog.Info("Fix sequence succeeded", "attempts", attempts)
			return Outcome{Success: true, FixedCode: candidate, Attempts: attempts}
		}

		if attempts >= max {
			slog.Info("Fix sequence exhausted its budget", "attempts", attempts, "last_error", result.Err)
			return Outcome{
				FixedCode: candidate,
				Attempts:  attempts,
				Err:       fmt.Sprintf("exhausted %d fix attempts, last error: %s", max, result.Err),
			}
		}

		attempts++
		slog.Info("Requesting assistant fix", "attempt", attempts, "error", result.Err)
		corrected, err := f.Requester.RequestFix(ctx, candidate, result.Err, attempts)
		if err != nil {
			// Assistant failures are immediately terminal: re-running the
			// deterministic pass on an unchanged candidate cannot help.
			slog.Warn("Assistant request failed", "attempt", attempts, "error", err)
			return Outcome{FixedCode: candidate, Attempts: attempts, Err: err.Error()}
		}
		candidate = corrected
	}
}

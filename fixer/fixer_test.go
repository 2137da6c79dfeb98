package fixer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyam/vizfix/oracle"
)

// scriptedValidator returns verdicts one per call, in order, then keeps
// returning the last one.
type scriptedValidator struct {
	verdicts []oracle.Result
	calls    []string
}

func (v *scriptedValidator) Validate(ctx context.Context, code string) oracle.Result {
	v.calls = append(v.calls, code)
	if len(v.verdicts) == 0 {
		return oracle.Result{IsValid: false, Err: "no verdict scripted"}
	}
	verdict := v.verdicts[0]
	if len(v.verdicts) > 1 {
		v.verdicts = v.verdicts[1:]
	}
	return verdict
}

// scriptedRequester returns corrections one per call, in order. A nil error
// with empty string is never produced; failures are scripted as errors.
type scriptedRequester struct {
	corrections []string
	errs        []error
	calls       int
	attempts    []int
}

func (r *scriptedRequester) RequestFix(ctx context.Context, code string, errMsg string, attempt int) (string, error) {
	idx := r.calls
	r.calls++
	r.attempts = append(r.attempts, attempt)
	if idx < len(r.errs) && r.errs[idx] != nil {
		return "", r.errs[idx]
	}
	if idx < len(r.corrections) {
		return r.corrections[idx], nil
	}
	return "", errors.New("no correction scripted")
}

func invalid(msg string) oracle.Result { return oracle.Result{IsValid: false, Err: msg} }
func valid() oracle.Result             { return oracle.Result{IsValid: true} }

func TestAutoFix(t *testing.T) {
	ctx := context.Background()

	t.Run("Deterministic Pass Alone Fixes Encoded Arrows", func(t *testing.T) {
		validator := &scriptedValidator{verdicts: []oracle.Result{valid()}}
		requester := &scriptedRequester{}
		f := New(validator, requester)

		outcome := f.AutoFix(ctx, "A --&gt; B")
		assert.True(t, outcome.Success)
		assert.Equal(t, "A --> B", outcome.FixedCode)
		assert.Equal(t, 0, outcome.Attempts, "the cheap path needs no assistant")
		assert.Equal(t, 0, requester.calls)
		// Validation must have judged the normalized candidate, not the raw one.
		require.Len(t, validator.calls, 1)
		assert.Equal(t, "A --> B", validator.calls[0])
	})

	t.Run("Assistant Decline Is Immediately Terminal", func(t *testing.T) {
		validator := &scriptedValidator{verdicts: []oracle.Result{invalid("unexpected token")}}
		requester := &scriptedRequester{errs: []error{errors.New("assistant failed to provide a fix")}}
		f := New(validator, requester)

		outcome := f.AutoFix(ctx, "graph TD\nA -> ->")
		assert.False(t, outcome.Success)
		assert.Equal(t, 1, outcome.Attempts)
		assert.Contains(t, outcome.Err, "assistant failed to provide a fix")
		assert.Equal(t, "graph TD\nA -> ->", outcome.FixedCode, "best candidate is the last one evaluated")
		assert.Equal(t, 1, requester.calls, "no further requests after a decline")
	})

	t.Run("Second Correction Validates", func(t *testing.T) {
		validator := &scriptedValidator{verdicts: []oracle.Result{
			invalid("bad edge"),
			invalid("still bad"),
			valid(),
		}}
		requester := &scriptedRequester{corrections: []string{
			"almost fixed",
			"fully --&gt; fixed", // corrections get re-normalized before validation
		}}
		f := New(validator, requester)

		outcome := f.AutoFix(ctx, "broken")
		assert.True(t, outcome.Success)
		assert.Equal(t, 2, outcome.Attempts)
		assert.Equal(t, "fully --> fixed", outcome.FixedCode)
		assert.Equal(t, []int{1, 2}, requester.attempts, "attempt numbers are sequential")
	})

	t.Run("Budget Exhausted", func(t *testing.T) {
		validator := &scriptedValidator{verdicts: []oracle.Result{invalid("always broken")}}
		requester := &scriptedRequester{corrections: []string{"try one", "try two"}}
		f := New(validator, requester)

		outcome := f.AutoFix(ctx, "broken")
		assert.False(t, outcome.Success)
		assert.Equal(t, DefaultMaxAttempts, outcome.Attempts)
		assert.Contains(t, outcome.Err, "exhausted")
		assert.Contains(t, outcome.Err, "always broken")
		assert.Equal(t, "try two", outcome.FixedCode, "best candidate is the last correction evaluated")
		assert.Equal(t, DefaultMaxAttempts, requester.calls)
	})

	t.Run("Timeout Is Immediately Terminal", func(t *testing.T) {
		validator := &scriptedValidator{verdicts: []oracle.Result{invalid("broken")}}
		requester := &scriptedRequester{errs: []error{errors.New("fix request timed out waiting for assistant")}}
		f := New(validator, requester)

		outcome := f.AutoFix(ctx, "broken")
		assert.False(t, outcome.Success)
		assert.Equal(t, 1, outcome.Attempts)
		assert.Contains(t, outcome.Err, "timed out")
	})

	t.Run("Reported Candidate Is Always Normalized", func(t *testing.T) {
		// Whatever path the loop exits through, FixedCode must be a fixed
		// point of Normalize.
		cases := []struct {
			name      string
			validator *scriptedValidator
			requester *scriptedRequester
			input     string
		}{
			{
				name:      "success",
				validator: &scriptedValidator{verdicts: []oracle.Result{valid()}},
				requester: &scriptedRequester{},
				input:     "A --&gt; B",
			},
			{
				name:      "exhausted",
				validator: &scriptedValidator{verdicts: []oracle.Result{invalid("nope")}},
				requester: &scriptedRequester{corrections: []string{"X --&gt; Y", "Y --&gt; Z"}},
				input:     "A --&gt; B",
			},
			{
				name:      "declined",
				validator: &scriptedValidator{verdicts: []oracle.Result{invalid("nope")}},
				requester: &scriptedRequester{errs: []error{errors.New("declined")}},
				input:     "A --&gt; B ; B --&gt; C",
			},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				outcome := New(tc.validator, tc.requester).AutoFix(ctx, tc.input)
				assert.Equal(t, outcome.FixedCode, Normalize(outcome.FixedCode))
				assert.NotEmpty(t, outcome.FixedCode)
				assert.GreaterOrEqual(t, outcome.Attempts, 0)
				assert.LessOrEqual(t, outcome.Attempts, DefaultMaxAttempts)
			})
		}
	})

	t.Run("Custom Attempt Budget", func(t *testing.T) {
		validator := &scriptedValidator{verdicts: []oracle.Result{invalid("broken")}}
		requester := &scriptedRequester{corrections: []string{"a", "b", "c", "d"}}
		f := &Fixer{Validator: validator, Requester: requester, MaxAttempts: 3}

		outcome := f.AutoFix(ctx, "broken")
		assert.False(t, outcome.Success)
		assert.Equal(t, 3, outcome.Attempts)
		assert.Equal(t, 3, requester.calls)
	})
}

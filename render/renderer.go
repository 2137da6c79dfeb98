// package render drives the diagram rendering pipeline: it debounces source
// changes, asks the engine to render, hands invalid source to the fix loop
// at most once per authored value, and exposes a single view state to hosts.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panyam/vizfix/fixer"
	"github.com/panyam/vizfix/oracle"
)

// DefaultDebounce is the quiet period after the last source change before a
// render cycle starts.
const DefaultDebounce = 500 * time.Millisecond

// Phase is the renderer's externally visible state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseFixing
	PhaseRendered
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseFixing:
		return "fixing"
	case PhaseRendered:
		return "rendered"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ViewState is the renderer's complete externally visible state. Source is
// the authored text; Candidate is the working copy, which diverges from
// Source once an auto-fix has been applied.
type ViewState struct {
	Phase     Phase
	SVG       string
	ErrMsg    string
	AutoFixed bool
	Attempts  int
	Source    string
	Candidate string
}

// Listener receives every view state change.
type Listener func(ViewState)

// Renderer owns the render pipeline for one diagram. All its methods are
// safe for concurrent use; state is mutated only by the cycle that is still
// current (stale cycles check their generation token and discard).
type Renderer struct {
	engine   oracle.Oracle
	fixer    *fixer.Fixer
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	seq    atomic.Uint64 // render cycle generation
	nextID atomic.Uint64 // render ids handed to the engine

	mu           sync.Mutex
	state        ViewState
	source       string
	candidate    string
	fixedSources map[string]bool // authored values already given their one fix sequence
	fixingSeq    uint64          // cycle that owns the in-flight fix, 0 when none
	timer        *time.Timer
	listeners    []Listener

	wg sync.WaitGroup
}

// Option tweaks a Renderer at construction time.
type Option func(*Renderer)

// WithDebounce overrides the debounce quiet period.
func WithDebounce(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// NewRenderer creates a Renderer over the given engine and fix loop.
func NewRenderer(engine oracle.Oracle, fix *fixer.Fixer, opts ...Option) *Renderer {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Renderer{
		engine:       engine,
		fixer:        fix,
		debounce:     DefaultDebounce,
		ctx:          ctx,
		cancel:       cancel,
		fixedSources: make(map[string]bool),
		state:        ViewState{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers a listener for view state changes. Listeners are
// invoked synchronously, in registration order, outside the renderer lock.
func (r *Renderer) Subscribe(l Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// State returns the current view state.
func (r *Renderer) State() ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetSource records a new authored source value and schedules a debounced
// render cycle. A change arriving within the quiet period restarts the
// timer, so at most one cycle runs per settled value. The view state resets
// to loading immediately; any in-flight cycle is superseded.
func (r *Renderer) SetSource(text string) {
	r.mu.Lock()
	if text != r.source {
		r.source = text
		r.candidate = text
	}
	// An unchanged value keeps its working candidate, so a previously
	// applied auto-fix survives a re-submission of the same source.
	r.setStateLocked(ViewState{Phase: PhaseLoading, Source: text, Candidate: r.candidate})
	seq := r.seq.Add(1)
	if r.timer != nil && r.timer.Stop() {
		// The superseded cycle never fired and never will.
		r.wg.Done()
	}
	r.wg.Add(1)
	r.timer = time.AfterFunc(r.debounce, func() {
		defer r.wg.Done()
		r.runCycle(seq)
	})
	r.mu.Unlock()
	r.notify()
}

// Retry re-runs the fix loop from the original authored source. It is a
// no-op while the current cycle's fix is already in flight, so repeated
// triggers are safe; a fix left over from a superseded cycle does not block.
func (r *Renderer) Retry() {
	r.mu.Lock()
	if r.fixingSeq != 0 && r.isCurrent(r.fixingSeq) {
		r.mu.Unlock()
		slog.Debug("Ignoring retry, fix already in flight")
		return
	}
	source := r.source
	if source == "" {
		r.mu.Unlock()
		return
	}
	seq := r.seq.Add(1) // supersede any in-flight cycle
	r.fixingSeq = seq
	r.fixedSources[source] = true
	r.candidate = source
	r.setStateLocked(ViewState{Phase: PhaseFixing, Source: source, Candidate: source})
	r.mu.Unlock()
	r.notify()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		outcome := r.fixer.AutoFix(r.ctx, source)
		r.clearFix(seq)
		r.finishFix(seq, source, outcome)
	}()
}

// Close stops the debounce timer, cancels in-flight engine and assistant
// calls, and waits for all cycles to wind down.
func (r *Renderer) Close() {
	r.seq.Add(1) // anything still running is now stale
	r.mu.Lock()
	if r.timer != nil && r.timer.Stop() {
		r.wg.Done()
	}
	r.timer = nil
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}

func (r *Renderer) isCurrent(seq uint64) bool {
	return r.seq.Load() == seq
}

// runCycle attempts a direct render and falls back to the fix loop on the
// first failure of the authored source.
func (r *Renderer) runCycle(seq uint64) {
	if !r.isCurrent(seq) {
		return
	}
	r.mu.Lock()
	source := r.source
	candidate := r.candidate
	alreadyFixed := r.fixedSources[source]
	r.mu.Unlock()

	svg, err := r.engine.Render(r.ctx, r.renderID(), candidate)
	if err == nil {
		r.publish(seq, ViewState{
			Phase:     PhaseRendered,
			SVG:       svg,
			Source:    source,
			Candidate: candidate,
			AutoFixed: candidate != source,
		})
		return
	}

	if alreadyFixed {
		// This source already had its one fix sequence. Re-running it
		// against an assistant that could not fix it would loop forever.
		r.publish(seq, ViewState{
			Phase:     PhaseError,
			ErrMsg:    err.Error(),
			Source:    source,
			Candidate: candidate,
			AutoFixed: candidate != source,
		})
		return
	}

	r.mu.Lock()
	if !r.isCurrent(seq) {
		r.mu.Unlock()
		return
	}
	// A fix still in flight for a superseded value does not block this
	// cycle; its outcome is discarded when it settles.
	r.fixingSeq = seq
	r.fixedSources[source] = true
	r.setStateLocked(ViewState{Phase: PhaseFixing, Source: source, Candidate: candidate})
	r.mu.Unlock()
	r.notify()

	outcome := r.fixer.AutoFix(r.ctx, candidate)
	r.clearFix(seq)
	r.finishFix(seq, source, outcome)
}

// clearFix releases the fix-in-flight claim, unless a newer cycle has
// already claimed it for itself.
func (r *Renderer) clearFix(seq uint64) {
	r.mu.Lock()
	if r.fixingSeq == seq {
		r.fixingSeq = 0
	}
	r.mu.Unlock()
}

// finishFix applies a fix outcome, re-rendering on success, surfacing the
// terminal error otherwise. Outcomes from superseded cycles are discarded.
func (r *Renderer) finishFix(seq uint64, source string, outcome fixer.Outcome) {
	if !outcome.Success {
		r.publish(seq, ViewState{
			Phase:     PhaseError,
			ErrMsg:    outcome.Err,
			Source:    source,
			Candidate: outcome.FixedCode,
			AutoFixed: outcome.FixedCode != source,
			Attempts:  outcome.Attempts,
		})
		return
	}

	r.mu.Lock()
	if !r.isCurrent(seq) {
		r.mu.Unlock()
		slog.Debug("Discarding stale fix outcome", "seq", seq)
		return
	}
	r.candidate = outcome.FixedCode
	r.mu.Unlock()

	svg, err := r.engine.Render(r.ctx, r.renderID(), outcome.FixedCode)
	if err != nil {
		// Parse accepted the candidate but the render stage did not.
		r.publish(seq, ViewState{
			Phase:     PhaseError,
			ErrMsg:    err.Error(),
			Source:    source,
			Candidate: outcome.FixedCode,
			AutoFixed: outcome.FixedCode != source,
			Attempts:  outcome.Attempts,
		})
		return
	}
	r.publish(seq, ViewState{
		Phase:     PhaseRendered,
		SVG:       svg,
		Source:    source,
		Candidate: outcome.FixedCode,
		AutoFixed: outcome.FixedCode != source,
		Attempts:  outcome.Attempts,
	})
}

func (r *Renderer) renderID() string {
	return fmt.Sprintf("viz-%d", r.nextID.Add(1))
}

// publish writes a view state on behalf of cycle seq. The generation check
// happens under the same lock as the write, so a cycle superseded after
// producing its result can never overwrite the newer cycle's state.
func (r *Renderer) publish(seq uint64, state ViewState) {
	r.mu.Lock()
	if !r.isCurrent(seq) {
		r.mu.Unlock()
		slog.Debug("Discarding stale cycle result", "seq", seq)
		return
	}
	r.setStateLocked(state)
	r.mu.Unlock()
	r.notify()
}

func (r *Renderer) setStateLocked(state ViewState) {
	r.state = state
	slog.Debug("View state changed", "phase", state.Phase.String(), "auto_fixed", state.AutoFixed)
}

func (r *Renderer) notify() {
	r.mu.Lock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	state := r.state
	r.mu.Unlock()
	for _, l := range listeners {
		l(state)
	}
}

package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/huquq-center/insaf/internal/observability"
)

// SchemaVersion tags persisted wizard state. Any mismatch on load wipes
// the stored state; there is no migration path, only discard.
const SchemaVersion = 1

const draftKey = "case_draft"

var (
	// ErrStepBlocked reports that the current step failed validation and
	// cannot be left forward.
	ErrStepBlocked = errors.New("wizard: current step has validation errors")
	// ErrStepNotReachable reports a jump to a step that gating does not
	// allow.
	ErrStepNotReachable = errors.New("wizard: step not reachable")
)

type persistedState struct {
	Version  int               `json:"version"`
	Draft    Draft             `json:"draft"`
	Progress persistedProgress `json:"progress"`
}

type persistedProgress struct {
	CurrentStep    int              `json:"current_step"`
	CompletedSteps []int            `json:"completed_steps"`
	ErrorSteps     []int            `json:"error_steps"`
	ErrorSummaries map[int][]string `json:"error_summaries,omitempty"`
}

// Engine is the wizard state machine: the draft, the active step, and
// per-step completion and error bookkeeping. Every mutation persists the
// full state; persistence failures are absorbed by the store.
type Engine struct {
	mu      sync.Mutex
	store   Store
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	draft          Draft
	current        int
	completed      map[int]bool
	errorSteps     map[int]bool
	errorSummaries map[int][]string
}

// NewEngine restores wizard state from the store, falling back to
// defaults when nothing usable is persisted.
func NewEngine(store Store, logger *zap.Logger, metrics *observability.Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		store:          store,
		logger:         logger,
		metrics:        metrics,
		now:            time.Now,
		draft:          NewDraft(),
		current:        1,
		completed:      make(map[int]bool),
		errorSteps:     make(map[int]bool),
		errorSummaries: make(map[int][]string),
	}
	e.restore()
	return e
}

// restore loads persisted state. A version mismatch, unparseable payload,
// or a draft missing any expected section discards the stored state
// entirely and keeps the defaults.
func (e *Engine) restore() {
	data, ok := e.store.Get(draftKey)
	if !ok {
		return
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		e.discardStored("unparseable persisted draft", zap.Error(err))
		return
	}
	if state.Version != SchemaVersion {
		e.discardStored("persisted draft version mismatch",
			zap.Int("stored", state.Version),
			zap.Int("expected", SchemaVersion),
		)
		return
	}
	for _, name := range SectionOrder {
		if _, ok := state.Draft[name]; !ok {
			e.discardStored("persisted draft missing section", zap.String("section", name))
			return
		}
	}

	// Merge stored sections over defaults so fields added since the draft
	// was written still carry their defaults. Only values matching the
	// draft's scalar model are taken.
	for _, name := range SectionOrder {
		for k, v := range state.Draft[name] {
			switch v.(type) {
			case string, bool, nil:
				e.draft[name][k] = v
			}
		}
	}

	e.current = clampStep(state.Progress.CurrentStep)
	for _, n := range state.Progress.CompletedSteps {
		if n >= 1 && n <= StepCount {
			e.completed[n] = true
		}
	}
	for _, n := range state.Progress.ErrorSteps {
		if n >= 1 && n <= StepCount {
			e.errorSteps[n] = true
		}
	}
	for n, msgs := range state.Progress.ErrorSummaries {
		if n >= 1 && n <= StepCount {
			e.errorSummaries[n] = msgs
		}
	}
}

func (e *Engine) discardStored(reason string, fields ...zap.Field) {
	e.logger.Warn(reason, fields...)
	e.store.Remove(draftKey)
	if e.metrics != nil {
		e.metrics.DraftsDiscardedTotal.Inc()
	}
}

func clampStep(n int) int {
	if n < 1 {
		return 1
	}
	if n > StepCount {
		return StepCount
	}
	return n
}

// persist writes the full state under the schema version tag. Called with
// the lock held.
func (e *Engine) persist() {
	state := persistedState{
		Version: SchemaVersion,
		Draft:   e.draft,
		Progress: persistedProgress{
			CurrentStep:    e.current,
			CompletedSteps: sortedSteps(e.completed),
			ErrorSteps:     sortedSteps(e.errorSteps),
			ErrorSummaries: e.errorSummaries,
		},
	}
	data, err := json.Marshal(state)
	if err != nil {
		e.logger.Warn("wizard state marshal failed", zap.Error(err))
		return
	}
	e.store.Set(draftKey, data)
}

func sortedSteps(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Draft returns a copy of the current draft.
func (e *Engine) Draft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone()
}

// CurrentStep returns the active step number.
func (e *Engine) CurrentStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// CompletedSteps returns the completed step numbers in order.
func (e *Engine) CompletedSteps() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sortedSteps(e.completed)
}

// Completed reports whether step n has been completed.
func (e *Engine) Completed(n int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed[n]
}

// ErrorSteps returns the steps flagged by the last applyValidationErrors
// call, in order.
func (e *Engine) ErrorSteps() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sortedSteps(e.errorSteps)
}

// ErrorSummary returns the recorded messages for step n.
func (e *Engine) ErrorSummary(n int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.errorSummaries[n]...)
}

// UpdateSection shallow-merges partial into the named section and reports
// whether anything changed. An identical merge is a no-op and does not
// touch persisted state. Address fields are reconciled: a governorate
// change clears the city, a city change clears the district.
func (e *Engine) UpdateSection(section string, partial map[string]any) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sec, ok := e.draft[section]
	if !ok {
		return false, fmt.Errorf("wizard: unknown section %q", section)
	}

	keys, hasAddr := addressKeys[section]
	var before Section
	if hasAddr {
		before = make(Section, len(sec))
		for k, v := range sec {
			before[k] = v
		}
	}

	if !mergeSection(sec, partial) {
		return false, nil
	}
	if hasAddr {
		reconcileAddress(sec, before, partial, keys)
	}
	e.persist()
	return true, nil
}

// ValidateStep runs step n's rule set against the current draft.
func (e *Engine) ValidateStep(n int) StepResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateLocked(n)
}

func (e *Engine) validateLocked(n int) StepResult {
	res := ValidateStep(n, e.draft, e.now())
	if !res.Valid && e.metrics != nil {
		e.metrics.WizardValidationFails.WithLabelValues(strconv.Itoa(n)).Inc()
	}
	return res
}

// CanAdvance reports whether step n currently passes validation.
func (e *Engine) CanAdvance(n int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateLocked(n).Valid
}

// GoNext advances to the next step. The current step must pass validation
// and is marked complete by the transition.
func (e *Engine) GoNext() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current >= StepCount {
		return ErrStepNotReachable
	}
	if !e.validateLocked(e.current).Valid {
		return ErrStepBlocked
	}
	e.markCompletedLocked(e.current)
	e.current++
	e.noteTransition("next")
	e.persist()
	return nil
}

// GoPrevious steps back. At the first step it is a no-op.
func (e *Engine) GoPrevious() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current <= 1 {
		return nil
	}
	e.current--
	e.noteTransition("previous")
	e.persist()
	return nil
}

// GoToStep jumps to step n. Allowed only when n is already completed, is
// the current step, or is the immediate next step with the current one
// passing validation. Skipping past unvalidated steps is never possible.
func (e *Engine) GoToStep(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n < 1 || n > StepCount {
		return ErrStepNotReachable
	}
	switch {
	case e.completed[n], n == e.current:
	case n == e.current+1 && e.validateLocked(e.current).Valid:
		e.markCompletedLocked(e.current)
	default:
		return ErrStepNotReachable
	}
	e.current = n
	e.noteTransition("goto")
	e.persist()
	return nil
}

// MarkCompleted records step n as complete after re-validating it.
// Completing a step heals any recorded error state for it.
func (e *Engine) MarkCompleted(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n < 1 || n > StepCount {
		return ErrStepNotReachable
	}
	if !e.validateLocked(n).Valid {
		return ErrStepBlocked
	}
	e.markCompletedLocked(n)
	e.persist()
	return nil
}

func (e *Engine) markCompletedLocked(n int) {
	e.completed[n] = true
	delete(e.errorSteps, n)
	delete(e.errorSummaries, n)
}

// ApplyValidationErrors replaces the error bookkeeping wholesale, as
// produced by a global re-validation before final submission. When any
// step is flagged, the wizard jumps to the lowest-numbered one.
func (e *Engine) ApplyValidationErrors(steps []int, summaries map[int][]string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errorSteps = make(map[int]bool)
	e.errorSummaries = make(map[int][]string)
	lowest := 0
	for _, n := range steps {
		if n < 1 || n > StepCount {
			continue
		}
		e.errorSteps[n] = true
		if msgs, ok := summaries[n]; ok {
			e.errorSummaries[n] = msgs
		}
		if lowest == 0 || n < lowest {
			lowest = n
		}
	}
	if lowest != 0 {
		e.current = lowest
		e.noteTransition("error_jump")
	}
	e.persist()
}

// Reset restores the draft and progress to defaults and purges persisted
// state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.draft = NewDraft()
	e.current = 1
	e.completed = make(map[int]bool)
	e.errorSteps = make(map[int]bool)
	e.errorSummaries = make(map[int][]string)
	e.store.Remove(draftKey)
}

func (e *Engine) noteTransition(direction string) {
	if e.metrics != nil {
		e.metrics.WizardTransitionsTotal.WithLabelValues(direction).Inc()
	}
	e.logger.Debug("wizard step transition",
		zap.String("direction", direction),
		zap.Int("step", e.current),
	)
}

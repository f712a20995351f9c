package report

import "errors"

// ErrNoReport is returned by Update when Init was never called
var ErrNoReport = errors.New("no report loaded")

// Engine owns the report being edited and its linear undo/redo history.
// Every committed state has fresh derived fields, so travelling through
// history never needs to recompute anything.
//
// Engine is not safe for concurrent use.
type Engine struct {
	current *DailyReport
	past    []DailyReport
	future  []DailyReport // last element is the next redo
	limit   int
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithHistoryLimit caps the number of undo steps kept. The oldest step is
// dropped once the cap is reached. n <= 0 keeps history for the whole session.
func WithHistoryLimit(n int) EngineOption {
	return func(e *Engine) {
		e.limit = n
	}
}

// NewEngine creates an empty Engine
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init replaces the current report and clears history. It is not undoable.
func (e *Engine) Init(r DailyReport) {
	r = r.clone()
	e.current = &r
	e.past = nil
	e.future = nil
}

// Update merges c over the current report, recomputes totals and the share
// message, and commits the result as a new history step.
func (e *Engine) Update(c Changes) error {
	if e.current == nil {
		return ErrNoReport
	}
	next := derive(c.apply(*e.current))

	e.past = append(e.past, *e.current)
	if e.limit > 0 && len(e.past) > e.limit {
		e.past = e.past[len(e.past)-e.limit:]
	}
	e.future = nil
	e.current = &next
	return nil
}

// Undo restores the previous state. It returns false when there is nothing to undo.
func (e *Engine) Undo() bool {
	if len(e.past) == 0 {
		return false
	}
	prev := e.past[len(e.past)-1]
	e.past = e.past[:len(e.past)-1]
	e.future = append(e.future, *e.current)
	e.current = &prev
	return true
}

// Redo re-applies the most recently undone state. It returns false when there is nothing to redo.
func (e *Engine) Redo() bool {
	if len(e.future) == 0 {
		return false
	}
	next := e.future[len(e.future)-1]
	e.future = e.future[:len(e.future)-1]
	e.past = append(e.past, *e.current)
	e.current = &next
	return true
}

// CanUndo reports whether Undo would change the state
func (e *Engine) CanUndo() bool {
	return len(e.past) > 0
}

// CanRedo reports whether Redo would change the state
func (e *Engine) CanRedo() bool {
	return len(e.future) > 0
}

// State returns a copy of the current report and whether one is loaded
func (e *Engine) State() (DailyReport, bool) {
	if e.current == nil {
		return DailyReport{}, false
	}
	return e.current.clone(), true
}

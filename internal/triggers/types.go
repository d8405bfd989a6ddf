package triggers

import (
	"errors"
	"time"
)

// Timing declares which dispatch phase a binding participates in, relative
// to the business operation that raised the action. The engine does not
// enforce call-site sequencing; callers raise the phases they support.
type Timing string

const (
	TimingBefore  Timing = "BEFORE"
	TimingAfter   Timing = "AFTER"
	TimingInstead Timing = "INSTEAD"
)

// Valid reports whether t is a recognized timing phase.
func (t Timing) Valid() bool {
	return t == TimingBefore || t == TimingAfter || t == TimingInstead
}

// Binding connects one action definition to one externally-managed workflow.
// Multiple bindings may target the same action/workflow pair, e.g. with
// different conditions or timings.
type Binding struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflow_id"`
	ActionKey  string     `json:"action_key"`
	Timing     Timing     `json:"timing"`
	Condition  *Condition `json:"condition,omitempty"`
	Priority   int        `json:"priority"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// set when the stored condition could not be parsed; such a binding
	// never fires (structural errors fail closed).
	invalidCondition bool
}

// ConditionMatches evaluates the binding's condition against the dispatch
// context. A binding whose stored condition is malformed never matches.
func (b *Binding) ConditionMatches(context map[string]any) bool {
	if b.invalidCondition {
		return false
	}
	return b.Condition.Matches(context)
}

// Update carries a partial update for a binding. Nil fields are left
// unchanged. SetCondition distinguishes "leave the condition alone" from
// "replace it" (with Condition == nil meaning "remove it").
type Update struct {
	Timing       *Timing
	Priority     *int
	Condition    *Condition
	SetCondition bool
}

var (
	// ErrNotFound is returned when no binding exists for an id.
	ErrNotFound = errors.New("trigger not found")
	// ErrUnknownWorkflow is returned when the referenced workflow does not
	// exist in the workflow catalog.
	ErrUnknownWorkflow = errors.New("workflow not found")
	// ErrUnknownAction is returned when the referenced action key is not
	// registered.
	ErrUnknownAction = errors.New("action not found")
	// ErrInvalidTiming is returned for timing values outside the known set.
	ErrInvalidTiming = errors.New("invalid trigger timing")
)

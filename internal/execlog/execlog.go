// Package execlog records every dispatch attempt, successful or not, and
// answers aggregate queries over the recorded history. Entries are written
// once by the dispatcher and never updated; they deliberately reference
// actions by key rather than foreign key, so history survives a later
// deletion of the definition.
package execlog

import "time"

// Entry is one immutable audit record for a single dispatch.
type Entry struct {
	ID                  string         `json:"id"`
	ActionKey           string         `json:"action_key"`
	UserID              string         `json:"user_id,omitempty"`
	Context             map[string]any `json:"context"`
	Success             bool           `json:"success"`
	ErrorMessage        string         `json:"error_message,omitempty"`
	TriggeredWorkflows  []string       `json:"triggered_workflows"`
	ExecutionTimeMillis int64          `json:"execution_time_ms"`
	CreatedAt           time.Time      `json:"created_at"`
}

// Statistics summarises dispatch outcomes for one action key, or for all
// actions when no key is given.
type Statistics struct {
	Total               int64   `json:"total"`
	Successful          int64   `json:"successful"`
	Failed              int64   `json:"failed"`
	SuccessRate         float64 `json:"success_rate"`
	AvgExecutionTimeMil float64 `json:"avg_execution_time_ms"`
}

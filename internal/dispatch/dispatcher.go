// Package dispatch is the orchestration entry point of the trigger engine.
// Business code raises an action key with a context payload; the dispatcher
// resolves the matching trigger bindings, starts workflows for the ones
// whose conditions hold, and records exactly one audit entry per call.
//
// Raise never returns an error and never panics: event dispatch runs as a
// side effect of unrelated business transactions, and those transactions
// must not fail because of automation plumbing.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cflux-app/actiond/internal/actions"
	"github.com/cflux-app/actiond/internal/execlog"
	"github.com/cflux-app/actiond/internal/triggers"
	"github.com/cflux-app/actiond/internal/workflows"
)

// Publisher is the optional event fan-out hook. Publish failures are logged
// and otherwise ignored.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Result summarises one dispatch. A failed result carries the error as
// data; it is never surfaced as a Go error.
type Result struct {
	Success             bool     `json:"success"`
	Message             string   `json:"message,omitempty"`
	Error               string   `json:"error,omitempty"`
	WorkflowInstanceIDs []string `json:"workflow_instance_ids"`
	ExecutionTimeMillis int64    `json:"execution_time_ms"`
}

// Dispatcher resolves and executes trigger bindings for raised actions. It
// is stateless between calls and safe for concurrent use.
type Dispatcher struct {
	actions  *actions.Store
	triggers *triggers.Store
	logs     *execlog.Store
	launcher workflows.Launcher

	// Events, when set, receives a JSON summary of every completed
	// dispatch on "actions.dispatched.<actionKey>".
	Events Publisher
	// Hub, when set, receives every written log entry for live streaming.
	Hub *execlog.Hub
}

// New creates a Dispatcher over the given stores and workflow launcher.
func New(actionStore *actions.Store, triggerStore *triggers.Store, logStore *execlog.Store, launcher workflows.Launcher) *Dispatcher {
	return &Dispatcher{
		actions:  actionStore,
		triggers: triggerStore,
		logs:     logStore,
		launcher: launcher,
	}
}

// Raise dispatches the action identified by actionKey for the given timing
// phase. The timing defaults to AFTER. The returned result reports which
// workflow instances were started; callers should log a failed result but
// must not roll back their own work because of it.
func (d *Dispatcher) Raise(ctx context.Context, actionKey string, actionCtx map[string]any, timing triggers.Timing) (res Result) {
	start := time.Now()
	if timing == "" {
		timing = triggers.TimingAfter
	}
	triggered := []string{}

	// The no-throw contract holds even against a panicking collaborator.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatch: panic raising %s: %v", actionKey, r)
			res = d.finish(ctx, actionKey, actionCtx, start, triggered,
				false, fmt.Sprintf("panic: %v", r), "")
		}
	}()

	def, err := d.actions.GetByKey(ctx, actionKey)
	if err != nil {
		if errors.Is(err, actions.ErrNotFound) {
			log.Printf("dispatch: action not found: %s", actionKey)
			return d.finish(ctx, actionKey, actionCtx, start, triggered, false, "action not found", "")
		}
		log.Printf("dispatch: looking up %s: %v", actionKey, err)
		return d.finish(ctx, actionKey, actionCtx, start, triggered, false, err.Error(), "")
	}

	if !def.IsActive {
		return d.finish(ctx, actionKey, actionCtx, start, triggered, true, "", "action inactive")
	}

	bindings, err := d.triggers.ListForDispatch(ctx, actionKey, timing)
	if err != nil {
		log.Printf("dispatch: resolving triggers for %s: %v", actionKey, err)
		return d.finish(ctx, actionKey, actionCtx, start, triggered, false, err.Error(), "")
	}

	entityType, _ := actionCtx["entityType"].(string)
	entityID, _ := actionCtx["entityId"].(string)

	for i := range bindings {
		binding := &bindings[i]

		if !binding.ConditionMatches(actionCtx) {
			continue
		}

		if entityType == "" || entityID == "" {
			log.Printf("dispatch: missing entityType or entityId for workflow %s", binding.WorkflowID)
			continue
		}

		instance, err := d.launcher.CreateInstance(ctx, binding.WorkflowID, entityID, entityType)
		if err != nil {
			// One bad binding must not stop the rest.
			log.Printf("dispatch: starting workflow %s: %v", binding.WorkflowID, err)
			continue
		}
		triggered = append(triggered, instance.ID)
	}

	return d.finish(ctx, actionKey, actionCtx, start, triggered, true, "", "")
}

// finish writes the audit entry, notifies fan-out hooks and builds the
// result. Every Raise call ends here exactly once.
func (d *Dispatcher) finish(ctx context.Context, actionKey string, actionCtx map[string]any, start time.Time, triggered []string, success bool, errMsg, message string) Result {
	elapsed := time.Since(start).Milliseconds()
	userID, _ := actionCtx["userId"].(string)

	entry := execlog.Entry{
		ActionKey:           actionKey,
		UserID:              userID,
		Context:             actionCtx,
		Success:             success,
		ErrorMessage:        errMsg,
		TriggeredWorkflows:  triggered,
		ExecutionTimeMillis: elapsed,
	}

	if saved, err := d.logs.Insert(ctx, entry); err != nil {
		// Best effort: a dead store must not surface here.
		log.Printf("dispatch: writing log entry for %s: %v", actionKey, err)
	} else {
		entry = *saved
		if d.Hub != nil {
			d.Hub.Broadcast(entry)
		}
	}

	if d.Events != nil {
		if err := d.Events.Publish(ctx, "actions.dispatched."+actionKey, entry); err != nil {
			log.Printf("dispatch: publishing %s: %v", actionKey, err)
		}
	}

	return Result{
		Success:             success,
		Message:             message,
		Error:               errMsg,
		WorkflowInstanceIDs: triggered,
		ExecutionTimeMillis: elapsed,
	}
}

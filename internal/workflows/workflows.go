// Package workflows defines the ports to the external workflow service.
// The trigger engine only ever asks two things of it: whether a workflow
// definition exists, and to start an instance of one. Execution semantics
// live entirely on the other side of these interfaces.
package workflows

import "context"

// Instance is a running workflow instance created for a dispatched action.
type Instance struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	EntityID   string `json:"entity_id"`
	EntityType string `json:"entity_type"`
}

// Catalog answers existence checks against the workflow catalog. It is
// consulted only when a trigger binding is created, never at dispatch time.
type Catalog interface {
	Exists(ctx context.Context, workflowID string) (bool, error)
}

// Launcher creates workflow instances. Failures are expected and are
// isolated per binding by the dispatcher.
type Launcher interface {
	CreateInstance(ctx context.Context, workflowID, entityID, entityType string) (*Instance, error)
}

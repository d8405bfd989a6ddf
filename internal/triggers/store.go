package triggers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cflux-app/actiond/internal/actions"
	"github.com/cflux-app/actiond/internal/db"
	"github.com/cflux-app/actiond/internal/workflows"
)

// Store provides CRUD operations for trigger bindings.
type Store struct {
	db      *db.DB
	actions *actions.Store
	catalog workflows.Catalog
}

// NewStore creates a Store backed by the given database. The actions store
// and workflow catalog are consulted at binding creation time to validate
// referential integrity; neither is re-checked at dispatch time.
func NewStore(database *db.DB, actionStore *actions.Store, catalog workflows.Catalog) *Store {
	return &Store{db: database, actions: actionStore, catalog: catalog}
}

// Create inserts a new binding after validating that both the referenced
// workflow and action exist. Timing defaults to AFTER, priority to 100.
func (s *Store) Create(ctx context.Context, b Binding) (*Binding, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Timing == "" {
		b.Timing = TimingAfter
	}
	if !b.Timing.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTiming, b.Timing)
	}
	if b.Priority == 0 {
		b.Priority = 100
	}

	exists, err := s.catalog.Exists(ctx, b.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("checking workflow %q: %w", b.WorkflowID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorkflow, b.WorkflowID)
	}

	if _, err := s.actions.GetByKey(ctx, b.ActionKey); err != nil {
		if errors.Is(err, actions.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, b.ActionKey)
		}
		return nil, fmt.Errorf("checking action %q: %w", b.ActionKey, err)
	}

	condJSON, err := marshalCondition(b.Condition)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.IsActive = true

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO triggers (
			id, workflow_id, action_key, timing, condition,
			priority, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.WorkflowID,
		b.ActionKey,
		string(b.Timing),
		condJSON,
		b.Priority,
		1,
		now.Format(time.DateTime),
		now.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting trigger: %w", err)
	}
	return &b, nil
}

// GetByID retrieves a single binding.
func (s *Store) GetByID(ctx context.Context, id string) (*Binding, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM triggers WHERE id = ?", id)

	b, err := scanBinding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying trigger %q: %w", id, err)
	}
	return b, nil
}

// ListByWorkflow returns all bindings pointing at the given workflow,
// ordered by ascending priority.
func (s *Store) ListByWorkflow(ctx context.Context, workflowID string) ([]Binding, error) {
	return s.list(ctx, "WHERE workflow_id = ?", workflowID)
}

// ListByAction returns all active bindings for the given action key,
// ordered by ascending priority with creation-order tie-break.
func (s *Store) ListByAction(ctx context.Context, actionKey string) ([]Binding, error) {
	return s.list(ctx, "WHERE action_key = ? AND is_active = 1", actionKey)
}

// ListForDispatch returns the active bindings the dispatcher must evaluate
// for one action/timing pair, in evaluation order.
func (s *Store) ListForDispatch(ctx context.Context, actionKey string, timing Timing) ([]Binding, error) {
	return s.list(ctx, "WHERE action_key = ? AND timing = ? AND is_active = 1", actionKey, string(timing))
}

func (s *Store) list(ctx context.Context, where string, args ...any) ([]Binding, error) {
	query := selectColumns + " FROM triggers " + where +
		" ORDER BY priority ASC, created_at ASC, rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing triggers: %w", err)
	}
	defer rows.Close()

	var bindings []Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, *b)
	}
	return bindings, rows.Err()
}

// Update applies a partial update to a binding and returns the result.
func (s *Store) Update(ctx context.Context, id string, upd Update) (*Binding, error) {
	var (
		sets []string
		args []any
	)

	if upd.Timing != nil {
		if !upd.Timing.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTiming, *upd.Timing)
		}
		sets = append(sets, "timing = ?")
		args = append(args, string(*upd.Timing))
	}
	if upd.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *upd.Priority)
	}
	if upd.SetCondition {
		condJSON, err := marshalCondition(upd.Condition)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "condition = ?")
		args = append(args, condJSON)
	}

	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.DateTime))
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE triggers SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating trigger %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// Delete removes a binding.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM triggers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting trigger %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive enables or disables a binding. Disabled bindings are excluded
// from dispatch resolution but retained for history.
func (s *Store) SetActive(ctx context.Context, id string, active bool) (*Binding, error) {
	activeInt := 0
	if active {
		activeInt = 1
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE triggers SET is_active = ?, updated_at = ? WHERE id = ?",
		activeInt, time.Now().UTC().Format(time.DateTime), id)
	if err != nil {
		return nil, fmt.Errorf("toggling trigger %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

const selectColumns = `SELECT id, workflow_id, action_key, timing, condition,
	priority, is_active, created_at, updated_at`

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBinding(sc scanner) (*Binding, error) {
	var (
		b                    Binding
		timing               string
		condJSON             sql.NullString
		isActive             int
		createdAt, updatedAt string
	)

	err := sc.Scan(
		&b.ID, &b.WorkflowID, &b.ActionKey, &timing, &condJSON,
		&b.Priority, &isActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Timing = Timing(timing)
	b.IsActive = isActive != 0
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)

	if condJSON.Valid && condJSON.String != "" {
		cond, err := ParseCondition(condJSON.String)
		if err != nil {
			b.invalidCondition = true
		} else {
			b.Condition = cond
		}
	}

	return &b, nil
}

func marshalCondition(c *Condition) (sql.NullString, error) {
	if c == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling condition: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

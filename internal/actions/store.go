package actions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cflux-app/actiond/internal/db"
)

// Store provides CRUD operations for action definitions.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new definition. If def.ID is empty a UUID is generated.
// The category defaults to custom when unset.
func (s *Store) Create(ctx context.Context, def Definition) (*Definition, error) {
	if def.ID == "" {
		def.ID = uuid.New().String()
	}
	if def.Key == "" {
		return nil, fmt.Errorf("action key is required")
	}
	if def.Category == "" {
		def.Category = CategoryCustom
	}
	if !def.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, def.Category)
	}

	var schemaJSON sql.NullString
	if def.ContextSchema != nil {
		data, err := json.Marshal(def.ContextSchema)
		if err != nil {
			return nil, fmt.Errorf("marshalling context schema: %w", err)
		}
		schemaJSON = sql.NullString{String: string(data), Valid: true}
	}

	now := time.Now().UTC()
	def.CreatedAt = now
	def.UpdatedAt = now
	def.IsActive = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO actions (
			id, action_key, display_name, description, category,
			context_schema, is_active, is_system, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID,
		def.Key,
		def.DisplayName,
		def.Description,
		string(def.Category),
		schemaJSON,
		boolToInt(def.IsActive),
		boolToInt(def.IsSystem),
		now.Format(time.DateTime),
		now.Format(time.DateTime),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, def.Key)
		}
		return nil, fmt.Errorf("inserting action: %w", err)
	}
	return &def, nil
}

// GetByKey retrieves a single definition by its action key.
func (s *Store) GetByKey(ctx context.Context, key string) (*Definition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, action_key, display_name, description, category,
		       context_schema, is_active, is_system, created_at, updated_at
		FROM actions WHERE action_key = ?`, key)

	def, err := scanDefinition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying action %q: %w", key, err)
	}
	return def, nil
}

// ListFilter controls which definitions are returned by List.
type ListFilter struct {
	Category Category
	IsActive *bool
}

// List returns definitions matching the filter, ordered by category then
// display name.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Definition, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.IsActive != nil {
		clauses = append(clauses, "is_active = ?")
		args = append(args, boolToInt(*filter.IsActive))
	}

	query := `SELECT id, action_key, display_name, description, category,
		context_schema, is_active, is_system, created_at, updated_at FROM actions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY category ASC, display_name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

// Update applies a partial metadata update to the definition with the given
// key and returns the updated definition. The key itself is immutable.
func (s *Store) Update(ctx context.Context, key string, upd Update) (*Definition, error) {
	var (
		sets []string
		args []any
	)

	if upd.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *upd.DisplayName)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Category != nil {
		if !upd.Category.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, *upd.Category)
		}
		sets = append(sets, "category = ?")
		args = append(args, string(*upd.Category))
	}
	if upd.ContextSchema != nil {
		data, err := json.Marshal(upd.ContextSchema)
		if err != nil {
			return nil, fmt.Errorf("marshalling context schema: %w", err)
		}
		sets = append(sets, "context_schema = ?")
		args = append(args, string(data))
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolToInt(*upd.IsActive))
	}

	if len(sets) == 0 {
		return s.GetByKey(ctx, key)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.DateTime))
	args = append(args, key)

	res, err := s.db.ExecContext(ctx,
		"UPDATE actions SET "+strings.Join(sets, ", ")+" WHERE action_key = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating action %q: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByKey(ctx, key)
}

// Delete removes a definition. Built-in (system) definitions are protected
// and cannot be deleted.
func (s *Store) Delete(ctx context.Context, key string) error {
	def, err := s.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	if def.IsSystem {
		return ErrSystemAction
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM actions WHERE action_key = ?", key); err != nil {
		return fmt.Errorf("deleting action %q: %w", key, err)
	}
	return nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDefinition(sc scanner) (*Definition, error) {
	var (
		def                  Definition
		category             string
		schemaJSON           sql.NullString
		isActive, isSystem   int
		createdAt, updatedAt string
	)

	err := sc.Scan(
		&def.ID, &def.Key, &def.DisplayName, &def.Description, &category,
		&schemaJSON, &isActive, &isSystem, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	def.Category = Category(category)
	def.IsActive = isActive != 0
	def.IsSystem = isSystem != 0
	def.CreatedAt = parseTime(createdAt)
	def.UpdatedAt = parseTime(updatedAt)

	if schemaJSON.Valid && schemaJSON.String != "" {
		if err := json.Unmarshal([]byte(schemaJSON.String), &def.ContextSchema); err != nil {
			def.ContextSchema = nil
		}
	}

	return &def, nil
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

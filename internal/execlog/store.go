package execlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cflux-app/actiond/internal/db"
)

// Store provides append and query operations for execution log entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Insert appends a new entry. If entry.ID is empty a UUID is generated.
// A failed entry must carry an error message.
func (s *Store) Insert(ctx context.Context, entry Entry) (*Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if !entry.Success && entry.ErrorMessage == "" {
		return nil, fmt.Errorf("failed entry requires an error message")
	}

	contextJSON, err := json.Marshal(entry.Context)
	if err != nil {
		return nil, fmt.Errorf("marshalling context snapshot: %w", err)
	}

	if entry.TriggeredWorkflows == nil {
		entry.TriggeredWorkflows = []string{}
	}
	triggeredJSON, err := json.Marshal(entry.TriggeredWorkflows)
	if err != nil {
		return nil, fmt.Errorf("marshalling triggered workflows: %w", err)
	}

	var userID, errMsg sql.NullString
	if entry.UserID != "" {
		userID = sql.NullString{String: entry.UserID, Valid: true}
	}
	if entry.ErrorMessage != "" {
		errMsg = sql.NullString{String: entry.ErrorMessage, Valid: true}
	}

	entry.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO action_logs (
			id, action_key, user_id, context_data, success,
			error_message, triggered_workflows, execution_time_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActionKey,
		userID,
		string(contextJSON),
		boolToInt(entry.Success),
		errMsg,
		string(triggeredJSON),
		entry.ExecutionTimeMillis,
		entry.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting log entry: %w", err)
	}
	return &entry, nil
}

// ListFilter controls which entries are returned by List.
type ListFilter struct {
	ActionKey string
	UserID    string
	Success   *bool
	Limit     int
	Offset    int
}

// Page is one page of log entries plus the total match count.
type Page struct {
	Entries []Entry `json:"logs"`
	Total   int64   `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// List returns entries matching the filter, newest first. The default page
// size is 50.
func (s *Store) List(ctx context.Context, filter ListFilter) (*Page, error) {
	where, args := filterClauses(filter)

	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM action_logs"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting log entries: %w", err)
	}

	query := `SELECT id, action_key, user_id, context_data, success,
		error_message, triggered_workflows, execution_time_ms, created_at
		FROM action_logs` + where +
		" ORDER BY created_at DESC, rowid DESC" +
		fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying log entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Page{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// Statistics aggregates outcomes over all entries, or over one action key
// when actionKey is non-empty.
func (s *Store) Statistics(ctx context.Context, actionKey string) (*Statistics, error) {
	where := ""
	var args []any
	if actionKey != "" {
		where = " WHERE action_key = ?"
		args = append(args, actionKey)
	}

	var (
		stats   Statistics
		avgTime sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(success), 0),
		       COALESCE(SUM(1 - success), 0),
		       AVG(execution_time_ms)
		FROM action_logs`+where, args...).
		Scan(&stats.Total, &stats.Successful, &stats.Failed, &avgTime)
	if err != nil {
		return nil, fmt.Errorf("aggregating log statistics: %w", err)
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.Total) * 100
	}
	if avgTime.Valid {
		stats.AvgExecutionTimeMil = avgTime.Float64
	}
	return &stats, nil
}

// DeleteBefore removes all entries older than the given time and returns
// the number of deleted rows. Used by retention maintenance, never by the
// dispatch path.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM action_logs WHERE created_at < ?",
		before.UTC().Format(time.DateTime))
	if err != nil {
		return 0, fmt.Errorf("deleting old log entries: %w", err)
	}
	return res.RowsAffected()
}

func filterClauses(filter ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if filter.ActionKey != "" {
		clauses = append(clauses, "action_key = ?")
		args = append(args, filter.ActionKey)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Success != nil {
		clauses = append(clauses, "success = ?")
		args = append(args, boolToInt(*filter.Success))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var (
		e                       Entry
		userID, errMsg          sql.NullString
		contextJSON, trigJSON   string
		success                 int
		createdAt               string
	)

	err := sc.Scan(
		&e.ID, &e.ActionKey, &userID, &contextJSON, &success,
		&errMsg, &trigJSON, &e.ExecutionTimeMillis, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.Success = success != 0
	if userID.Valid {
		e.UserID = userID.String
	}
	if errMsg.Valid {
		e.ErrorMessage = errMsg.String
	}
	if err := json.Unmarshal([]byte(contextJSON), &e.Context); err != nil {
		e.Context = nil
	}
	if err := json.Unmarshal([]byte(trigJSON), &e.TriggeredWorkflows); err != nil {
		e.TriggeredWorkflows = []string{}
	}

	if t, err := time.Parse(time.DateTime, createdAt); err == nil {
		e.CreatedAt = t
	} else if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		e.CreatedAt = t
	}

	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

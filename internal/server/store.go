// Package server is the reference persistence backend: a REST API
// over SQLite plus a websocket hub that broadcasts every mutation as
// a push event. It is the backend of record the client engine
// reconciles against.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/metalagman/taskdeck/internal/model"
)

// ErrNotFound is returned for unknown task ids.
var ErrNotFound = errors.New("task not found")

// Record is a task row as stored and served: statuses are kept in the
// wire vocabulary end to end on the server side.
type Record struct {
	ID           string           `json:"id"`
	ProjectID    string           `json:"project_id"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Status       model.WireStatus `json:"status,omitempty"`
	Order        int              `json:"task_order"`
	Assignee     model.Assignee   `json:"assignee,omitempty"`
	Feature      string           `json:"feature,omitempty"`
	FeatureColor string           `json:"feature_color,omitempty"`
	ParentID     string           `json:"parent_task_id,omitempty"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
}

// Patch is a partial update; nil fields keep their stored value.
type Patch struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Status      *model.WireStatus `json:"status,omitempty"`
	Order       *int              `json:"task_order,omitempty"`
	Assignee    *model.Assignee   `json:"assignee,omitempty"`
	Feature     *string           `json:"feature,omitempty"`
}

// Store manages task persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a task store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const taskColumns = `id, project_id, title, description, status, task_order, assignee, feature, feature_color, parent_task_id, created_at, updated_at`

// List returns all tasks for a project, subtasks included, ordered by
// status then priority.
func (s *Store) List(ctx context.Context, projectID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id=? ORDER BY status, task_order, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// Get fetches a task by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	rec, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// Create inserts a new task, assigning its id and timestamps. A zero
// order on a top-level task is placed at the end of its column.
func (s *Store) Create(ctx context.Context, rec Record) (Record, error) {
	rec.ID = uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = model.WireTodo
	}
	if rec.Order == 0 && rec.ParentID == "" {
		next, err := s.nextOrder(ctx, rec.ProjectID, rec.Status)
		if err != nil {
			return Record{}, err
		}
		rec.Order = next
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(`+taskColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProjectID, rec.Title, rec.Description, string(rec.Status), rec.Order,
		string(rec.Assignee), rec.Feature, rec.FeatureColor, nullable(rec.ParentID), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("insert task: %w", err)
	}
	return rec, nil
}

// Update applies a partial update and returns the stored record.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if patch.Title != nil {
		rec.Title = *patch.Title
	}
	if patch.Description != nil {
		rec.Description = *patch.Description
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.Order != nil {
		rec.Order = *patch.Order
	}
	if patch.Assignee != nil {
		rec.Assignee = *patch.Assignee
	}
	if patch.Feature != nil {
		rec.Feature = *patch.Feature
	}
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title=?, description=?, status=?, task_order=?, assignee=?, feature=?, updated_at=? WHERE id=?`,
		rec.Title, rec.Description, string(rec.Status), rec.Order, string(rec.Assignee), rec.Feature, rec.UpdatedAt, id)
	if err != nil {
		return Record{}, fmt.Errorf("update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return Record{}, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Delete removes a task and, via the schema cascade, its subtasks.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) nextOrder(ctx context.Context, projectID string, status model.WireStatus) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(task_order), 0) FROM tasks WHERE project_id=? AND status=? AND parent_task_id IS NULL`,
		projectID, string(status))
	var maxOrder int
	if err := row.Scan(&maxOrder); err != nil {
		return 0, fmt.Errorf("read max order: %w", err)
	}
	return maxOrder + 1, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (Record, error) {
	var rec Record
	var status, assignee string
	var parentID sql.NullString
	if err := row.Scan(&rec.ID, &rec.ProjectID, &rec.Title, &rec.Description, &status, &rec.Order,
		&assignee, &rec.Feature, &rec.FeatureColor, &parentID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, sql.ErrNoRows
		}
		return Record{}, fmt.Errorf("scan task: %w", err)
	}
	rec.Status = model.WireStatus(status)
	rec.Assignee = model.Assignee(assignee)
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	return rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

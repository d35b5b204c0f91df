// Package persist schedules debounced writes of local ordering
// changes to the backend of record.
package persist

import (
	"context"

	"github.com/metalagman/taskdeck/internal/model"
)

// TaskPatch is a partial update. Nil fields are left untouched by the
// backend. Reordering only ever sends Order, or Order plus Status for
// a cross-column move; the broader fields serve direct edits.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *model.Status
	Order       *int
	Assignee    *model.Assignee
	Feature     *string
}

// Client is the persistence service contract the engine consumes. The
// backend assigns ids on create and is the single source of truth for
// order.
type Client interface {
	ListTasks(ctx context.Context, projectID string) ([]model.Task, error)
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Package board owns the reconciled in-memory task collection. The
// Store is the only mutation surface: local edits, the debounced
// persistence batch and push-channel merges all funnel through it,
// and presentation layers hold a read-only view plus a change
// subscription.
package board

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/metalagman/taskdeck/internal/merge"
	"github.com/metalagman/taskdeck/internal/model"
	"github.com/metalagman/taskdeck/internal/order"
	"github.com/metalagman/taskdeck/internal/persist"
	"github.com/rs/zerolog/log"
)

// Store reconciles three interleaved sources of change: synchronous
// local edits, the persistence scheduler's debounce expiry, and push
// events. Push events are not applied at the point of receipt; they
// sit in an inbox until the dispatch loop picks them up, so a reader
// mid-iteration never sees the collection shift underneath it.
type Store struct {
	client    persist.Client
	scheduler *persist.Scheduler
	projectID string

	mu        sync.RWMutex
	tasks     []model.Task
	connected bool
	subs      []func()

	inbox chan merge.Event
}

// NewStore creates a store for one project. Window sets the
// persistence quiescence window; zero means the default.
func NewStore(client persist.Client, projectID string, window time.Duration) *Store {
	s := &Store{
		client:    client,
		projectID: projectID,
		inbox:     make(chan merge.Event, 64),
	}
	s.scheduler = persist.NewScheduler(client, projectID, window, s.replaceAll)
	return s
}

// Load fetches the authoritative snapshot and replaces local state.
// Used for the initial load and as the fallback when the push channel
// is down.
func (s *Store) Load(ctx context.Context) error {
	tasks, err := s.client.ListTasks(ctx, s.projectID)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	s.replaceAll(tasks)
	return nil
}

// Run drains the push-event inbox until the context ends. Each event
// is applied on its own tick.
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.inbox:
			s.apply(ev)
		}
	}
}

// Enqueue defers a push event to the next dispatch tick. Events
// arriving faster than they drain are dropped with a warning rather
// than blocking the channel reader; the next authoritative snapshot
// heals any loss.
func (s *Store) Enqueue(ev merge.Event) {
	select {
	case s.inbox <- ev:
	default:
		log.Warn().Str("kind", string(ev.Kind)).Msg("board: inbox full, dropping event")
	}
}

// Subscribe registers a callback invoked after every state change.
// Callbacks run outside the store lock and must be fast.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// OrderedTasks returns the top-level tasks in status, ascending by
// order.
func (s *Store) OrderedTasks(status model.Status) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.TopLevel() && t.Status == status {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Subtasks returns the subtasks of a parent, in collection order.
func (s *Store) Subtasks(parentID string) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.ParentID == parentID {
			out = append(out, t)
		}
	}
	return out
}

// Task returns the task with the given id, if present.
func (s *Store) Task(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// All returns a snapshot of the whole collection.
func (s *Store) All() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Task{}, s.tasks...)
}

// Reorder optimistically moves a task within its column and schedules
// the renumbered state for persistence. Invalid ids or indexes are a
// silent no-op.
func (s *Store) Reorder(id string, targetIndex int, status model.Status) {
	s.mutate(func(tasks []model.Task) []model.Task {
		return order.Reorder(tasks, id, targetIndex, status)
	})
}

// Move optimistically transfers a task to another column, renumbering
// both, and schedules the result for persistence.
func (s *Store) Move(id string, status model.Status) {
	s.mutate(func(tasks []model.Task) []model.Task {
		return order.Move(tasks, id, status)
	})
}

// Create persists a new task and appends the backend's record to
// local state. The task_created echo on the push channel is a no-op
// by id.
func (s *Store) Create(ctx context.Context, t model.Task) (model.Task, error) {
	t.ProjectID = s.projectID
	if t.TopLevel() && t.Order == 0 {
		t.Order = len(s.OrderedTasks(t.Status)) + 1
	}
	created, err := s.client.CreateTask(ctx, t)
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, created)
	s.mu.Unlock()
	s.notify()
	return created, nil
}

// CreateSubtask persists a subtask under a parent. Subtasks carry no
// ordering slot.
func (s *Store) CreateSubtask(ctx context.Context, parentID string, t model.Task) (model.Task, error) {
	t.ParentID = parentID
	t.Order = 0
	return s.Create(ctx, t)
}

// Update persists a direct edit and folds the backend's record into
// local state.
func (s *Store) Update(ctx context.Context, id string, patch persist.TaskPatch) error {
	updated, err := s.client.UpdateTask(ctx, id, patch)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	s.apply(merge.Event{Kind: merge.KindUpdated, Task: updated})
	return nil
}

// Delete removes a task from the backend and, once confirmed, from
// local state. No tombstoning; removal is immediate.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.apply(merge.Event{Kind: merge.KindDeleted, Task: model.Task{ID: id}})
	return nil
}

// SetConnected records push-channel connectivity. A downed channel
// never discards task state; reconnection resumes delivery.
func (s *Store) SetConnected(up bool) {
	s.mu.Lock()
	changed := s.connected != up
	s.connected = up
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Connected reports push-channel connectivity for the presentation
// layer.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Flush blocks until any pending persistence batch has settled.
func (s *Store) Flush() {
	s.scheduler.Wait()
}

// Close stops the persistence scheduler.
func (s *Store) Close() {
	s.scheduler.Stop()
}

// mutate applies a pure transform, publishes the result immediately
// and schedules it for debounced persistence.
func (s *Store) mutate(fn func([]model.Task) []model.Task) {
	s.mu.Lock()
	next := fn(s.tasks)
	s.tasks = next
	snapshot := append([]model.Task{}, next...)
	s.mu.Unlock()

	s.notify()
	s.scheduler.Schedule(snapshot)
}

// apply folds one push event into local state.
func (s *Store) apply(ev merge.Event) {
	s.mu.Lock()
	next, changed := merge.Apply(s.tasks, ev)
	if changed {
		s.tasks = next
	}
	s.mu.Unlock()
	if changed {
		if ev.Kind == merge.KindInitial {
			s.scheduler.Baseline(next)
		}
		s.notify()
	}
}

// replaceAll swaps in an authoritative snapshot, discarding local
// assumptions.
func (s *Store) replaceAll(tasks []model.Task) {
	s.mu.Lock()
	s.tasks = append([]model.Task{}, tasks...)
	s.mu.Unlock()
	s.scheduler.Baseline(tasks)
	s.notify()
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := append([]func(){}, s.subs...)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

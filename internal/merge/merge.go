package merge

import "github.com/metalagman/taskdeck/internal/model"

// handler applies one event kind to the collection and reports
// whether anything changed.
type handler func(tasks []model.Task, ev Event) ([]model.Task, bool)

// handlers is the full dispatch table; one entry per Kind.
var handlers = map[Kind]handler{
	KindInitial:  applyInitial,
	KindCreated:  applyCreated,
	KindUpdated:  applyUpdated,
	KindBulk:     applyBulk,
	KindDeleted:  applyRemoved,
	KindArchived: applyRemoved,
}

// Apply folds one event into the collection and returns the resulting
// collection plus a changed flag. Applying the same event twice yields
// the same state as applying it once. Unknown kinds are a no-op.
func Apply(tasks []model.Task, ev Event) ([]model.Task, bool) {
	h, ok := handlers[ev.Kind]
	if !ok {
		return tasks, false
	}
	return h(tasks, ev)
}

// applyInitial replaces the collection wholesale with the snapshot.
func applyInitial(_ []model.Task, ev Event) ([]model.Task, bool) {
	out := make([]model.Task, len(ev.Tasks))
	copy(out, ev.Tasks)
	return out, true
}

// applyCreated appends the task unless its id is already present. The
// no-op branch protects against a local optimistic create racing the
// echo of that same create.
func applyCreated(tasks []model.Task, ev Event) ([]model.Task, bool) {
	for _, t := range tasks {
		if t.ID == ev.Task.ID {
			return tasks, false
		}
	}
	return append(append([]model.Task{}, tasks...), ev.Task), true
}

// applyUpdated replaces the matching task in place. Structurally
// identical payloads are suppressed so downstream subscribers are not
// renotified for echoes of their own writes. An unknown id is a no-op.
func applyUpdated(tasks []model.Task, ev Event) ([]model.Task, bool) {
	return replaceTask(tasks, ev.Task)
}

// applyBulk applies updated semantics to each task independently.
func applyBulk(tasks []model.Task, ev Event) ([]model.Task, bool) {
	changed := false
	for _, incoming := range ev.Tasks {
		var one bool
		tasks, one = replaceTask(tasks, incoming)
		changed = changed || one
	}
	return tasks, changed
}

// applyRemoved drops the task with the matching id; absent ids are a
// no-op. Deletes and archives behave identically on the client.
func applyRemoved(tasks []model.Task, ev Event) ([]model.Task, bool) {
	for i, t := range tasks {
		if t.ID == ev.Task.ID {
			out := make([]model.Task, 0, len(tasks)-1)
			out = append(out, tasks[:i]...)
			out = append(out, tasks[i+1:]...)
			return out, true
		}
	}
	return tasks, false
}

func replaceTask(tasks []model.Task, incoming model.Task) ([]model.Task, bool) {
	for i, t := range tasks {
		if t.ID != incoming.ID {
			continue
		}
		if t.Equal(incoming) {
			return tasks, false
		}
		out := make([]model.Task, len(tasks))
		copy(out, tasks)
		out[i] = incoming
		return out, true
	}
	return tasks, false
}

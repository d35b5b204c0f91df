// Package order renumbers task priorities. Every function here is
// pure: it returns a fresh slice and never performs I/O, so callers
// decide separately what to persist.
//
// The invariant maintained throughout: for each status, the order
// values of top-level tasks in that status are exactly 1..N. Subtasks
// never take part.
package order

import (
	"sort"

	"github.com/metalagman/taskdeck/internal/model"
)

// Reorder moves the task with the given id to targetIndex within its
// status column and renumbers the column to close ranks. Tasks outside
// the column are untouched, and the positions of unrelated tasks in
// the collection are preserved.
//
// An unknown id, a task outside the column, or an out-of-range index
// is a no-op: the input is returned unchanged.
func Reorder(tasks []model.Task, id string, targetIndex int, status model.Status) []model.Task {
	column := columnOf(tasks, status)

	from := -1
	for i, t := range column {
		if t.ID == id {
			from = i
			break
		}
	}
	if from < 0 || targetIndex < 0 || targetIndex >= len(column) {
		return tasks
	}

	moved := column[from]
	column = append(column[:from:from], column[from+1:]...)
	column = append(column[:targetIndex:targetIndex], append([]model.Task{moved}, column[targetIndex:]...)...)

	return applyOrders(tasks, renumber(column))
}

// Move transfers the task with the given id into newStatus, placing it
// last in the destination column, and renumbers the origin column to
// close the gap it left. Both columns satisfy the contiguity invariant
// afterwards. Unknown ids are a no-op.
//
// The origin is renumbered even when origin == destination has already
// been ruled out upstream; repeated moves must not accumulate gaps.
func Move(tasks []model.Task, id string, newStatus model.Status) []model.Task {
	var moved *model.Task
	for i := range tasks {
		if tasks[i].ID == id {
			moved = &tasks[i]
			break
		}
	}
	if moved == nil {
		return tasks
	}

	origin := moved.Status

	destination := without(columnOf(tasks, newStatus), id)
	updates := renumber(destination)

	reassigned := *moved
	reassigned.Status = newStatus
	reassigned.Order = len(destination) + 1
	updates[id] = reassigned

	if origin != newStatus {
		for tid, upd := range renumber(without(columnOf(tasks, origin), id)) {
			updates[tid] = upd
		}
	}

	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		if upd, ok := updates[t.ID]; ok {
			out[i] = upd
		} else {
			out[i] = t
		}
	}
	return out
}

// without filters the task with the given id out of a sequence.
func without(sequence []model.Task, id string) []model.Task {
	out := sequence[:0:0]
	for _, t := range sequence {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// columnOf returns the top-level tasks in status, sorted by their
// current order.
func columnOf(tasks []model.Task, status model.Status) []model.Task {
	var column []model.Task
	for _, t := range tasks {
		if t.TopLevel() && t.Status == status {
			column = append(column, t)
		}
	}
	sort.SliceStable(column, func(i, j int) bool {
		return column[i].Order < column[j].Order
	})
	return column
}

// renumber assigns order = position+1 across the sequence and returns
// the tasks whose fields changed, keyed by id.
func renumber(sequence []model.Task) map[string]model.Task {
	updates := make(map[string]model.Task, len(sequence))
	for i, t := range sequence {
		t.Order = i + 1
		updates[t.ID] = t
	}
	return updates
}

// applyOrders rewrites tasks whose id appears in updates, preserving
// collection positions.
func applyOrders(tasks []model.Task, updates map[string]model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		if upd, ok := updates[t.ID]; ok {
			out[i] = upd
		} else {
			out[i] = t
		}
	}
	return out
}

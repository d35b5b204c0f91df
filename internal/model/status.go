package model

// Status is a task lifecycle state in the board vocabulary.
type Status string

// Board statuses, in column order.
const (
	StatusBacklog    Status = "backlog"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusComplete   Status = "complete"
)

// WireStatus is the same four-state lifecycle in the persistence
// service vocabulary.
type WireStatus string

// Wire statuses, matching the board statuses one to one.
const (
	WireTodo   WireStatus = "todo"
	WireDoing  WireStatus = "doing"
	WireReview WireStatus = "review"
	WireDone   WireStatus = "done"
)

// Statuses returns all board statuses in column order.
func Statuses() []Status {
	return []Status{StatusBacklog, StatusInProgress, StatusReview, StatusComplete}
}

// ToWire translates a board status to the persistence vocabulary.
// Unknown values fall back to todo.
func ToWire(s Status) WireStatus {
	switch s {
	case StatusBacklog:
		return WireTodo
	case StatusInProgress:
		return WireDoing
	case StatusReview:
		return WireReview
	case StatusComplete:
		return WireDone
	}
	return WireTodo
}

// FromWire translates a persistence status to the board vocabulary.
// Unknown values fall back to backlog.
func FromWire(s WireStatus) Status {
	switch s {
	case WireTodo:
		return StatusBacklog
	case WireDoing:
		return StatusInProgress
	case WireReview:
		return StatusReview
	case WireDone:
		return StatusComplete
	}
	return StatusBacklog
}

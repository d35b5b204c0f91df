// Package merge folds push-channel events into the local task
// collection. Events carry no ordering guarantee relative to local
// writes; every rule here is idempotent so replays and races resolve
// to the same state.
package merge

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/metalagman/taskdeck/internal/model"
	"github.com/xeipuuv/gojsonschema"
)

// Kind tags a push event. The set is closed; unknown tags are a
// decode error, not a dispatch fallthrough.
type Kind string

// Push event kinds as they appear on the wire.
const (
	KindInitial  Kind = "initial_tasks"
	KindCreated  Kind = "task_created"
	KindUpdated  Kind = "task_updated"
	KindBulk     Kind = "tasks_change"
	KindDeleted  Kind = "task_deleted"
	KindArchived Kind = "task_archived"
)

// Event is one decoded push message. Task is set for single-payload
// kinds, Tasks for initial_tasks and tasks_change.
type Event struct {
	Kind  Kind
	Task  model.Task
	Tasks []model.Task
}

//go:embed event.schema.json
var eventSchemaJSON string

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Decode validates a raw push message against the event schema and
// decodes it into a typed Event. Status values cross the wire in the
// persistence vocabulary and are translated here.
func Decode(raw []byte) (Event, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(eventSchemaJSON),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return Event{}, fmt.Errorf("validate event: %w", err)
	}
	if !result.Valid() {
		return Event{}, fmt.Errorf("malformed event: %s", result.Errors()[0].String())
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("decode event envelope: %w", err)
	}

	ev := Event{Kind: Kind(env.Type)}
	switch ev.Kind {
	case KindInitial, KindBulk:
		if err := mapstructure.Decode(env.Data, &ev.Tasks); err != nil {
			return Event{}, fmt.Errorf("decode task list: %w", err)
		}
		for i := range ev.Tasks {
			ev.Tasks[i].Status = model.FromWire(model.WireStatus(ev.Tasks[i].Status))
		}
	case KindCreated, KindUpdated, KindDeleted, KindArchived:
		if err := mapstructure.Decode(env.Data, &ev.Task); err != nil {
			return Event{}, fmt.Errorf("decode task: %w", err)
		}
		ev.Task.Status = model.FromWire(model.WireStatus(ev.Task.Status))
	default:
		return Event{}, fmt.Errorf("unknown event type %q", env.Type)
	}
	return ev, nil
}

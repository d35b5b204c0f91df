// Package model defines the task record shared by the board engine,
// the persistence client and the push channel.
package model

// Assignee identifies the kind of actor a task is assigned to.
type Assignee string

// Known assignees. Agents mutate the board through the same API as
// users; their writes arrive back as push events.
const (
	AssigneeUser  Assignee = "user"
	AssigneeAgent Assignee = "agent"
	AssigneeCoder Assignee = "coding-agent"
)

// Task is a single board item. Status is kept in the board vocabulary
// in memory; the API and push layers translate at the wire boundary.
//
// Order is a positive integer, unique and contiguous among top-level
// tasks sharing a status. Subtasks (ParentID set) do not take part in
// ordering and relate to their parent by id only.
type Task struct {
	ID           string   `json:"id"            mapstructure:"id"`
	ProjectID    string   `json:"project_id"    mapstructure:"project_id"`
	Title        string   `json:"title"         mapstructure:"title"`
	Description  string   `json:"description,omitempty" mapstructure:"description"`
	Status       Status   `json:"status"        mapstructure:"status"`
	Order        int      `json:"task_order"    mapstructure:"task_order"`
	Assignee     Assignee `json:"assignee,omitempty"    mapstructure:"assignee"`
	Feature      string   `json:"feature,omitempty"     mapstructure:"feature"`
	FeatureColor string   `json:"feature_color,omitempty" mapstructure:"feature_color"`
	ParentID     string   `json:"parent_task_id,omitempty" mapstructure:"parent_task_id"`
	CreatedAt    string   `json:"created_at,omitempty"  mapstructure:"created_at"`
	UpdatedAt    string   `json:"updated_at,omitempty"  mapstructure:"updated_at"`
}

// TopLevel reports whether the task takes part in status ordering.
func (t Task) TopLevel() bool {
	return t.ParentID == ""
}

// Equal reports field-by-field equality. The merge processor uses it
// to suppress redundant update notifications.
func (t Task) Equal(other Task) bool {
	return t == other
}

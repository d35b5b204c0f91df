// Package api is the HTTP client for the task persistence service.
// It implements persist.Client and translates statuses between the
// board and wire vocabularies at the boundary.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/metalagman/taskdeck/internal/model"
	"github.com/metalagman/taskdeck/internal/persist"
)

// Client talks to the taskdeck REST API.
type Client struct {
	base string
	http *http.Client
}

var _ persist.Client = (*Client)(nil)

// New creates a client for the given base URL, e.g.
// "http://localhost:8484".
func New(baseURL string) *Client {
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// wireTask is the task record as it crosses the wire: same shape as
// model.Task but with the persistence status vocabulary.
type wireTask struct {
	ID           string           `json:"id"`
	ProjectID    string           `json:"project_id"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Status       model.WireStatus `json:"status"`
	Order        int              `json:"task_order"`
	Assignee     model.Assignee   `json:"assignee,omitempty"`
	Feature      string           `json:"feature,omitempty"`
	FeatureColor string           `json:"feature_color,omitempty"`
	ParentID     string           `json:"parent_task_id,omitempty"`
	CreatedAt    string           `json:"created_at,omitempty"`
	UpdatedAt    string           `json:"updated_at,omitempty"`
}

func toWire(t model.Task) wireTask {
	return wireTask{
		ID:           t.ID,
		ProjectID:    t.ProjectID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       model.ToWire(t.Status),
		Order:        t.Order,
		Assignee:     t.Assignee,
		Feature:      t.Feature,
		FeatureColor: t.FeatureColor,
		ParentID:     t.ParentID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func fromWire(w wireTask) model.Task {
	return model.Task{
		ID:           w.ID,
		ProjectID:    w.ProjectID,
		Title:        w.Title,
		Description:  w.Description,
		Status:       model.FromWire(w.Status),
		Order:        w.Order,
		Assignee:     w.Assignee,
		Feature:      w.Feature,
		FeatureColor: w.FeatureColor,
		ParentID:     w.ParentID,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

type wirePatch struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Status      *model.WireStatus `json:"status,omitempty"`
	Order       *int              `json:"task_order,omitempty"`
	Assignee    *model.Assignee   `json:"assignee,omitempty"`
	Feature     *string           `json:"feature,omitempty"`
}

// ListTasks fetches the authoritative snapshot for a project.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	var wire []wireTask
	path := fmt.Sprintf("/api/projects/%s/tasks", url.PathEscape(projectID))
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]model.Task, len(wire))
	for i, w := range wire {
		out[i] = fromWire(w)
	}
	return out, nil
}

// CreateTask persists a new task; the backend assigns the id.
func (c *Client) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	var created wireTask
	if err := c.do(ctx, http.MethodPost, "/api/tasks", toWire(t), &created); err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	return fromWire(created), nil
}

// UpdateTask applies a partial update and returns the stored record.
func (c *Client) UpdateTask(ctx context.Context, id string, patch persist.TaskPatch) (model.Task, error) {
	body := wirePatch{
		Title:       patch.Title,
		Description: patch.Description,
		Order:       patch.Order,
		Assignee:    patch.Assignee,
		Feature:     patch.Feature,
	}
	if patch.Status != nil {
		wire := model.ToWire(*patch.Status)
		body.Status = &wire
	}
	var updated wireTask
	path := "/api/tasks/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, body, &updated); err != nil {
		return model.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}
	return fromWire(updated), nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

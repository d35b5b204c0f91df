// Package mcp exposes the task board as MCP tools, so autonomous
// agents mutate tasks through the same persistence contract as the
// UI. Agent writes come back to every client as push events.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/metalagman/taskdeck/internal/model"
	"github.com/metalagman/taskdeck/internal/persist"
)

// Server wraps the persistence client and exposes it as MCP tools.
type Server struct {
	server  *gomcp.Server
	client  persist.Client
	project string
}

// NewServer creates an MCP server for one project.
func NewServer(client persist.Client, project, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{client: client, project: project}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "taskdeck", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter tasks by status (backlog, in-progress, review, complete)"`
}

type taskOutput struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Order    int    `json:"order"`
	Assignee string `json:"assignee,omitempty"`
	Feature  string `json:"feature,omitempty"`
	ParentID string `json:"parent_task_id,omitempty"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type createTaskInput struct {
	Title       string `json:"title" jsonschema:"required,the task title"`
	Description string `json:"description,omitempty" jsonschema:"markdown task description"`
	Status      string `json:"status,omitempty" jsonschema:"initial status (backlog, in-progress, review, complete); defaults to backlog"`
	Feature     string `json:"feature,omitempty" jsonschema:"free-text feature grouping label"`
	ParentID    string `json:"parent_task_id,omitempty" jsonschema:"create as a subtask of this task"`
}

type updateStatusInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task identifier"`
	Status string `json:"status" jsonschema:"required,the new status (backlog, in-progress, review, complete)"`
}

type deleteTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task identifier"`
}

type messageOutput struct {
	Message string `json:"message"`
}

var validStatuses = map[string]bool{
	string(model.StatusBacklog):    true,
	string(model.StatusInProgress): true,
	string(model.StatusReview):     true,
	string(model.StatusComplete):   true,
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List the project's tasks with an optional status filter, ordered by priority within each status.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_task",
		Description: "Create a task (or subtask, when parent_task_id is set). The backend assigns the id and the priority slot.",
	}, s.handleCreateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task_status",
		Description: "Move a task to another status column. Valid statuses: backlog, in-progress, review, complete.",
	}, s.handleUpdateStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task and its subtasks permanently.",
	}, s.handleDeleteTask)
}

// --- Tool handlers ---

func (s *Server) handleListTasks(ctx context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	if input.Status != "" && !validStatuses[input.Status] {
		return errorResult(fmt.Sprintf("invalid status %q", input.Status)), listTasksOutput{}, nil
	}

	tasks, err := s.client.ListTasks(ctx, s.project)
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}

	out := listTasksOutput{Tasks: []taskOutput{}}
	for _, t := range tasks {
		if input.Status != "" && string(t.Status) != input.Status {
			continue
		}
		out.Tasks = append(out.Tasks, taskToOutput(t))
	}
	out.Count = len(out.Tasks)
	return nil, out, nil
}

func (s *Server) handleCreateTask(ctx context.Context, _ *gomcp.CallToolRequest, input createTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.Title == "" {
		return errorResult("title is required"), taskOutput{}, nil
	}
	status := model.StatusBacklog
	if input.Status != "" {
		if !validStatuses[input.Status] {
			return errorResult(fmt.Sprintf("invalid status %q", input.Status)), taskOutput{}, nil
		}
		status = model.Status(input.Status)
	}

	created, err := s.client.CreateTask(ctx, model.Task{
		ProjectID:   s.project,
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		Feature:     input.Feature,
		ParentID:    input.ParentID,
		Assignee:    model.AssigneeAgent,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("creating task: %s", err)), taskOutput{}, nil
	}
	return nil, taskToOutput(created), nil
}

func (s *Server) handleUpdateStatus(ctx context.Context, _ *gomcp.CallToolRequest, input updateStatusInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), messageOutput{}, nil
	}
	if !validStatuses[input.Status] {
		return errorResult(fmt.Sprintf("invalid status %q: must be one of backlog, in-progress, review, complete", input.Status)), messageOutput{}, nil
	}

	status := model.Status(input.Status)
	if _, err := s.client.UpdateTask(ctx, input.TaskID, persist.TaskPatch{Status: &status}); err != nil {
		return errorResult(fmt.Sprintf("updating task %s: %s", input.TaskID, err)), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("task %s moved to %s", input.TaskID, input.Status)}, nil
}

func (s *Server) handleDeleteTask(ctx context.Context, _ *gomcp.CallToolRequest, input deleteTaskInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), messageOutput{}, nil
	}
	if err := s.client.DeleteTask(ctx, input.TaskID); err != nil {
		return errorResult(fmt.Sprintf("deleting task %s: %s", input.TaskID, err)), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("task %s deleted", input.TaskID)}, nil
}

// --- Helpers ---

func taskToOutput(t model.Task) taskOutput {
	return taskOutput{
		ID:       t.ID,
		Title:    t.Title,
		Status:   string(t.Status),
		Order:    t.Order,
		Assignee: string(t.Assignee),
		Feature:  t.Feature,
		ParentID: t.ParentID,
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

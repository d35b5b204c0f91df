package server

import (
	"context"
	"fmt"
	"os"

	"github.com/metalagman/taskdeck/internal/model"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Project string     `yaml:"project"`
	Tasks   []seedTask `yaml:"tasks"`
}

type seedTask struct {
	Title        string     `yaml:"title"`
	Description  string     `yaml:"description"`
	Status       string     `yaml:"status"`
	Assignee     string     `yaml:"assignee"`
	Feature      string     `yaml:"feature"`
	FeatureColor string     `yaml:"feature_color"`
	Subtasks     []seedTask `yaml:"subtasks"`
}

// Seed loads a YAML fixture file into the store. Tasks are created in
// file order, so each one lands at the end of its column; subtasks are
// attached to their parent.
func Seed(ctx context.Context, store *Store, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	if file.Project == "" {
		return fmt.Errorf("seed file %s has no project id", path)
	}

	for _, st := range file.Tasks {
		parent, err := store.Create(ctx, seedRecord(file.Project, st, ""))
		if err != nil {
			return fmt.Errorf("seed task %q: %w", st.Title, err)
		}
		for _, sub := range st.Subtasks {
			if _, err := store.Create(ctx, seedRecord(file.Project, sub, parent.ID)); err != nil {
				return fmt.Errorf("seed subtask %q: %w", sub.Title, err)
			}
		}
	}
	return nil
}

func seedRecord(projectID string, st seedTask, parentID string) Record {
	status := model.WireStatus(st.Status)
	if st.Status == "" {
		status = model.WireTodo
	}
	assignee := model.Assignee(st.Assignee)
	if st.Assignee == "" {
		assignee = model.AssigneeUser
	}
	return Record{
		ProjectID:    projectID,
		Title:        st.Title,
		Description:  st.Description,
		Status:       status,
		Assignee:     assignee,
		Feature:      st.Feature,
		FeatureColor: st.FeatureColor,
		ParentID:     parentID,
	}
}

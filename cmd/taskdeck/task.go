package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/metalagman/taskdeck/internal/model"
	"github.com/metalagman/taskdeck/internal/persist"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks from the command line",
	}
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskShowCmd())
	cmd.AddCommand(taskMoveCmd())
	cmd.AddCommand(taskDoneCmd())
	cmd.AddCommand(taskRmCmd())
	return cmd
}

func parseStatus(s string) (model.Status, error) {
	for _, status := range model.Statuses() {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q (backlog, in-progress, review, complete)", s)
}

func taskAddCmd() *cobra.Command {
	var description, status, feature, parentID string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("title is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st := model.StatusBacklog
			if status != "" {
				if st, err = parseStatus(status); err != nil {
					return err
				}
			}
			created, err := newClient(cfg).CreateTask(cmd.Context(), model.Task{
				ProjectID:   cfg.Project,
				Title:       title,
				Description: description,
				Status:      st,
				Feature:     feature,
				ParentID:    parentID,
				Assignee:    model.AssigneeUser,
			})
			if err != nil {
				return err
			}
			log.Info().Msgf("task %s added", created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "markdown task description")
	cmd.Flags().StringVar(&status, "status", "", "initial status (defaults to backlog)")
	cmd.Flags().StringVar(&feature, "feature", "", "feature grouping label")
	cmd.Flags().StringVar(&parentID, "parent", "", "create as a subtask of this task")
	return cmd
}

func taskListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var filter model.Status
			if status != "" {
				if filter, err = parseStatus(status); err != nil {
					return err
				}
			}
			tasks, err := newClient(cfg).ListTasks(cmd.Context(), cfg.Project)
			if err != nil {
				return err
			}

			printed := 0
			for _, t := range tasks {
				if filter != "" && t.Status != filter {
					continue
				}
				indent := ""
				if !t.TopLevel() {
					indent = "  "
				}
				_, _ = io.WriteString(os.Stdout, fmt.Sprintf("%s%s\t%s\t%d\t%s\n", indent, t.ID, t.Status, t.Order, t.Title))
				printed++
			}
			if printed == 0 {
				log.Info().Msg("no tasks")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (backlog|in-progress|review|complete)")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its rendered description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tasks, err := newClient(cfg).ListTasks(cmd.Context(), cfg.Project)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				if t.ID != args[0] {
					continue
				}
				fmt.Printf("%s\n%s · #%d · %s\n", t.Title, t.Status, t.Order, t.Assignee)
				if t.Feature != "" {
					fmt.Printf("feature: %s\n", t.Feature)
				}
				if t.Description != "" {
					out := t.Description
					if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
						if rendered, rerr := r.Render(t.Description); rerr == nil {
							out = rendered
						}
					}
					fmt.Println(out)
				}
				for _, sub := range tasks {
					if sub.ParentID == t.ID {
						fmt.Printf("  - [%s] %s\n", sub.Status, sub.Title)
					}
				}
				return nil
			}
			return fmt.Errorf("task %s not found", args[0])
		},
	}
	return cmd
}

func taskMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			if _, err := newClient(cfg).UpdateTask(cmd.Context(), args[0], persist.TaskPatch{Status: &status}); err != nil {
				return err
			}
			log.Info().Msgf("task %s moved to %s", args[0], status)
			return nil
		},
	}
	return cmd
}

func taskDoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task as complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			status := model.StatusComplete
			if _, err := newClient(cfg).UpdateTask(cmd.Context(), args[0], persist.TaskPatch{Status: &status}); err != nil {
				return err
			}
			log.Info().Msgf("task %s done", args[0])
			return nil
		},
	}
	return cmd
}

func taskRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task and its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := newClient(cfg).DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			log.Info().Msgf("task %s deleted", args[0])
			return nil
		},
	}
	return cmd
}

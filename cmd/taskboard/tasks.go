package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard/client"
)

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List the projects visible to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, _, err := signedIn(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			projects, err := c.Projects(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects")
				return nil
			}
			for _, p := range projects {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", p.ProjectID, p.Name)
			}
			return nil
		},
	}
}

func newCreateProjectCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create-project",
		Short: "Create a project owned by you",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, snap, err := signedIn(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			if err := requireCapability(c, snap, client.CanCreateProject); err != nil {
				return err
			}

			p, err := c.CreateProject(ctx, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project created: %d - %s\n", p.ProjectID, p.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newBoardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board <project-id>",
		Short: "Show a project's tasks by status column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID("project id", args[0])
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, _, err := signedIn(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			start := time.Now()
			board, err := c.Board(ctx, projectID)
			if err != nil {
				return err
			}
			log.Debug().Int64("project_id", projectID).Int("tasks", board.Total()).Dur("elapsed", time.Since(start)).Msg("board loaded")

			if asJSON {
				return printJSON(cmd.OutOrStdout(), board)
			}
			out := cmd.OutOrStdout()
			for _, col := range board.Columns {
				fmt.Fprintf(out, "%s (%d)\n", strings.ToUpper(string(col.Status)), col.Count())
				for _, t := range col.Tasks {
					line := fmt.Sprintf("  #%d %s", t.TaskID, t.Title)
					if t.Priority != "" {
						line += " [" + string(t.Priority) + "]"
					}
					fmt.Fprintln(out, line)
				}
			}
			for _, t := range board.Unplaced {
				fmt.Fprintf(out, "  #%d %s (status %q)\n", t.TaskID, t.Title, t.Status)
			}
			return nil
		},
	}
}

func newCreateTaskCmd() *cobra.Command {
	var title, description, priority, due string
	var assets []string

	cmd := &cobra.Command{
		Use:   "create-task <project-id>",
		Short: "Add a task to a project's todo column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID("project id", args[0])
			if err != nil {
				return err
			}
			req := client.CreateTaskRequest{
				Title:       title,
				Description: description,
				Priority:    client.Priority(priority),
				Assets:      assets,
			}
			if due != "" {
				dt, err := strfmt.ParseDateTime(due)
				if err != nil {
					return fmt.Errorf("invalid --due %q: %w", due, err)
				}
				req.DueAt = &dt
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, snap, err := signedIn(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			if err := requireCapability(c, snap, client.CanCreateTask); err != nil {
				return err
			}

			t, err := c.CreateTask(ctx, projectID, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task created: %d - %s (%s)\n", t.TaskID, t.Title, t.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description (optional)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority: low, medium or high (optional)")
	cmd.Flags().StringVar(&due, "due", "", "Due date-time, RFC 3339 (optional)")
	cmd.Flags().StringSliceVar(&assets, "asset", nil, "Asset reference; repeatable (optional)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <project-id> <task-id>",
		Short: "Move a task one column forward (todo → ongoing → complete)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID("project id", args[0])
			if err != nil {
				return err
			}
			taskID, err := parseID("task id", args[1])
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, _, err := signedIn(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			next, err := c.AdvanceTask(ctx, projectID, taskID)
			if errors.Is(err, client.ErrTerminalStatus) {
				return fmt.Errorf("task %d is already complete", taskID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %d moved to %s\n", taskID, next)
			return nil
		},
	}
}

func newSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <project-id> <task-id> <todo|ongoing|complete>",
		Short: "Set a task's status directly",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID("project id", args[0])
			if err != nil {
				return err
			}
			taskID, err := parseID("task id", args[1])
			if err != nil {
				return err
			}
			status, err := client.ParseTaskStatus(args[2])
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, _, err := signedIn(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if err := c.SetTaskStatus(ctx, projectID, taskID, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %d set to %s\n", taskID, status)
			return nil
		},
	}
}

func newLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <task-id>",
		Short: "Show a task's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task id", args[0])
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, _, err := signedIn(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			logs, err := c.TaskLogs(ctx, taskID)
			if client.IsForbidden(err) {
				return fmt.Errorf("only admins and assignees may read task %d's log", taskID)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), logs)
			}
			for _, l := range logs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tuser %d\t%s\n", l.CreatedAt, l.UserID, l.Log)
			}
			return nil
		},
	}
}

func newAssignCmd() *cobra.Command {
	return assigneeCmd("assign", "Add a user to a task's assignees", true)
}

func newUnassignCmd() *cobra.Command {
	return assigneeCmd("unassign", "Remove a user from a task's assignees", false)
}

func assigneeCmd(use, short string, add bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id> <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task id", args[0])
			if err != nil {
				return err
			}
			userID, err := parseID("user id", args[1])
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, _, err := signedIn(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if add {
				err = c.AssignUser(ctx, taskID, userID)
			} else {
				err = c.UnassignUser(ctx, taskID, userID)
			}
			if err != nil {
				return fmt.Errorf("%s failed: %s", use, client.UserMessage(err))
			}
			verb := "assigned to"
			if !add {
				verb = "unassigned from"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d %s task %d\n", userID, verb, taskID)
			return nil
		},
	}
}

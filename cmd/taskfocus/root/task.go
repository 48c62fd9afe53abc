package root

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/task-focus/internal/app"
	"github.com/nhle/task-focus/internal/model"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Add, complete or remove tasks",
	}
	cmd.AddCommand(newTaskAddCmd(), newTaskDoneCmd(), newTaskRemoveCmd(), newTaskListCmd())
	return cmd
}

func newTaskAddCmd() *cobra.Command {
	var (
		note     string
		prio     string
		reason   string
		due      string
		types    []string
		category []string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || strings.TrimSpace(strings.Join(args, " ")) == "" {
				return errors.New("title is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p := model.Priority(strings.ToLower(prio))
			switch p {
			case model.PriorityLow, model.PriorityNormal, model.PriorityHigh:
			default:
				return fmt.Errorf("invalid priority %q (low|normal|high)", prio)
			}

			task := model.Task{
				Title:    strings.Join(args, " "),
				Note:     note,
				Priority: p,
				Reason:   reason,
				Status:   model.StatusPending,
				PriorityTags: model.PriorityTags{
					Type:     types,
					Category: category,
				},
			}
			if due != "" {
				task.DueDate = model.ParseTime(due)
				if task.DueDate == nil {
					return fmt.Errorf("invalid due date %q, use YYYY-MM-DD", due)
				}
			}

			ctx := context.Background()
			e, cleanup, err := openEnv(ctx, newLogger())
			if err != nil {
				return err
			}
			defer cleanup()

			saved, err := e.host.SaveTask(ctx, task, false)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s [%s] %s\n", shortID(saved.ID), saved.Priority, saved.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "", "free-form note")
	cmd.Flags().StringVarP(&prio, "priority", "p", string(model.PriorityNormal), "low|normal|high")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "why the task matters")
	cmd.Flags().StringVarP(&due, "due", "d", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "type labels")
	cmd.Flags().StringSliceVar(&category, "category", nil, "category labels")
	return cmd
}

func newTaskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv(ctx, newLogger())
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveTaskID(ctx, e, args[0])
			if err != nil {
				return err
			}
			saved, err := e.host.CompleteTask(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", saved.Title)
			return nil
		},
	}
}

func newTaskRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv(ctx, newLogger())
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveTaskID(ctx, e, args[0])
			if err != nil {
				return err
			}
			if err := e.host.DeleteTask(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted", shortID(id))
			return nil
		},
	}
}

func newTaskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks with status counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv(ctx, newLogger())
			if err != nil {
				return err
			}
			defer cleanup()

			tasks, err := e.host.Tasks(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range tasks {
				fmt.Fprintf(out, "%s  %-11s [%s] %s\n", shortID(t.ID), t.Status, t.Priority, t.Title)
			}
			counts := app.StatusCounts(tasks)
			fmt.Fprintf(out, "\n%d pending, %d in progress, %d completed\n",
				counts[model.StatusPending], counts[model.StatusInProgress], counts[model.StatusCompleted])
			return nil
		},
	}
}

// resolveTaskID accepts a full ID or a unique prefix.
func resolveTaskID(ctx context.Context, e *env, prefix string) (string, error) {
	tasks, err := e.host.Tasks(ctx)
	if err != nil {
		return "", err
	}
	var match string
	for _, t := range tasks {
		if t.ID == prefix {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("task id %q is ambiguous", prefix)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no task matches %q", prefix)
	}
	return match, nil
}

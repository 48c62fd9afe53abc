package root

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/ui/sessionlist"
)

func newFocusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Start, end or inspect a focus session",
		Long: `A focus session journals every task you complete or change until it
ends. The running session is checkpointed locally, so it survives between
commands and restarts.`,
	}
	cmd.AddCommand(newFocusStartCmd(), newFocusEndCmd(), newFocusStatusCmd())
	return cmd
}

func newFocusStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a focus session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv(ctx, newLogger())
			if err != nil {
				return err
			}
			defer cleanup()

			if !e.host.Identity().SignedIn() {
				return fmt.Errorf("not signed in: run `taskfocus login`")
			}
			if err := e.host.StartFocus(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Focus session started.")
			return nil
		},
	}
}

func newFocusEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the focus session and save its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv(ctx, newLogger())
			if err != nil {
				return err
			}
			defer cleanup()

			session, result, ok := e.host.EndFocus(ctx)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No focus session is running.")
				return nil
			}
			out := cmd.OutOrStdout()
			printSession(out, session)

			// The summary is already final locally; waiting only reports
			// whether the save went through before the process exits.
			if err := <-result; err != nil {
				return fmt.Errorf("session ended but was not saved: %w", err)
			}
			fmt.Fprintln(out, "Focus session saved successfully!")
			return nil
		},
	}
}

func newFocusStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running focus session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv(ctx, newLogger())
			if err != nil {
				return err
			}
			defer cleanup()

			session, ok := e.host.FocusSnapshot()
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "No focus session is running.")
				return nil
			}
			elapsed := e.host.FocusElapsed().Truncate(time.Second)
			fmt.Fprintf(out, "Focusing since %s (%s)\n",
				session.StartTime.Local().Format("15:04"), elapsed)
			fmt.Fprintf(out, "%d completed, %d changes\n",
				len(session.CompletedTasks), len(session.TaskChanges))
			return nil
		},
	}
}

func newSessionsCmd() *cobra.Command {
	var (
		limit          int
		asJSON, asYAML bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List past focus sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv(ctx, newLogger())
			if err != nil {
				return err
			}
			defer cleanup()

			sessions, err := e.host.Sessions(ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if done, err := writeStructured(out, asJSON, asYAML, sessions); done {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No focus sessions yet.")
				return nil
			}
			for _, s := range sessions {
				printSession(out, s)
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum sessions to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print sessions as JSON")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print sessions as YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
	return cmd
}

func printSession(w io.Writer, s model.FocusSession) {
	fmt.Fprintf(w, "%s  %s  %d completed, %d changes\n",
		s.StartTime.Local().Format("2006-01-02 15:04"),
		sessionlist.FormatSeconds(s.TimeSpent),
		len(s.CompletedTasks), len(s.TaskChanges))
	for _, c := range s.CompletedTasks {
		fmt.Fprintf(w, "  ✓ %s\n", c.Title)
	}
	for _, c := range s.TaskChanges {
		fmt.Fprintf(w, "  ~ %s (%s) at +%s\n", c.TaskTitle,
			strings.Join(c.SortedFields(), ", "), sessionlist.FormatSeconds(c.TimeSpent))
	}
}

package root

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nhle/task-focus/internal/priority"
)

func newClassifyCmd() *cobra.Command {
	var asJSON, asYAML bool

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print tasks grouped into the four quadrants",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cleanup, err := openEnv(ctx, newLogger())
			if err != nil {
				return err
			}
			defer cleanup()

			board, err := e.host.Board(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if done, err := writeStructured(out, asJSON, asYAML, board); done {
				return err
			}
			printBoard(out, board)
			for _, n := range e.host.Notices() {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", n.Level, n.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the board as JSON")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the board as YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
	return cmd
}

func printBoard(w io.Writer, board priority.Board) {
	for _, bucket := range board {
		fmt.Fprintf(w, "%s (%d)\n", bucket.Quadrant, len(bucket.Tasks))
		for _, a := range bucket.Tasks {
			line := fmt.Sprintf("  [%s] %s  %s", a.Priority, a.Title, shortID(a.ID))
			if a.HasDueDate() {
				line += "  due " + a.DueDate.UTC().Format("2006-01-02")
			}
			if a.Suggestion != "" {
				line += "  (" + a.Suggestion + ")"
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

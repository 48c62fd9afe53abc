package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the CLI version reported by --version.
const Version = "0.1.0"

var (
	configPath string
	verbose    bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskfocus",
		Short: "Prioritize tasks and track focus sessions",
		Long: `taskfocus sorts your tasks into an urgency/importance board and
journals what you complete and change while a focus session runs.

Run without a subcommand to open the board.`,
		RunE:          runBoard,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/taskfocus/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(
		newBoardCmd(),
		newClassifyCmd(),
		newTaskCmd(),
		newFocusCmd(),
		newSessionsCmd(),
		newServeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newTokenCmd(),
		newConfigCmd(),
	)
	return cmd
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	cmd := newRootCmd()
	cmd.Version = Version
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

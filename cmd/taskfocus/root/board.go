package root

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/task-focus/internal/app"
	"github.com/nhle/task-focus/internal/model"
)

func newBoardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive priority board",
		RunE:  runBoard,
	}
}

func runBoard(cmd *cobra.Command, args []string) error {
	// The TUI owns the terminal, so logs go to a file.
	logPath := filepath.Join(filepath.Dir(model.DefaultConfigPath()), "taskfocus.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := tea.LogToFile(logPath, "taskfocus ")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	logger := log.New(f, "taskfocus ", log.LstdFlags)
	e, cleanup, err := openEnv(context.Background(), logger)
	if err != nil {
		return err
	}
	defer cleanup()

	interval := time.Duration(e.cfg.Backend.PollIntervalSec) * time.Second
	p := tea.NewProgram(app.New(e.host, interval), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

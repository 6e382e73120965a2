package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/zulandar/taskboard/internal/board"
	"github.com/zulandar/taskboard/internal/config"
	"github.com/zulandar/taskboard/internal/db"
	"github.com/zulandar/taskboard/internal/models"
)

func newBoardCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "board <project>",
		Short: "Print a project's board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskboard.yaml", "path to config file")
	return cmd
}

func runBoard(cmd *cobra.Command, configPath, projectID string) error {
	godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	view, err := board.BoardView(gormDB, projectID)
	if err != nil {
		return err
	}

	renderBoard(cmd.OutOrStdout(), view)
	return nil
}

// columnLabels maps statuses to their display headings.
var columnLabels = map[board.Status]string{
	board.StatusTodo:       "To Do",
	board.StatusInProgress: "In Progress",
	board.StatusReview:     "Review",
	board.StatusDone:       "Done",
}

func renderBoard(out io.Writer, view *board.View) {
	fmt.Fprintf(out, "Board for %s\n\n", view.ProjectID)
	for _, col := range view.Columns {
		label := columnLabels[col.Status]
		if label == "" {
			label = string(col.Status)
		}
		fmt.Fprintf(out, "%s (%d)\n%s\n", label, len(col.Tasks), strings.Repeat("-", len(label)+4))
		if len(col.Tasks) == 0 {
			fmt.Fprintln(out, "  (empty)")
		}
		for _, task := range col.Tasks {
			fmt.Fprintf(out, "  %s\n", formatTaskLine(task))
		}
		fmt.Fprintln(out)
	}
}

// formatTaskLine renders one task as a single board row.
func formatTaskLine(task models.Task) string {
	line := fmt.Sprintf("[%s] %s (%s, %s)",
		task.ID, task.Title, task.Priority, humanize.Time(task.CreatedAt))
	if len(task.Assignees) > 0 {
		users := make([]string, len(task.Assignees))
		for i, a := range task.Assignees {
			users[i] = a.UserID
		}
		line += " @" + strings.Join(users, " @")
	}
	if task.Deadline != nil {
		line += fmt.Sprintf(" due %s", humanize.Time(*task.Deadline))
	}
	return line
}

package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/zulandar/taskboard/internal/board"
	"github.com/zulandar/taskboard/internal/config"
	"github.com/zulandar/taskboard/internal/db"
)

func newRenumberCmd() *cobra.Command {
	var (
		configPath string
		checkOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "renumber <project>",
		Short: "Densify a project's column positions",
		Long:  "Rewrites each column's positions to 0..n-1 without changing display order. With --check, reports duplicate positions instead of fixing them.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRenumber(cmd, configPath, args[0], checkOnly)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskboard.yaml", "path to config file")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "report duplicate positions without rewriting")
	return cmd
}

func runRenumber(cmd *cobra.Command, configPath, projectID string, checkOnly bool) error {
	godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if checkOnly {
		clean := true
		for _, status := range board.AllStatuses {
			drifts, err := board.CheckColumn(gormDB, projectID, status)
			if err != nil {
				return err
			}
			for _, d := range drifts {
				clean = false
				fmt.Fprintf(out, "%s: position %d shared by %v\n", d.Status, d.Order, d.TaskIDs)
			}
		}
		if clean {
			fmt.Fprintln(out, "No duplicate positions")
		}
		return nil
	}

	changed, err := board.RenumberProject(gormDB, projectID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Renumbered %d tasks\n", changed)
	return nil
}

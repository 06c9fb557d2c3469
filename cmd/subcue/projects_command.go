package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List stored projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			tiered, cleanup, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer cleanup()

			projects, err := tiered.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list projects: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects stored")
				return nil
			}

			rows := make([][]string, 0, len(projects))
			for _, project := range projects {
				rows = append(rows, []string{
					project.JobID,
					project.Title,
					strconv.Itoa(project.CueCount),
					project.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"JOB ID", "TITLE", "CUES", "UPDATED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

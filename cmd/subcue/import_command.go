package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"subcue/internal/config"
	"subcue/internal/language"
	"subcue/internal/srt"
	"subcue/internal/subtitle"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var jobID string
	var title string
	var lang string

	cmd := &cobra.Command{
		Use:   "import <file.srt>",
		Short: "Import an SRT file as a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve subtitle path: %w", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read subtitle file: %w", err)
			}

			cues, stats := srt.Parse(string(data))

			id := strings.TrimSpace(jobID)
			if id == "" {
				id = subtitle.NewJobID()
			}
			projectTitle := strings.TrimSpace(title)
			if projectTitle == "" {
				projectTitle = language.DeriveTitle(path)
			}

			meta := subtitle.Meta{
				JobID:    id,
				Title:    projectTitle,
				Language: strings.TrimSpace(lang),
			}

			tiered, cleanup, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer cleanup()

			snap := subtitle.ComposeSnapshot(meta, cues)
			if err := tiered.Write(cmd.Context(), id, snap); err != nil {
				return fmt.Errorf("store project: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %s as project %s (%d cues)\n", projectTitle, id, len(cues))
			if stats.Dropped > 0 {
				fmt.Fprintf(out, "Warning: %d malformed blocks were dropped\n", stats.Dropped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Project identifier (generated when omitted)")
	cmd.Flags().StringVar(&title, "title", "", "Project title (derived from the filename when omitted)")
	cmd.Flags().StringVar(&lang, "language", "", "Subtitle language code")
	return cmd
}

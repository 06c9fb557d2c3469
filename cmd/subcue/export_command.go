package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"subcue/internal/config"
	"subcue/internal/srt"
	"subcue/internal/store"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export <job-id>",
		Short: "Serialize a stored project back to SRT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tiered, cleanup, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer cleanup()

			id := strings.TrimSpace(args[0])
			snap, err := tiered.Restore(cmd.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("project %s not found", id)
			}
			if err != nil {
				return fmt.Errorf("restore project: %w", err)
			}

			text := srt.Serialize(snap.Materialize())
			if strings.TrimSpace(outputPath) == "" {
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			}

			target, err := config.ExpandPath(outputPath)
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			if err := os.WriteFile(target, []byte(text), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d cues to %s\n", len(snap.Cues), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the SRT to a file instead of stdout")
	return cmd
}

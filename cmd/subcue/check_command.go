package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subcue/internal/config"
	"subcue/internal/srt"
	"subcue/internal/store"
	"subcue/internal/subtitle"
	"subcue/internal/validate"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "check [job-id]",
		Short: "Run editorial diagnostics against a project or an SRT file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			cues, err := checkTarget(cmd, ctx, args, filePath)
			if err != nil {
				return err
			}

			limits := validate.Limits{
				MaxTextLength: cfg.Validation.MaxTextLength,
				MinDuration:   cfg.Validation.MinDuration,
				MaxDuration:   cfg.Validation.MaxDuration,
			}
			diags := validate.Check(cues, limits)

			out := cmd.OutOrStdout()
			if len(diags) == 0 {
				fmt.Fprintf(out, "%d cues, no findings\n", len(cues))
				return nil
			}

			rows := make([][]string, 0, len(diags))
			for _, diag := range diags {
				indexes := make([]string, 0, len(diag.CueIndexes))
				for _, idx := range diag.CueIndexes {
					indexes = append(indexes, strconv.Itoa(idx+1))
				}
				rows = append(rows, []string{
					string(diag.Severity),
					string(diag.Kind),
					strings.Join(indexes, ","),
					diag.Message,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"SEVERITY", "KIND", "CUES", "MESSAGE"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))

			warnings, errorCount := validate.Count(diags)
			fmt.Fprintf(out, "%d cues, %d warnings, %d errors\n", len(cues), warnings, errorCount)
			if errorCount > 0 {
				return fmt.Errorf("%d errors found", errorCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Check a raw SRT file instead of a stored project")
	return cmd
}

func checkTarget(cmd *cobra.Command, ctx *commandContext, args []string, filePath string) ([]subtitle.Cue, error) {
	if strings.TrimSpace(filePath) != "" {
		path, err := config.ExpandPath(filePath)
		if err != nil {
			return nil, fmt.Errorf("resolve subtitle path: %w", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read subtitle file: %w", err)
		}
		cues, stats := srt.Parse(string(data))
		if stats.Dropped > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Warning: %d malformed blocks were dropped\n", stats.Dropped)
		}
		return cues, nil
	}

	if len(args) == 0 {
		return nil, errors.New("a job id or --file is required")
	}

	tiered, cleanup, err := ctx.openStore()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	id := strings.TrimSpace(args[0])
	snap, err := tiered.Restore(cmd.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("project %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("restore project: %w", err)
	}
	return snap.Materialize(), nil
}

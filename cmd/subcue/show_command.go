package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subcue/internal/language"
	"subcue/internal/srt"
	"subcue/internal/store"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Print a stored project's cues",
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

			out := cmd.OutOrStdout()
			title := strings.TrimSpace(snap.Meta.Title)
			if title == "" {
				title = id
			}
			header := fmt.Sprintf("%s (%d cues", title, len(snap.Cues))
			if strings.TrimSpace(snap.Meta.Language) != "" {
				header += ", " + language.Display(snap.Meta.Language)
			}
			header += ")"
			if isTerminal(out) {
				header = ansiBlue + header + ansiReset
			}
			fmt.Fprintln(out, header)

			rows := make([][]string, 0, len(snap.Cues))
			for i, cue := range snap.Cues {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					srt.FormatTimestamp(cue.Start),
					srt.FormatTimestamp(cue.End),
					cue.Text,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "START", "END", "TEXT"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

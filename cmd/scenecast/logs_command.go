package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scenecast/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var raw bool
	var lines int
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the scenecast log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configValue().LogFilePath()
			if path == "" {
				return errors.New("logging to file is disabled (paths.log_dir is empty)")
			}
			out := cmd.OutOrStdout()
			printed := false
			emit := func(line string) {
				if rendered, ok := renderLogLine(line, runID, raw); ok {
					fmt.Fprintln(out, rendered)
					printed = true
				}
			}

			limit := lines
			if runID != "" {
				// Filtering happens after the read, so the tail window must cover the whole file.
				limit = 0
			}
			initial, offset, err := logs.Last(path, limit)
			if err != nil {
				return err
			}
			if runID != "" && lines > 0 {
				initial = lastMatching(initial, runID, lines)
			}
			for _, line := range initial {
				emit(line)
			}
			if !follow {
				if !printed {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 500*time.Millisecond, emit)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Only show entries for this run id or id prefix")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records unchanged")
	return cmd
}

// renderLogLine formats one log file line. Non-JSON lines are shown as-is
// unless a run filter is active.
func renderLogLine(line, runID string, raw bool) (string, bool) {
	entry, ok := logs.Parse(line)
	if !ok {
		return line, runID == ""
	}
	if !entry.MatchesRun(runID) {
		return "", false
	}
	if raw {
		return line, true
	}
	return entry.Format(), true
}

func lastMatching(lines []string, runID string, limit int) []string {
	var matched []string
	for _, line := range lines {
		if entry, ok := logs.Parse(line); ok && entry.MatchesRun(runID) {
			matched = append(matched, line)
		}
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}

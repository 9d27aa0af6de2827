package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scenecast/internal/runstore"
)

type runJSON struct {
	ID             string  `json:"id"`
	Prompt         string  `json:"prompt"`
	Status         string  `json:"status"`
	Stage          string  `json:"stage,omitempty"`
	ErrorKind      string  `json:"error_kind,omitempty"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	RenderAttempts int     `json:"render_attempts"`
	Strategy       string  `json:"strategy,omitempty"`
	VideoSeconds   float64 `json:"video_seconds,omitempty"`
	AudioSeconds   float64 `json:"audio_seconds,omitempty"`
	ArtifactPath   string  `json:"artifact_path,omitempty"`
	ArchiveURL     string  `json:"archive_url,omitempty"`
	CreatedAt      string  `json:"created_at"`
	FinishedAt     string  `json:"finished_at,omitempty"`
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := runstore.Open(ctx.configValue())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				out := make([]runJSON, 0, len(runs))
				for _, run := range runs {
					out = append(out, toRunJSON(run))
				}
				return writeJSON(cmd, out)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRunsTable(runs, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")

	cmd.AddCommand(newRunsShowCommand(ctx))
	cmd.AddCommand(newRunsReconcileCommand(ctx))
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := runstore.Open(ctx.configValue())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			run, err := findRun(cmd, store, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, toRunJSON(*run))
			}
			out := cmd.OutOrStdout()
			fields := [][2]string{
				{"ID", run.ID},
				{"Prompt", run.Prompt},
				{"Status", string(run.Status)},
				{"Stage", stageLabel(run.Stage)},
				{"Render attempts", strconv.Itoa(run.RenderAttempts)},
				{"Strategy", dash(run.Strategy)},
				{"Video", formatSeconds(run.VideoSeconds)},
				{"Audio", formatSeconds(run.AudioSeconds)},
				{"Artifact", dash(run.ArtifactPath)},
				{"Archive", dash(run.ArchiveURL)},
				{"Started", run.CreatedAt.Local().Format(time.DateTime)},
				{"Duration", formatDuration(run.Duration(time.Now()))},
			}
			if run.Status == runstore.StatusFailed {
				fields = append(fields, [2]string{"Error", run.ErrorKind + ": " + run.ErrorMessage})
			}
			for _, field := range fields {
				fmt.Fprintf(out, "%-16s %s\n", field[0]+":", field[1])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newRunsReconcileCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Mark runs stuck in the running state as failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := runstore.Open(ctx.configValue())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			n, err := store.MarkAbandoned(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d abandoned run(s) failed\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", abandonedRunAge, "Minimum age of a running run to treat as abandoned")
	return cmd
}

// findRun resolves a full id or a unique prefix among recent runs.
func findRun(cmd *cobra.Command, store *runstore.Store, id string) (*runstore.Run, error) {
	if id == "" {
		return nil, errors.New("run id required")
	}
	run, err := store.Get(cmd.Context(), id)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, runstore.ErrNotFound) {
		return nil, err
	}
	runs, err := store.List(cmd.Context(), 500)
	if err != nil {
		return nil, err
	}
	var match *runstore.Run
	for i := range runs {
		if strings.HasPrefix(runs[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
			}
			match = &runs[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("run %s: %w", id, runstore.ErrNotFound)
	}
	return match, nil
}

func renderRunsTable(runs []runstore.Run, now time.Time) string {
	columns := []tableColumn{
		leftColumn("ID"),
		leftColumn("Status"),
		leftColumn("Stage"),
		rightColumn("Attempts"),
		leftColumn("Strategy"),
		rightColumn("Duration"),
		leftColumn("Prompt"),
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			string(run.Status),
			stageLabel(run.Stage),
			strconv.Itoa(run.RenderAttempts),
			dash(run.Strategy),
			formatDuration(run.Duration(now)),
			truncate(run.Prompt, 48),
		})
	}
	return renderTable(columns, rows)
}

func toRunJSON(run runstore.Run) runJSON {
	out := runJSON{
		ID:             run.ID,
		Prompt:         run.Prompt,
		Status:         string(run.Status),
		Stage:          run.Stage,
		ErrorKind:      run.ErrorKind,
		ErrorMessage:   run.ErrorMessage,
		RenderAttempts: run.RenderAttempts,
		Strategy:       run.Strategy,
		VideoSeconds:   run.VideoSeconds,
		AudioSeconds:   run.AudioSeconds,
		ArtifactPath:   run.ArtifactPath,
		ArchiveURL:     run.ArchiveURL,
		CreatedAt:      run.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		out.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scenecast/internal/preflight"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var keepWorkDir bool
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "generate <prompt words...>",
		Short: "Generate a narrated video for a topic prompt",
		Long: `Generate runs the whole pipeline for one prompt: scene script, timeline,
narration, voice, render with repair, audio/video sync, and publication to
<output_dir>/final_output.mp4. All arguments are joined with spaces.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return errors.New("a prompt is required: scenecast generate <prompt words...>")
			}
			cfg := ctx.configValue()
			if keepWorkDir {
				cfg.Paths.KeepWorkDir = true
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if !skipPreflight {
				if err := preflight.Error(preflight.RunAll(cmd.Context(), cfg)); err != nil {
					return err
				}
			}

			store := ctx.openStore(logger)
			if store != nil {
				defer store.Close()
			}
			pipe, err := ctx.newPipeline(cmd.Context(), logger, store)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}

			result, err := pipe.Run(cmd.Context(), prompt)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}
			defer result.Release()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Video saved to %s\n", result.ArtifactPath)
			fmt.Fprintf(out, "Run %s: %d render attempt(s), %s, video %.2fs, audio %.2fs, took %s\n",
				result.RunID, result.RenderAttempts, result.Strategy, result.VideoSeconds, result.AudioSeconds,
				formatDuration(result.Elapsed))
			if result.ArchiveURL != "" {
				fmt.Fprintf(out, "Archived to %s\n", result.ArchiveURL)
			}
			if cfg.Paths.KeepWorkDir {
				fmt.Fprintf(out, "Work directory kept at %s\n", result.State.Dir)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepWorkDir, "keep-work-dir", false, "Keep the run directory after completion")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip tool and directory checks")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"scenecast/internal/bootstrap"
)

func newRootCommand() *cobra.Command {
	return newRootCommandWithOptions(bootstrap.Options{})
}

// newRootCommandWithOptions builds the command tree with pipeline overrides.
func newRootCommandWithOptions(opts bootstrap.Options) *cobra.Command {
	var configFlag string
	var envFlag string

	ctx := newCommandContext(&configFlag, &envFlag)
	ctx.pipelineOptions = opts

	rootCmd := &cobra.Command{
		Use:           "scenecast",
		Short:         "Turn a topic prompt into a narrated explainer video",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env-file", "", "Dotenv file loaded before configuration (default .env)")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

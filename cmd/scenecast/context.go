package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"scenecast/internal/bootstrap"
	"scenecast/internal/config"
	"scenecast/internal/logging"
	"scenecast/internal/pipeline"
	"scenecast/internal/runstore"
)

type commandContext struct {
	configFlag *string
	envFlag    *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	// pipelineOptions lets tests swap the model and process executor.
	pipelineOptions bootstrap.Options
}

func newCommandContext(configFlag, envFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		envFlag:    envFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var envPath string
		if c.envFlag != nil {
			envPath = strings.TrimSpace(*c.envFlag)
		}
		if err := config.LoadEnvFile(envPath); err != nil {
			c.configErr = err
			return
		}
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	return logging.NewFromConfig(c.configValue())
}

// openStore opens run history. A store failure is logged and the command
// continues without history.
func (c *commandContext) openStore(logger *slog.Logger) *runstore.Store {
	store, err := runstore.Open(c.configValue())
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "runstore_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "runs will not be recorded"),
		)
		return nil
	}
	return store
}

func (c *commandContext) newPipeline(ctx context.Context, logger *slog.Logger, store *runstore.Store) (*pipeline.Pipeline, error) {
	opts := c.pipelineOptions
	if store != nil && opts.Recorder == nil {
		opts.Recorder = store
	}
	return bootstrap.NewPipeline(ctx, c.configValue(), logger, opts)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

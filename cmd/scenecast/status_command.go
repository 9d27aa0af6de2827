package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scenecast/internal/config"
	"scenecast/internal/preflight"
	"scenecast/internal/runstore"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset        = "\x1b[0m"
	statusLabelWidth = 20
)

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report configuration, tool, and service readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			section := func(title string) {
				if len(lines) > 0 {
					lines = append(lines, "")
				}
				lines = append(lines, renderSectionHeader(title, colorize)...)
			}
			add := func(label string, kind statusKind, message string) {
				lines = append(lines, renderStatusLine(label, kind, message, colorize))
			}

			section("Configuration")
			if ctx.configPath != "" {
				add("Config file", statusInfo, ctx.configPath)
			} else {
				add("Config file", statusInfo, "defaults")
			}
			llmCfg := cfg.GetLLM()
			add("Model", statusInfo, fmt.Sprintf("%s (%s)", llmCfg.Model, llmCfg.Provider))
			add("Keep work dir", statusInfo, yesNo(cfg.Paths.KeepWorkDir))

			section("Dependencies")
			for _, status := range preflight.CheckSystemDeps(cfg) {
				switch {
				case status.Available:
					add(status.Name, statusOK, status.Path)
				case status.Optional:
					add(status.Name, statusWarn, status.Detail)
				default:
					add(status.Name, statusError, status.Detail+" ("+status.Description+")")
				}
			}

			section("Directories")
			for _, dir := range []struct{ label, path string }{
				{"Work", cfg.Paths.WorkDir},
				{"Output", cfg.Paths.OutputDir},
				{"State", cfg.Paths.StateDir},
				{"Logs", cfg.Paths.LogDir},
			} {
				result := preflight.CheckDirectoryAccess(dir.label, dir.path)
				add(dir.label, resultKind(result, statusError), result.Detail)
			}

			section("Services")
			if offline {
				add("LLM", statusInfo, "skipped (--offline)")
			} else {
				result := preflight.CheckLLM(cmd.Context(), "LLM", llmCfg)
				add("LLM", resultKind(result, statusError), result.Detail)
			}
			archive := preflight.CheckArchive(cfg.Archive)
			if !cfg.Archive.Enabled {
				add("Archive", statusWarn, archive.Detail)
			} else {
				add("Archive", resultKind(archive, statusError), archive.Detail)
			}

			if topic := cfg.Notifications.NtfyTopic; topic != "" {
				add("Notifications", statusOK, topic)
			} else {
				add("Notifications", statusWarn, "Disabled")
			}

			section("Runs")
			lines = append(lines, runStatsLines(cmd, cfg, colorize)...)

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the model API health check")
	return cmd
}

func runStatsLines(cmd *cobra.Command, cfg *config.Config, colorize bool) []string {
	store, err := runstore.Open(cfg)
	if err != nil {
		return []string{renderStatusLine("History", statusWarn, err.Error(), colorize)}
	}
	defer store.Close()
	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return []string{renderStatusLine("History", statusWarn, err.Error(), colorize)}
	}
	failedKind := statusInfo
	if stats[runstore.StatusFailed] > 0 {
		failedKind = statusWarn
	}
	return []string{
		renderStatusLine("Succeeded", statusInfo, fmt.Sprint(stats[runstore.StatusSucceeded]), colorize),
		renderStatusLine("Failed", failedKind, fmt.Sprint(stats[runstore.StatusFailed]), colorize),
		renderStatusLine("Running", statusInfo, fmt.Sprint(stats[runstore.StatusRunning]), colorize),
	}
}

func resultKind(result preflight.Result, failure statusKind) statusKind {
	if result.Passed {
		return statusOK
	}
	return failure
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	statusText := "[" + style.label + "]"
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", statusText)
	if colorize {
		return style.color + base + ansiReset
	}
	return base
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		color := statusStyles[statusInfo].color
		line = color + line + ansiReset
		rule = color + rule + ansiReset
	}
	return []string{line, rule}
}

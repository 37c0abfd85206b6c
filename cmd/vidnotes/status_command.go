package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"vidnotes/internal/cache"
	"vidnotes/internal/config"
	"vidnotes/internal/deps"
	"vidnotes/internal/language"
	"vidnotes/internal/logging"
	"vidnotes/internal/preflight"
	"vidnotes/internal/session"
)

type statusReport struct {
	ConfigPath   string                 `json:"config_path"`
	ConfigFound  bool                   `json:"config_found"`
	Engine       string                 `json:"engine"`
	Strategy     string                 `json:"strategy"`
	Backend      string                 `json:"backend"`
	Dependencies []deps.Status          `json:"dependencies"`
	Checks       []preflight.Result     `json:"checks"`
	Sessions     map[session.Status]int `json:"sessions,omitempty"`
	CacheEntries int                    `json:"cache_entries"`
	CacheDetail  string                 `json:"cache_detail,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, model endpoints, and retained sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{
				ConfigPath:   ctx.configPath,
				ConfigFound:  ctx.configSeen,
				Engine:       cfg.Transcription.Engine,
				Strategy:     cfg.Notes.Strategy,
				Backend:      cfg.Summarization.Backend,
				Dependencies: preflight.CheckSystemDeps(cfg),
				Checks:       preflight.RunAll(cmd.Context(), cfg),
			}
			if store, err := ctx.openStore(); err == nil {
				if stats, err := store.Stats(cmd.Context()); err == nil {
					report.Sessions = stats
				}
				store.Close()
			}
			report.CacheEntries, report.CacheDetail = cacheStatus(cfg)

			if jsonOutput {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.Join(renderStatusReport(report, cfg, shouldColorize(out)), "\n"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func renderStatusReport(report statusReport, cfg *config.Config, colorize bool) []string {
	var lines []string

	lines = append(lines, renderSectionHeader("Configuration", colorize)...)
	configMsg := report.ConfigPath
	configKind := statusOK
	if !report.ConfigFound {
		configMsg = "defaults (no file at " + report.ConfigPath + ")"
		configKind = statusInfo
	}
	lines = append(lines,
		renderStatusLine("Config", configKind, configMsg, colorize),
		renderStatusLine("Transcription", statusInfo, engineLabel(cfg), colorize),
		renderStatusLine("Language", statusInfo, language.DisplayName(cfg.Transcription.Language), colorize),
		renderStatusLine("Summarizer", statusInfo, report.Backend+" ("+report.Strategy+" notes)", colorize),
		renderCacheLine(report, cfg, colorize),
		renderStatusLine("API token", statusInfo, yesNo(cfg.Server.APIToken != ""), colorize),
		renderStatusLine("Notifications", statusInfo, yesNo(cfg.Notifications.NtfyTopic != ""), colorize),
	)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	for _, dep := range report.Dependencies {
		kind := statusOK
		msg := dep.Command
		if !dep.Available {
			kind = statusError
			if dep.Optional {
				kind = statusWarn
			}
			msg = dep.Detail
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, msg, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Checks", colorize)...)
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}

	if len(report.Sessions) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Sessions", colorize)...)
		statuses := make([]string, 0, len(report.Sessions))
		for status := range report.Sessions {
			statuses = append(statuses, string(status))
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			lines = append(lines, renderStatusLine(titleCase(status), statusInfo,
				fmt.Sprintf("%d", report.Sessions[session.Status(status)]), colorize))
		}
	}
	return lines
}

// cacheStatus counts cached transcripts. The cache directory is locked while a
// server or another CLI run holds it open; that is reported, not treated as an error.
func cacheStatus(cfg *config.Config) (int, string) {
	if !cfg.Cache.Enabled {
		return 0, ""
	}
	store, err := cache.Open(cfg.Cache.Dir, cfg.CacheTTL(), logging.NewNop())
	if err != nil {
		return 0, "unavailable (in use by another vidnotes process?)"
	}
	defer store.Close()
	count, err := store.Count()
	if err != nil {
		return 0, "count failed: " + err.Error()
	}
	return count, ""
}

func renderCacheLine(report statusReport, cfg *config.Config, colorize bool) string {
	switch {
	case !cfg.Cache.Enabled:
		return renderStatusLine("Transcript cache", statusInfo, "no", colorize)
	case report.CacheDetail != "":
		return renderStatusLine("Transcript cache", statusWarn, report.CacheDetail, colorize)
	default:
		return renderStatusLine("Transcript cache", statusInfo,
			fmt.Sprintf("yes (%d entr%s)", report.CacheEntries, pluralY(report.CacheEntries)), colorize)
	}
}

func engineLabel(cfg *config.Config) string {
	switch cfg.Transcription.Engine {
	case config.EngineOpenAI:
		return "openai (" + cfg.Transcription.OpenAIModel + ")"
	default:
		label := cfg.Transcription.Engine + " (" + cfg.Transcription.Model
		if cfg.Transcription.CUDAEnabled {
			label += ", cuda"
		}
		return label + ")"
	}
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

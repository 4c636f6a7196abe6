// Package main provides the CLI entrypoint for ghstreak.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/ghstreak/internal/config"
	"github.com/verte-zerg/ghstreak/internal/github"
	"github.com/verte-zerg/ghstreak/internal/logging"
	"github.com/verte-zerg/ghstreak/internal/model"
	"github.com/verte-zerg/ghstreak/internal/panel"
	"github.com/verte-zerg/ghstreak/internal/refresh"
	"github.com/verte-zerg/ghstreak/internal/stats"
	"github.com/verte-zerg/ghstreak/internal/store"
)

const (
	defaultWindow   = "365d"
	defaultInterval = "1h"
	defaultFormat   = "label"
)

var (
	flagUser    string
	flagWindow  string
	flagOffline bool
	flagVerbose bool

	outputJSON   bool
	outputFormat string

	watchInterval string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ghstreak",
		Short:         "GitHub contribution streak statistics",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runStatsCmd,
	}

	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "GitHub login to report on")
	rootCmd.PersistentFlags().StringVar(&flagWindow, "window", defaultWindow, "trailing window for the activity total (e.g. 30d, 52w)")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "use the cached calendar without contacting GitHub")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().BoolVar(&outputJSON, "json", false, "print the statistics record as JSON")
	rootCmd.Flags().StringVar(&outputFormat, "format", defaultFormat, "output format: label, menu or table")

	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCacheCmd())

	return rootCmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	logger := logging.Setup(cmd.ErrOrStderr(), flagVerbose)

	if err := validateFormat(outputFormat); err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st, closeStore := openCache()
	defer closeStore()

	ctx := cmd.Context()
	var upd refresh.Update
	if cfg.Offline {
		upd, err = loadOffline(ctx, st, cfg, time.Now())
		if err != nil {
			return err
		}
	} else {
		upd = newScheduler(cfg, st, logger).Refresh(ctx)
		if !upd.HasRecord() {
			return upd.Err
		}
		if upd.Err != nil {
			log.Warn().Err(upd.Err).Time("fetched_at", upd.FetchedAt).Msg("showing cached statistics")
		}
	}

	return writeOutput(cmd.OutOrStdout(), upd, outputFormat, outputJSON, terminalWidth(cmd.OutOrStdout()))
}

// resolveConfig merges flags, environment and the config file. Flags win over
// the environment, which wins over the file.
func resolveConfig(cmd *cobra.Command) (model.Config, error) {
	configPath := config.DefaultConfigPath()
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	user := flagUser
	applyStringConfig(cmd, "user", &user, fileCfg.GitHub.User)
	applyEnvConfig(cmd, "user", &user, config.UserFromEnv())

	window := flagWindow
	applyStringConfig(cmd, "window", &window, fileCfg.Stats.Window)
	lookback, err := config.ParseLookback(window)
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid --window value: %w", err)
	}

	interval := defaultInterval
	if watchInterval != "" {
		interval = watchInterval
	}
	applyStringConfig(cmd, "interval", &interval, fileCfg.Refresh.Interval)
	refreshEvery, err := time.ParseDuration(strings.TrimSpace(interval))
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid refresh interval %q: %w", interval, err)
	}

	var token, endpoint string
	applyStringConfig(cmd, "", &token, fileCfg.GitHub.Token)
	applyEnvConfig(cmd, "", &token, config.TokenFromEnv())
	applyStringConfig(cmd, "", &endpoint, fileCfg.GitHub.Endpoint)

	cfg := model.Config{
		User:     strings.TrimSpace(user),
		Token:    strings.TrimSpace(token),
		Endpoint: strings.TrimSpace(endpoint),
		Lookback: lookback,
		Interval: refreshEvery,
		Offline:  flagOffline,
	}
	if err := validateConfig(cfg, configPath); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.Config, configPath string) error {
	if cfg.User == "" {
		return fmt.Errorf("no GitHub user configured: pass --user, set GHSTREAK_USER or github.user in %s", configPath)
	}
	if !cfg.Offline && cfg.Token == "" {
		return fmt.Errorf("no GitHub token configured: set GITHUB_TOKEN or github.token in %s", configPath)
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("refresh interval must be > 0")
	}
	return nil
}

func validateFormat(format string) error {
	switch format {
	case "label", "menu", "table":
		return nil
	default:
		return fmt.Errorf("--format must be one of label, menu, table")
	}
}

// openCache opens the snapshot cache. The tool keeps working without it, so
// failures are only logged.
func openCache() (*store.Store, func()) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		log.Warn().Err(err).Msg("failed to open cache")
		return nil, func() {}
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to close cache")
		}
	}
}

func newScheduler(cfg model.Config, st *store.Store, logger zerolog.Logger) *refresh.Scheduler {
	client := github.New(cfg.Token,
		github.WithEndpoint(cfg.Endpoint),
		github.WithLogger(logger),
	)
	var cache refresh.Cache
	if st != nil {
		cache = st
	}
	return refresh.New(refresh.Options{
		Login:    cfg.User,
		Lookback: cfg.Lookback,
		Interval: cfg.Interval,
		Fetcher:  client,
		Cache:    cache,
	})
}

func loadOffline(ctx context.Context, st *store.Store, cfg model.Config, now time.Time) (refresh.Update, error) {
	if st == nil {
		return refresh.Update{}, fmt.Errorf("cache is unavailable; run without --offline")
	}
	snap, err := st.LoadSnapshot(ctx, cfg.User)
	if errors.Is(err, store.ErrNoSnapshot) {
		return refresh.Update{}, fmt.Errorf("no cached calendar for %s; run without --offline first", cfg.User)
	}
	if err != nil {
		return refresh.Update{}, fmt.Errorf("failed to load cached calendar: %w", err)
	}
	return refresh.FromSnapshot(snap, now, cfg.Lookback, nil), nil
}

type statsOutput struct {
	Login string `json:"login"`
	model.StatisticsRecord
	WindowDays         int       `json:"windowDays"`
	TotalContributions int       `json:"totalContributions"`
	FetchedAt          time.Time `json:"fetchedAt"`
	Stale              bool      `json:"stale"`
}

// writeOutput prints upd in the requested format. sparkWidth > 0 appends a
// daily activity strip to the menu and table formats.
func writeOutput(w io.Writer, upd refresh.Update, format string, asJSON bool, sparkWidth int) error {
	rec := upd.Record
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statsOutput{
			Login:              upd.Login,
			StatisticsRecord:   rec,
			WindowDays:         rec.WindowDays(),
			TotalContributions: upd.TotalContributions,
			FetchedAt:          upd.FetchedAt,
			Stale:              upd.Stale,
		})
	}

	switch format {
	case "menu":
		if err := panel.RenderMenu(w, panel.Menu(rec)); err != nil {
			return err
		}
	case "table":
		if err := panel.RenderTable(w, panel.Menu(rec)); err != nil {
			return err
		}
	default:
		_, err := fmt.Fprintln(w, panel.Label(rec))
		return err
	}

	if _, err := fmt.Fprintf(w, "\nTotal contributions: %d\n", upd.TotalContributions); err != nil {
		return err
	}
	if sparkWidth <= 0 {
		return nil
	}
	days := rec.WindowDays()
	if days < 1 {
		days = 1
	}
	if days > sparkWidth {
		days = sparkWidth
	}
	spark := stats.Sparkline(stats.DailyCounts(upd.Series, upd.ComputedAt, days))
	_, err := fmt.Fprintf(w, "[%s]\n", spark)
	return err
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 2 {
		return 0
	}
	return width - 2
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o600); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if name != "" && cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyEnvConfig(cmd *cobra.Command, name string, target *string, value string) {
	if value == "" {
		return
	}
	if name != "" && cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# ghstreak configuration
# Uncomment a value to enable it. CLI flags and environment variables
# (GHSTREAK_USER, GHSTREAK_TOKEN, GITHUB_TOKEN) override config values.

[github]
# user = "octocat"        # Login to report on
# token = ""              # Personal access token with read:user scope
# endpoint = %q

[stats]
# window = %q          # Trailing window for the activity total

[refresh]
# interval = %q          # How often watch mode refetches the calendar
`,
		github.DefaultEndpoint,
		defaultWindow,
		defaultInterval,
	)
}

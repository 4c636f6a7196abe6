package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/verte-zerg/ghstreak/internal/config"
	"github.com/verte-zerg/ghstreak/internal/logging"
	"github.com/verte-zerg/ghstreak/internal/refresh"
	"github.com/verte-zerg/ghstreak/internal/statsui"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a live panel that refreshes periodically",
		Args:  cobra.NoArgs,
		RunE:  runWatchCmd,
	}
	cmd.Flags().StringVar(&watchInterval, "interval", defaultInterval, "refresh interval (e.g. 30m, 1h)")
	return cmd
}

func runWatchCmd(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("watch needs an interactive terminal; use ghstreak --format menu instead")
	}

	logFile, err := openLogFile(config.DefaultLogPath())
	if err != nil {
		return err
	}
	defer func() {
		_ = logFile.Close()
	}()
	logger := logging.Setup(logFile, flagVerbose)

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st, closeStore := openCache()
	defer closeStore()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var refresher statsui.Refresher
	var updates <-chan refresh.Update
	if cfg.Offline {
		upd, err := loadOffline(gctx, st, cfg, time.Now())
		if err != nil {
			return err
		}
		cached := make(chan refresh.Update, 1)
		cached <- upd
		close(cached)
		updates = cached
	} else {
		sched := newScheduler(cfg, st, logger)
		scheduled := make(chan refresh.Update)
		refresher = sched
		updates = scheduled
		g.Go(func() error {
			if err := sched.Run(gctx, scheduled); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	panelModel := statsui.NewModel(gctx, refresher, updates)
	program := tea.NewProgram(panelModel, tea.WithAltScreen(), tea.WithContext(gctx))
	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("failed to run watch TUI: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/ghstreak/internal/config"
	"github.com/verte-zerg/ghstreak/internal/panel"
	"github.com/verte-zerg/ghstreak/internal/store"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "List cached calendars",
		Args:  cobra.NoArgs,
		RunE:  runCacheListCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear [login...]",
		Short: "Remove cached calendars (all when no login is given)",
		RunE:  runCacheClearCmd,
	})
	return cmd
}

func runCacheListCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close cache: %v\n", cerr)
		}
	}()

	entries, err := st.ListEntries(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list cache: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No cached calendars.")
		return err
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.Login,
			entry.FetchedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(entry.Days),
			strconv.Itoa(entry.TotalContributions),
		})
	}
	headers := []string{"Login", "Fetched", "Days", "Total"}
	return panel.WriteTable(out, headers, rows, map[int]bool{2: true, 3: true})
}

func runCacheClearCmd(cmd *cobra.Command, args []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close cache: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	logins := args
	if len(logins) == 0 {
		entries, err := st.ListEntries(ctx)
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}
		for _, entry := range entries {
			logins = append(logins, entry.Login)
		}
	}
	for _, login := range logins {
		if err := st.DeleteSnapshot(ctx, login); err != nil {
			return fmt.Errorf("failed to remove cached calendar for %s: %w", login, err)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed cached calendar for %s\n", login); err != nil {
			return err
		}
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

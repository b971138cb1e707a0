package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/weather-desk/internal/config"
	"github.com/kjstillabower/weather-desk/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var clearAll bool
	var remove string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show, prune or clear the recent search history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOffline()
			if err != nil {
				return err
			}
			searches, err := history.Open(cfg.HistoryFile, cfg.HistoryMaxEntries)
			if err != nil {
				return fmt.Errorf("search history: %w", err)
			}
			out := cmd.OutOrStdout()
			switch {
			case clearAll:
				if err := searches.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(out, "Search history cleared")
				return nil
			case remove != "":
				removed, err := searches.Remove(remove)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("%q is not in the search history", remove)
				}
				fmt.Fprintf(out, "Removed %s\n", remove)
				return nil
			}
			entries := searches.List()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No recent searches")
				return nil
			}
			for i, city := range entries {
				fmt.Fprintf(out, "%2d. %s\n", i+1, city)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "remove every entry")
	cmd.Flags().StringVar(&remove, "remove", "", "remove one city")
	cmd.MarkFlagsMutuallyExclusive("clear", "remove")
	return cmd
}

// Command weatherdesk serves the weather desk HTTP API and offers one-shot commands
// for lookups, search history, contacts and user accounts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "weatherdesk",
		Short:         "Weather lookups, search history and a small contact book",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newWeatherCmd(),
		newHistoryCmd(),
		newContactsCmd(),
		newUsersCmd(),
	)
	return root
}

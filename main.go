// questradar watches Galxe spaces for newly published campaigns and pushes a
// notification to Telegram and/or Discord when one appears.
//
// Usage:
//
//	questradar serve
//	questradar projects add "BNB Chain" bnbchain --category trending
//	questradar targets add ops <bot-token> -1001234567890
//	questradar notify set telegram
//	questradar notify test
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ObiAU/questradar/internal/config"
)

var (
	version    = "dev"
	configPath string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "questradar",
		Short: "Monitor Galxe spaces and notify on new campaigns",
		Long: `questradar polls the Galxe GraphQL API for the latest campaign of every
tracked space, classifies it and sends a notification when a new campaign
appears. Projects, notify targets and the notify method live in a JSON
configuration file that the poller re-reads every cycle.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the JSON configuration file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(targetsCmd())
	rootCmd.AddCommand(notifyCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// openStore creates the configuration file with defaults on first use.
func openStore(cmd *cobra.Command) (*config.Store, error) {
	store := config.NewStore(configPath)
	created, err := store.Ensure()
	if err != nil {
		return nil, err
	}
	if created {
		fmt.Fprintf(cmd.ErrOrStderr(), "Created default configuration at %s\n", store.Path())
	}
	return store, nil
}

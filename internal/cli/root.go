// Package cli defines the beacon command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/soyeahso/beacon/internal/config"
)

var (
	cfgFile  string
	logLevel string

	// resolved at init time
	paths config.Paths
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "beacon",
		Short: "Beacon — conversational assistant engine",
		Long:  "Beacon runs model-backed conversations over the console, a WebSocket gateway, or IRC, with persistent history and tool calling.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.beacon/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIRCCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

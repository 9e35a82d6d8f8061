package cli

import (
	"github.com/spf13/cobra"

	"github.com/soyeahso/beacon/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of beacon",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.Info())
		},
	}
}

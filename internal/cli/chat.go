package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soyeahso/beacon/internal/platform/console"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant on the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			repl := console.New(rt.hub, os.Stdin, os.Stdout, rt.log)
			return repl.Run(ctx)
		},
	}
}

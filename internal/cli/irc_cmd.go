package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soyeahso/beacon/internal/platform/irc"
)

func newIRCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "irc",
		Short: "Connect the assistant to an IRC network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.cfg.IRC == nil {
				return errors.New("irc is not configured; set irc.server and irc.nick in the config file")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			bridge := irc.New(*rt.cfg.IRC, rt.hub, rt.log)
			if err := bridge.Run(ctx); errors.Is(err, context.Canceled) {
				return nil
			} else if err != nil {
				return err
			}
			return nil
		},
	}
}

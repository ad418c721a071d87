package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func newStreamCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stream <message>",
		Short: "Stream a reply token by token (no skills); Ctrl-C stops and keeps the partial reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			text := joinArgs(args)
			if text == "" {
				return errors.New("empty message")
			}

			a, err := newApp(cmd.Context(), appOptions{
				configPath: flags.configPath,
				onStatus:   flags.statusPrinter(stderr),
			})
			if err != nil {
				return err
			}
			defer a.Close()

			// First Ctrl-C cancels cooperatively; the default handler is
			// restored so a second one exits immediately.
			interrupts := make(chan os.Signal, 1)
			signal.Notify(interrupts, os.Interrupt)
			done := make(chan struct{})
			defer close(done)
			go func() {
				select {
				case <-interrupts:
					signal.Stop(interrupts)
					a.orchestrator.Cancel()
				case <-done:
					signal.Stop(interrupts)
				}
			}()

			printed := 0
			reply, err := a.orchestrator.Stream(cmd.Context(), flags.conversation(stderr), text, func(accumulated string) {
				fmt.Fprint(stdout, accumulated[printed:])
				printed = len(accumulated)
			})
			if printed > 0 {
				fmt.Fprintln(stdout)
			}
			if a.orchestrator.Session().Cancelled {
				fmt.Fprintln(stderr, "(stopped)")
			}
			if err != nil {
				return err
			}
			if reply == nil && !a.orchestrator.Session().Cancelled {
				fmt.Fprintln(stderr, "(empty reply)")
			}
			return nil
		},
	}
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leofalp/owlseer/providers/ai"
)

func newChatCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask a question; the advisor may call its skills",
		Long: "Runs one turn of the tool-calling loop. Without a message, reads one " +
			"message per line from stdin until EOF, keeping the same conversation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

			interactive := len(args) == 0
			a, err := newApp(cmd.Context(), appOptions{
				configPath: flags.configPath,
				watch:      interactive,
				onStatus:   flags.statusPrinter(stderr),
			})
			if err != nil {
				return err
			}
			defer a.Close()

			conversationID := flags.conversation(stderr)
			if !interactive {
				return chatTurn(cmd, a, conversationID, joinArgs(args), stdout)
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(stderr, "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if err := chatTurn(cmd, a, conversationID, text, stdout); err != nil {
					// Keep the session alive; the next line may succeed.
					fmt.Fprintf(stderr, "Error: %v\n", err)
					if hint := hintFor(err); hint != "" {
						fmt.Fprintln(stderr, hint)
					}
				}
			}
		},
	}
}

func chatTurn(cmd *cobra.Command, a *app, conversationID, text string, stdout io.Writer) error {
	if text == "" {
		return errors.New("empty message")
	}
	messages, err := a.orchestrator.Run(cmd.Context(), conversationID, text)
	if err != nil {
		return err
	}
	if last := messages[len(messages)-1]; last.Role == ai.RoleAssistant {
		fmt.Fprintln(stdout, last.Content)
	}
	return nil
}

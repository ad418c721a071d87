package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leofalp/owlseer/patterns/agent"
	"github.com/leofalp/owlseer/providers/ai"
)

type rootFlags struct {
	configPath     string
	conversationID string
	verbose        bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "owlseer",
		Short:         "TikTok content advisor in your terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv("OWLSEER_CONFIG"), "config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&flags.conversationID, "conversation", "", "conversation id to continue (default: a new one)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "print agent status changes")

	root.AddCommand(
		newChatCommand(flags),
		newStreamCommand(flags),
		newToolsCommand(flags),
		newQuotaCommand(flags),
		newVersionCommand(),
	)
	return root
}

// conversation returns the id from --conversation or a fresh one, and tells
// the user which one is in use so they can continue it.
func (f *rootFlags) conversation(stderr io.Writer) string {
	if f.conversationID != "" {
		return f.conversationID
	}
	id := uuid.NewString()
	fmt.Fprintf(stderr, "conversation: %s\n", id)
	return id
}

func (f *rootFlags) statusPrinter(stderr io.Writer) func(agent.Status) {
	if !f.verbose {
		return nil
	}
	return func(status agent.Status) {
		switch status.Kind {
		case agent.StatusCallingTool:
			fmt.Fprintf(stderr, "· calling %s\n", status.Detail)
		case agent.StatusThinking, agent.StatusStreaming:
			fmt.Fprintf(stderr, "· %s\n", status)
		}
	}
}

// hintFor suggests a fix for errors the user can act on.
func hintFor(err error) string {
	switch {
	case errors.Is(err, agent.ErrQuotaExceeded):
		return "Set llm.mode to custom with your own API key to keep chatting."
	case errors.Is(err, agent.ErrNoProviderConfigured):
		return "Set OWLSEER_BUILTIN_API_KEY, or configure custom.provider and custom.api_key."
	case errors.Is(err, agent.ErrMaxIterationsReached):
		return "The model kept calling tools. Try rephrasing the request."
	default:
		return ai.Hint(err)
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

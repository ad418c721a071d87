package main

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/leofalp/owlseer/config"
	"github.com/leofalp/owlseer/internal/utils"
	"github.com/leofalp/owlseer/internal/version"
)

func newToolsCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the skills offered to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), appOptions{configPath: flags.configPath})
			if err != nil {
				return err
			}
			defer a.Close()

			table := uitable.New()
			table.MaxColWidth = 70
			table.Wrap = true
			table.AddRow("NAME", "KIND", "DESCRIPTION")
			for _, definition := range a.executor.AvailableTools() {
				table.AddRow(definition.Name, string(definition.SkillKind), definition.Description)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			if !a.executor.SearchEnabled() {
				fmt.Fprintln(cmd.OutOrStdout(), "\nweb_search is disabled; set search.tavily_api_key or search.serpapi_api_key to enable it.")
			}
			return nil
		},
	}
}

func newQuotaCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show the provider mode and today's free quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), appOptions{configPath: flags.configPath})
			if err != nil {
				return err
			}
			defer a.Close()

			settings := a.config.Settings()
			table := uitable.New()
			table.RightAlign(0)
			table.Separator = " "
			table.AddRow("mode:", settings.LLM.Mode)
			if resolved, err := settings.Resolve(); err == nil {
				table.AddRow("provider:", string(resolved.Kind))
				table.AddRow("model:", resolved.Model)
				table.AddRow("endpoint:", resolved.BaseURL)
			} else {
				table.AddRow("provider:", utils.TruncateString(err.Error(), 80))
			}
			if settings.LLM.Mode == config.ModeBuiltin {
				table.AddRow("quota:", a.limiter.StatusText())
			} else {
				table.AddRow("quota:", "unlimited (own API key)")
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			switch output {
			case "json":
				text, err := info.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
			case "short":
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
			default:
				fmt.Fprintln(cmd.OutOrStdout(), info.Text())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, short)")
	return cmd
}

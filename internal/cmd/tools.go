package cmd

import (
	"github.com/spf13/cobra"

	"github.com/blencorp/capture-mcp-server/internal/output"
	"github.com/blencorp/capture-mcp-server/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available tools",
	Long:  "List every tool the server exposes, with parameters. Required parameters are marked with *.",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatName, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		format, err := output.ParseFormat(formatName)
		if err != nil {
			return err
		}

		rendered, err := output.FormatCatalog(format, tools.Catalog())
		if err != nil {
			return err
		}
		cmd.Println(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().String("output", "table", "Output format: table, json, markdown")
}

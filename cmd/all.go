package cmd

import (
	"github.com/spf13/cobra"
)

func NewAllCmd() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Generate the folder structure and its files",
		Long: `Generate the full output: the folder hierarchy, a metadata sidecar
per folder, and the files inside each folder.

Examples:
  arbordoc all -i "Healthcare" -p ./out
  arbordoc all -i "Retail" -l ja -r "store manager" --short`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), &flags, modeAll)
		},
	}

	addGenerateFlags(cmd, &flags, true)
	return cmd
}

package cmd

import (
	"github.com/spf13/cobra"
)

func NewStructureCmd() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "structure",
		Short: "Generate only the folder hierarchy",
		Long: `Generate the folder hierarchy with metadata sidecars but no files.
A later "arbordoc file" run over the same path fills the folders in.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), &flags, modeStructure)
		},
	}

	addGenerateFlags(cmd, &flags, true)
	return cmd
}

package cmd

import (
	"github.com/spf13/cobra"
)

func NewFileCmd() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "file",
		Short: "Generate files for an existing folder hierarchy",
		Long: `Walk an already-materialized output tree, read the metadata sidecars,
and generate the files that are still missing. Folder structure is never
re-queried; run parameters default to what the root sidecar recorded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), &flags, modeFilesOnly)
		},
	}

	addGenerateFlags(cmd, &flags, false)
	return cmd
}

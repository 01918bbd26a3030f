package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arbordoc/arbordoc/pkg/locale"
)

func NewListLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-languages",
		Short: "List the languages shipped with the binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, tag := range locale.Supported() {
				fmt.Println(tag)
			}
			return nil
		},
	}
}

func NewTestLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-languages",
		Short: "Check that every language bundle resolves the required templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, tag := range locale.Supported() {
				if err := locale.Validate(tag); err != nil {
					fmt.Printf("%s: %v\n", tag, err)
					failed++
					continue
				}
				fmt.Printf("%s: ok\n", tag)
			}
			if failed > 0 {
				return fmt.Errorf("%d language bundle(s) failed validation", failed)
			}
			return nil
		},
	}
}

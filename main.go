package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arbordoc/arbordoc/cmd"
	"github.com/arbordoc/arbordoc/cmd/config"
)

var logLevel string

func main() {
	// A local .env can carry ARBORDOC_* settings; absence is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "arbordoc",
		Short: "Generate realistic industry folder trees with an LLM",
		Long: `arbordoc asks a local Ollama model for a plausible folder hierarchy
for a given industry, then materializes it on disk with metadata
sidecars and generated files.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&config.CfgFile, "config", "", "config file (default ~/.config/arbordoc/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.PersistentPreRun = func(c *cobra.Command, args []string) {
		config.InitConfig()

		logrus.SetOutput(os.Stderr)
		level, err := logrus.ParseLevel(config.Pick(logLevel, "log_level"))
		if err != nil {
			level = logrus.InfoLevel
		}
		logrus.SetLevel(level)
	}

	rootCmd.AddCommand(cmd.NewAllCmd())
	rootCmd.AddCommand(cmd.NewStructureCmd())
	rootCmd.AddCommand(cmd.NewFileCmd())
	rootCmd.AddCommand(cmd.NewListLanguagesCmd())
	rootCmd.AddCommand(cmd.NewTestLanguagesCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

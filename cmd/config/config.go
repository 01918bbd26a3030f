// Package config wires viper into the CLI: flags win over ARBORDOC_*
// environment variables, which win over ~/.config/arbordoc/config.yaml,
// which wins over the built-in defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arbordoc/arbordoc/pkg/oracle"
)

// CfgFile is set by the global --config flag before InitConfig runs.
var CfgFile string

func InitConfig() {
	if CfgFile != "" {
		viper.SetConfigFile(CfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "arbordoc")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ARBORDOC")

	viper.SetDefault("ollama_url", oracle.DefaultEndpoint)
	viper.SetDefault("model", oracle.DefaultModel)
	viper.SetDefault("language", "en-US")
	viper.SetDefault("path", "./out")
	viper.SetDefault("timeout_seconds", 300)
	viper.SetDefault("max_retries", 3)
	viper.SetDefault("log_level", "info")

	// Missing config file is fine, defaults and env carry the run.
	_ = viper.ReadInConfig()
}

// Pick returns the flag value when set, otherwise the configured value.
func Pick(flagValue, key string) string {
	if flagValue != "" {
		return flagValue
	}
	return viper.GetString(key)
}

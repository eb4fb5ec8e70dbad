package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sockboss/pkg/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"dump"},
	Short:   "Print the effective configuration",
	Long:    "Load sockboss.yml (applying defaults and SOCKBOSS_* overrides) and print the result, for verifying what a start would actually run with.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile, workingDir)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			reportError(fmt.Errorf("render config: %w", err))
			os.Exit(1)
		}
		os.Stdout.Write(out)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

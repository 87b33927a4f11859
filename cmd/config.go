package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xsim-dev/xsim/spectral"
)

func writeConfig(w io.Writer, cfg *spectral.ModelConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("YAML marshal failed: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// --- xsim config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective model configuration",
	Long:  "Merge --config with any flags given on the command line, validate the result and write it as YAML to stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadModelConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := writeConfig(cmd.OutOrStdout(), cfg); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

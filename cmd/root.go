package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xsim-dev/xsim/spectral"
)

var (
	logLevel   string  // Log verbosity level
	configPath string  // Model configuration YAML
	modelRoot  string  // Directory holding the emission and cross-section tables
	seed       int64   // Seed for photon culling
	emin       float64 // Lower edge of the energy grid, keV
	emax       float64 // Upper edge of the energy grid, keV
	nchan      int     // Number of energy bins

	// foreground absorption overrides
	absorbModel string
	absorbNH    float64
	xsecTable   string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "xsim",
	Short: "Thermal plasma spectral engines for synthetic X-ray observations",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// defaultModelConfig is used when no --config file is given.
func defaultModelConfig() *spectral.ModelConfig {
	return &spectral.ModelConfig{
		ModelRoot: ".",
		Emin:      0.1,
		Emax:      10.0,
		NChan:     1000,
		BinScale:  string(spectral.BinScaleLinear),
	}
}

// loadModelConfig reads --config when set, applies flags the user changed
// on top of it, and validates the result.
func loadModelConfig(cmd *cobra.Command) (*spectral.ModelConfig, error) {
	cfg := defaultModelConfig()
	if configPath != "" {
		loaded, err := spectral.LoadModelConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		if cfg.ModelRoot == "" {
			cfg.ModelRoot = "."
		}
	}

	flags := cmd.Flags()
	if flags.Changed("model-root") {
		cfg.ModelRoot = modelRoot
	}
	if flags.Changed("emin") {
		cfg.Emin = emin
	}
	if flags.Changed("emax") {
		cfg.Emax = emax
	}
	if flags.Changed("nchan") {
		cfg.NChan = nchan
	}
	if flags.Changed("absorb-model") {
		cfg.Absorption.Model = absorbModel
	}
	if flags.Changed("nh") {
		cfg.Absorption.NH = absorbNH
	}
	if flags.Changed("xsec-table") {
		cfg.Absorption.Table = xsecTable
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}
	logrus.Debugf("Model config: root=%s, energy [%g, %g] keV in %d %s bins, abund=%s",
		cfg.ModelRoot, cfg.Emin, cfg.Emax, cfg.NChan, cfg.BinScale, cfg.AbundTable)
	return cfg, nil
}

// init sets up CLI flags shared by every subcommand
func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	pf.StringVar(&configPath, "config", "", "Path to model configuration YAML")
	pf.StringVar(&modelRoot, "model-root", ".", "Directory holding apec_v*/, igm_v*/ and cross-section tables")
	pf.Int64Var(&seed, "seed", 42, "Seed for photon culling")
	pf.Float64Var(&emin, "emin", 0.1, "Lower edge of the energy grid (keV)")
	pf.Float64Var(&emax, "emax", 10.0, "Upper edge of the energy grid (keV)")
	pf.IntVar(&nchan, "nchan", 1000, "Number of energy bins")
	pf.StringVar(&absorbModel, "absorb-model", "", "Foreground absorption model (tabulated, tbabs, wabs)")
	pf.Float64Var(&absorbNH, "nh", 0, "Foreground column density (1e22 cm^-2)")
	pf.StringVar(&xsecTable, "xsec-table", "", "Cross-section CSV for tabulated/tbabs absorption, relative to --model-root")
}

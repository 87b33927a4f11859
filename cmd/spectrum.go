package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/xsim-dev/xsim/spectral"
	"github.com/xsim-dev/xsim/spectral/store"
)

// spectrumParams are the physical parameters of a single plasma.
type spectrumParams struct {
	KT          float64 // keV
	Metallicity float64 // solar units
	Redshift    float64
	Norm        float64 // 1e-14*EM/(4*pi*(1+z)^2*D_A^2)
	Velocity    float64 // km/s
	ElemAbund   map[string]float64
}

var (
	specKT        float64
	specAbund     float64
	specRedshift  float64
	specNorm      float64
	specVelocity  float64
	specElemAbund map[string]string
)

// parseElemAbund converts --elem-abund values to numbers.
func parseElemAbund(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for name, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("elem-abund %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// runSpectrum synthesizes one spectrum and writes it as CSV, applying
// foreground absorption when configured.
func runSpectrum(cfg *spectral.ModelConfig, p spectrumParams, w io.Writer) error {
	table, err := store.LoadApec(cfg.ModelRoot, cfg.ModelVersion)
	if err != nil {
		return err
	}
	model, err := spectral.NewTableModel(table, cfg.TableModelConfig())
	if err != nil {
		return err
	}
	spec, err := model.ReturnSpectrum(p.KT, p.Metallicity, p.Redshift, p.Norm, p.Velocity, p.ElemAbund)
	if err != nil {
		return err
	}

	absorber, err := newAbsorber(cfg)
	if err != nil {
		return err
	}
	if absorber != nil {
		spec.Absorb(absorber.GetAbsorb(spec.Grid.Mid()))
	}

	counts := spec.Counts()
	logrus.Infof("Spectrum kT=%g keV, Z=%g, z=%g: %g photons/s/cm^2 over [%g, %g] keV",
		p.KT, p.Metallicity, p.Redshift, floats.Sum(counts), spec.Grid.Min(), spec.Grid.Max())
	return writeSpectrum(w, model.Grid(), counts)
}

func writeSpectrum(w io.Writer, grid *spectral.EnergyGrid, counts []float64) error {
	out := csv.NewWriter(w)
	if err := out.Write([]string{"e_lo_kev", "e_hi_kev", "counts"}); err != nil {
		return err
	}
	edges := grid.Edges()
	for i, c := range counts {
		row := []string{
			strconv.FormatFloat(edges[i], 'g', -1, 64),
			strconv.FormatFloat(edges[i+1], 'g', -1, 64),
			strconv.FormatFloat(c, 'g', -1, 64),
		}
		if err := out.Write(row); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

// --- xsim spectrum ---

var spectrumCmd = &cobra.Command{
	Use:   "spectrum",
	Short: "Synthesize the spectrum of a single thermal plasma",
	Long:  "Interpolate the APEC table at one temperature and write photons/s/cm^2 per bin as CSV on stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadModelConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		elemAbund, err := parseElemAbund(specElemAbund)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		p := spectrumParams{
			KT:          specKT,
			Metallicity: specAbund,
			Redshift:    specRedshift,
			Norm:        specNorm,
			Velocity:    specVelocity,
			ElemAbund:   elemAbund,
		}
		if err := runSpectrum(cfg, p, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Spectrum failed: %v", err)
		}
	},
}

func init() {
	spectrumCmd.Flags().Float64Var(&specKT, "kt", 1.0, "Plasma temperature (keV)")
	spectrumCmd.Flags().Float64Var(&specAbund, "abund", 0.3, "Metallicity (solar units)")
	spectrumCmd.Flags().Float64Var(&specRedshift, "redshift", 0.0, "Source redshift")
	spectrumCmd.Flags().Float64Var(&specNorm, "norm", 1.0, "Normalization, 1e-14*EM/(4*pi*(1+z)^2*D_A^2)")
	spectrumCmd.Flags().Float64Var(&specVelocity, "velocity", 0.0, "Line-of-sight velocity dispersion (km/s)")
	spectrumCmd.Flags().StringToStringVar(&specElemAbund, "elem-abund", nil, "Abundances of var_elem elements, e.g. O=0.5,Fe=0.4")

	rootCmd.AddCommand(spectrumCmd)
}

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

// igmParams are a batch of (kT, nH) points sharing one redshift and metallicity.
type igmParams struct {
	KT          []float64 // keV
	NH          []float64 // cm^-3
	Redshift    float64
	Metallicity float64
	ElemAbund   map[string]float64
}

var (
	igmKT        []float64
	igmNH        []float64
	igmRedshift  float64
	igmAbund     float64
	igmElemAbund map[string]string
)

// runIGM evaluates the density-temperature model at every point and writes
// one CSV row per point and bin.
func runIGM(cfg *spectral.ModelConfig, p igmParams, w io.Writer) error {
	if len(p.KT) == 0 {
		return fmt.Errorf("at least one temperature is required")
	}
	if len(p.KT) != len(p.NH) {
		return fmt.Errorf("got %d temperatures and %d densities", len(p.KT), len(p.NH))
	}
	igmTable, err := store.LoadIGM(cfg.ModelRoot, cfg.IGMVersion)
	if err != nil {
		return err
	}
	apec, err := store.LoadApec(cfg.ModelRoot, cfg.ModelVersion)
	if err != nil {
		return err
	}
	model, err := spectral.NewDensityTemperatureModel(igmTable, apec, cfg.IGMConfig())
	if err != nil {
		return err
	}
	if err := model.PrepareSpectrum(p.Redshift, floats.Min(p.KT), floats.Max(p.KT)); err != nil {
		return err
	}
	c, err := model.GetSpectrum(p.KT, p.NH)
	if err != nil {
		return err
	}

	abund, err := varAbundances(p.ElemAbund, model.VarElemNames(), p.Metallicity)
	if err != nil {
		return err
	}

	out := csv.NewWriter(w)
	if err := out.Write([]string{"point", "kt_kev", "nh_cm3", "e_lo_kev", "e_hi_kev", "cosmic", "metal", "total"}); err != nil {
		return err
	}
	edges := model.Grid().Edges()
	for i := 0; i < c.Len(); i++ {
		total, err := c.Total(i, p.Metallicity, abund)
		if err != nil {
			return err
		}
		for j, v := range total {
			row := []string{
				strconv.Itoa(i),
				strconv.FormatFloat(p.KT[i], 'g', -1, 64),
				strconv.FormatFloat(p.NH[i], 'g', -1, 64),
				strconv.FormatFloat(edges[j], 'g', -1, 64),
				strconv.FormatFloat(edges[j+1], 'g', -1, 64),
				strconv.FormatFloat(c.Cosmic[i][j], 'g', -1, 64),
				strconv.FormatFloat(c.Metal[i][j], 'g', -1, 64),
				strconv.FormatFloat(v, 'g', -1, 64),
			}
			if err := out.Write(row); err != nil {
				return err
			}
		}
	}
	out.Flush()
	logrus.Infof("IGM spectra: %d points, %d bins in [%g, %g] keV", c.Len(), model.Grid().NChan(), model.Grid().Min(), model.Grid().Max())
	return out.Error()
}

// varAbundances orders elemAbund by the variable elements; elements not
// given follow the metallicity.
func varAbundances(elemAbund map[string]float64, varElem []string, metallicity float64) ([]float64, error) {
	abund := make([]float64, len(varElem))
	for k := range abund {
		abund[k] = metallicity
	}
	for name, v := range elemAbund {
		k := -1
		if z, ok := spectral.ElementNumber(name); ok {
			for i, sym := range varElem {
				if sym == spectral.ElementSymbol(z) {
					k = i
				}
			}
		}
		if k < 0 {
			return nil, fmt.Errorf("element %q is not one of the variable elements %v", name, varElem)
		}
		abund[k] = v
	}
	return abund, nil
}

// --- xsim igm ---

var igmCmd = &cobra.Command{
	Use:   "igm",
	Short: "Evaluate the density-temperature model at a batch of points",
	Long:  "Interpolate the IGM table bilinearly in (temperature, density); points outside the table use the APEC model on the same energy grid. Output is CSV on stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadModelConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		elemAbund, err := parseElemAbund(igmElemAbund)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		p := igmParams{
			KT:          igmKT,
			NH:          igmNH,
			Redshift:    igmRedshift,
			Metallicity: igmAbund,
			ElemAbund:   elemAbund,
		}
		if err := runIGM(cfg, p, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("IGM spectrum failed: %v", err)
		}
	},
}

func init() {
	igmCmd.Flags().Float64SliceVar(&igmKT, "kt", nil, "Comma-separated temperatures (keV)")
	igmCmd.Flags().Float64SliceVar(&igmNH, "density", nil, "Comma-separated hydrogen densities (cm^-3), one per temperature")
	igmCmd.Flags().Float64Var(&igmRedshift, "redshift", 0.0, "Redshift of the snapshot")
	igmCmd.Flags().Float64Var(&igmAbund, "abund", 0.3, "Metallicity (solar units)")
	igmCmd.Flags().StringToStringVar(&igmElemAbund, "elem-abund", nil, "Abundances of var_elem elements, e.g. O=0.5")

	rootCmd.AddCommand(igmCmd)
}

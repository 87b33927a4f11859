package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xsim-dev/xsim/spectral"
	"github.com/xsim-dev/xsim/spectral/absorb"
	"github.com/xsim-dev/xsim/spectral/store"
)

var (
	photonPaths    []string  // photon list CSVs, culled in parallel
	photonEnergies []float64 // photon energies given inline
)

// newAbsorber builds the configured foreground absorption model, or nil
// when none is configured.
func newAbsorber(cfg *spectral.ModelConfig) (absorb.Model, error) {
	if cfg.Absorption.Model == "" {
		return nil, nil
	}
	kind, err := absorb.ParseKind(cfg.Absorption.Model)
	if err != nil {
		return nil, err
	}
	var xsec *absorb.CrossSection
	if kind.NeedsTable() {
		xsec, err = store.LoadCrossSection(cfg.Absorption.TablePath(cfg.ModelRoot))
		if err != nil {
			return nil, err
		}
	}
	return absorb.New(kind, cfg.Absorption.NH, xsec)
}

// runAbsorb culls each photon list with its own stream on a bounded pool
// of workers and writes one row per input photon, lists in input order.
func runAbsorb(cfg *spectral.ModelConfig, lists [][]float64, seed int64, w io.Writer) error {
	absorber, err := newAbsorber(cfg)
	if err != nil {
		return err
	}
	if absorber == nil {
		return fmt.Errorf("no absorption model configured (set absorption.model or --absorb-model)")
	}

	streams := spectral.NewPartitionedRNG(spectral.NewRunKey(seed)).PhotonListStreams(len(lists))
	keep := make([][]bool, len(lists))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range lists {
		g.Go(func() error {
			keep[i] = absorber.AbsorbPhotons(lists[i], streams[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := csv.NewWriter(w)
	if err := out.Write([]string{"list", "energy_kev", "kept"}); err != nil {
		return err
	}
	total, kept := 0, 0
	for i, energies := range lists {
		for j, e := range energies {
			if keep[i][j] {
				kept++
			}
			row := []string{strconv.Itoa(i), strconv.FormatFloat(e, 'g', -1, 64), strconv.FormatBool(keep[i][j])}
			if err := out.Write(row); err != nil {
				return err
			}
		}
		total += len(energies)
	}
	out.Flush()
	logrus.Infof("Absorption %s (nH=%g): %d of %d photons survive across %d lists",
		absorber.Name(), absorber.NH(), kept, total, len(lists))
	return out.Error()
}

// --- xsim absorb ---

var absorbCmd = &cobra.Command{
	Use:   "absorb",
	Short: "Cull photon lists with foreground absorption",
	Long:  "Draw one uniform variate per photon from the list's seeded stream and keep photons whose variate falls below their survival probability. Lists are culled in parallel; output is CSV on stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadModelConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		lists := [][]float64{photonEnergies}
		if len(photonPaths) > 0 {
			lists = lists[:0]
			for _, path := range photonPaths {
				energies, err := store.LoadPhotonEnergies(path)
				if err != nil {
					logrus.Fatalf("%v", err)
				}
				lists = append(lists, energies)
			}
		}
		if err := runAbsorb(cfg, lists, seed, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Absorption failed: %v", err)
		}
	},
}

func init() {
	absorbCmd.Flags().StringSliceVar(&photonPaths, "photons", nil, "Photon list CSVs (first column energy in keV), comma-separated or repeated")
	absorbCmd.Flags().Float64SliceVar(&photonEnergies, "energy", nil, "Comma-separated photon energies (keV), used when --photons is not set")

	rootCmd.AddCommand(absorbCmd)
}

package spectral

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/xsim-dev/xsim/spectral/absorb"
)

// ModelConfig holds the spectral model configuration, loadable from YAML.
// Nil pointer fields mean "not set in YAML" and take the documented default.
type ModelConfig struct {
	ModelRoot    string        `yaml:"model_root"`
	ModelVersion string        `yaml:"model_version"`
	IGMVersion   string        `yaml:"igm_version"`
	Emin         float64       `yaml:"emin"`
	Emax         float64       `yaml:"emax"`
	NChan        int           `yaml:"nchan"`
	BinScale     string        `yaml:"binscale"`
	VarElem      []string      `yaml:"var_elem"`
	AbundTable   AbundanceSpec `yaml:"abund_table"`
	ThermalBroad *bool         `yaml:"thermal_broad,omitempty"` // default true
	NoLines      bool          `yaml:"nolines"`
	IGM          IGMSection    `yaml:"igm"`
	Absorption   AbsorbSection `yaml:"absorption"`
}

// IGMSection configures the density-temperature model.
type IGMSection struct {
	ResonantScattering bool     `yaml:"resonant_scattering"`
	CXBFactor          *float64 `yaml:"cxb_factor,omitempty"` // default 1.0
}

// AbsorbSection configures foreground absorption.
type AbsorbSection struct {
	Model string  `yaml:"model"` // "", "wabs", "tbabs", "tabulated"
	NH    float64 `yaml:"nh"`    // 1e22 cm^-2
	Table string  `yaml:"table"` // cross-section CSV for tbabs/tabulated
}

// UnmarshalYAML accepts either a preset name or a list of 30 abundances.
func (s *AbundanceSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = AbundanceSpec{Preset: value.Value}
		return nil
	case yaml.SequenceNode:
		var vals []float64
		if err := value.Decode(&vals); err != nil {
			return fmt.Errorf("abund_table: %w", err)
		}
		*s = AbundanceSpec{Values: vals}
		return nil
	}
	return fmt.Errorf("abund_table: line %d: expected a preset name or a list of %d numbers", value.Line, NumElements)
}

// MarshalYAML writes the preset name, or the value list for a custom table.
func (s AbundanceSpec) MarshalYAML() (interface{}, error) {
	if len(s.Values) > 0 {
		return s.Values, nil
	}
	return s.String(), nil
}

// LoadModelConfig reads and parses a YAML model configuration file.
// Unknown fields are errors.
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model config: %w", err)
	}
	var cfg ModelConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing model config: %w", err)
	}
	return &cfg, nil
}

// Validate checks names and parameter ranges.
func (c *ModelConfig) Validate() error {
	if c.NChan < 1 {
		return fmt.Errorf("nchan must be >= 1, got %d", c.NChan)
	}
	if !(c.Emax > c.Emin) || c.Emin < 0 {
		return fmt.Errorf("emin/emax must satisfy 0 <= emin < emax, got [%g, %g]", c.Emin, c.Emax)
	}
	scale, err := ParseBinScale(c.BinScale)
	if err != nil {
		return err
	}
	if scale == BinScaleLog && c.Emin <= 0 {
		return fmt.Errorf("emin must be > 0 with log binning, got %g", c.Emin)
	}
	if _, _, err := normalizeVarElem(c.VarElem); err != nil {
		return err
	}
	if _, err := c.AbundTable.Resolve(); err != nil {
		return err
	}
	if c.IGM.CXBFactor != nil && *c.IGM.CXBFactor < 0 {
		return fmt.Errorf("igm.cxb_factor must be non-negative, got %g", *c.IGM.CXBFactor)
	}
	if c.Absorption.Model != "" {
		kind, err := absorb.ParseKind(c.Absorption.Model)
		if err != nil {
			return fmt.Errorf("absorption.model: %w", err)
		}
		if kind.NeedsTable() && c.Absorption.Table == "" && kind.DefaultTable() == "" {
			return fmt.Errorf("absorption.table is required for model %q", c.Absorption.Model)
		}
	}
	if c.Absorption.NH < 0 {
		return fmt.Errorf("absorption.nh must be non-negative, got %g", c.Absorption.NH)
	}
	return nil
}

// TablePath returns the cross-section file for the configured model, or ""
// when it needs none. Relative paths are resolved against root; tbabs falls
// back to its default table.
func (a AbsorbSection) TablePath(root string) string {
	kind, err := absorb.ParseKind(a.Model)
	if err != nil || !kind.NeedsTable() {
		return ""
	}
	path := a.Table
	if path == "" {
		path = kind.DefaultTable()
	}
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// TableModelConfig derives the TableModel configuration. Call Validate first.
func (c *ModelConfig) TableModelConfig() TableModelConfig {
	scale, _ := ParseBinScale(c.BinScale)
	broad := true
	if c.ThermalBroad != nil {
		broad = *c.ThermalBroad
	}
	return TableModelConfig{
		Emin:         c.Emin,
		Emax:         c.Emax,
		NChan:        c.NChan,
		BinScale:     scale,
		VarElem:      c.VarElem,
		AbundTable:   c.AbundTable,
		ThermalBroad: broad,
		NoLines:      c.NoLines,
	}
}

// IGMConfig derives the DensityTemperatureModel configuration.
func (c *ModelConfig) IGMConfig() IGMConfig {
	cxb := 1.0
	if c.IGM.CXBFactor != nil {
		cxb = *c.IGM.CXBFactor
	}
	return IGMConfig{
		Emin:               c.Emin,
		Emax:               c.Emax,
		ResonantScattering: c.IGM.ResonantScattering,
		CXBFactor:          cxb,
		VarElem:            c.VarElem,
	}
}

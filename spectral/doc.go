// Package spectral provides the thermal plasma emission engines used to turn
// simulation cells into synthetic X-ray spectra.
//
// # Reading Guide
//
// Start with these files to understand the engines:
//   - grid.go, axis.go: energy grids and tabulated axes with sorted-search helpers
//   - table_model.go: TableModel, temperature interpolation over an APEC-style table
//   - density_temperature_model.go: DensityTemperatureModel, bilinear interpolation
//     over an IGM-style (temperature x density) table with TableModel fallback
//
// # Lifecycle
//
// Both engines follow the same pattern: construct once from an in-memory table,
// call PrepareSpectrum once per snapshot (redshift and temperature range), then
// call GetSpectrum per cell or per batch. PrepareSpectrum replaces the prepared
// window in place, so an engine must not be shared between goroutines; give each
// worker its own instance.
//
// Table files are read by spectral/store; foreground absorption lives in
// spectral/absorb.
package spectral

package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/wdconinc/calorec/internal/calo"
	"github.com/wdconinc/calorec/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration for the reconstruction chain.
// All fields are optional; omitted fields fall back to the defaults the
// Get* methods return, so partial configs are safe.
type TuningConfig struct {
	// Clustering params
	Readout             *string    `json:"readout,omitempty"`
	SectorField         *string    `json:"sector_field,omitempty"`
	LayerField          *string    `json:"layer_field,omitempty"`
	LocalRangesMm       *[]float64 `json:"local_ranges_mm,omitempty"`
	AdjLayerRangesRad   *[]float64 `json:"adj_layer_ranges_rad,omitempty"`
	AdjLayerDiff        *int       `json:"adj_layer_diff,omitempty"`
	AdjSectorDistMm     *float64   `json:"adj_sector_dist_mm,omitempty"`
	MinClusterCenterKeV *float64   `json:"min_cluster_center_kev,omitempty"`

	// Position reconstruction params
	LogWeightBase *float64 `json:"log_weight_base,omitempty"`

	// Hit reconstruction params
	CapacityADC      *int     `json:"capacity_adc,omitempty"`
	DynamicRangeMeV  *float64 `json:"dynamic_range_mev,omitempty"`
	PedestalMean     *float64 `json:"pedestal_mean,omitempty"`
	PedestalSigma    *float64 `json:"pedestal_sigma,omitempty"`
	ThresholdFactor  *float64 `json:"threshold_factor,omitempty"`
	SamplingFraction *float64 `json:"sampling_fraction,omitempty"`

	// Digitization params
	EnergyResolution *float64 `json:"energy_resolution,omitempty"`

	// Batch run params
	Workers *int `json:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64    { return &v }
func ptrInt(v int) *int                { return &v }
func ptrString(v string) *string       { return &v }
func ptrFloats(v []float64) *[]float64 { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.LocalRangesMm != nil && len(*c.LocalRangesMm) < 2 {
		return fmt.Errorf("local_ranges_mm needs at least 2 entries, got %d", len(*c.LocalRangesMm))
	}
	if c.AdjLayerRangesRad != nil && len(*c.AdjLayerRangesRad) < 2 {
		return fmt.Errorf("adj_layer_ranges_rad needs at least 2 entries, got %d", len(*c.AdjLayerRangesRad))
	}
	if c.AdjLayerDiff != nil && *c.AdjLayerDiff < 0 {
		return fmt.Errorf("adj_layer_diff must be non-negative, got %d", *c.AdjLayerDiff)
	}
	if c.AdjSectorDistMm != nil && *c.AdjSectorDistMm <= 0 {
		return fmt.Errorf("adj_sector_dist_mm must be positive, got %f", *c.AdjSectorDistMm)
	}
	if c.MinClusterCenterKeV != nil && *c.MinClusterCenterKeV < 0 {
		return fmt.Errorf("min_cluster_center_kev must be non-negative, got %f", *c.MinClusterCenterKeV)
	}
	if c.LogWeightBase != nil && *c.LogWeightBase < 0 {
		return fmt.Errorf("log_weight_base must be non-negative, got %f", *c.LogWeightBase)
	}
	if c.CapacityADC != nil && *c.CapacityADC <= 0 {
		return fmt.Errorf("capacity_adc must be positive, got %d", *c.CapacityADC)
	}
	if c.DynamicRangeMeV != nil && *c.DynamicRangeMeV <= 0 {
		return fmt.Errorf("dynamic_range_mev must be positive, got %f", *c.DynamicRangeMeV)
	}
	if c.PedestalSigma != nil && *c.PedestalSigma < 0 {
		return fmt.Errorf("pedestal_sigma must be non-negative, got %f", *c.PedestalSigma)
	}
	if c.ThresholdFactor != nil && *c.ThresholdFactor < 0 {
		return fmt.Errorf("threshold_factor must be non-negative, got %f", *c.ThresholdFactor)
	}
	if c.SamplingFraction != nil && (*c.SamplingFraction <= 0 || *c.SamplingFraction > 1) {
		return fmt.Errorf("sampling_fraction must be in (0, 1], got %f", *c.SamplingFraction)
	}
	if c.EnergyResolution != nil && *c.EnergyResolution < 0 {
		return fmt.Errorf("energy_resolution must be non-negative, got %f", *c.EnergyResolution)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// GetReadout returns the readout name or the empty string.
func (c *TuningConfig) GetReadout() string {
	if c.Readout == nil {
		return ""
	}
	return *c.Readout
}

// GetSectorField returns the sector_field value or the default.
func (c *TuningConfig) GetSectorField() string {
	if c.SectorField == nil {
		return calo.DefaultSectorField
	}
	return *c.SectorField
}

// GetLayerField returns the layer_field value or the default.
func (c *TuningConfig) GetLayerField() string {
	if c.LayerField == nil {
		return calo.DefaultLayerField
	}
	return *c.LayerField
}

// GetLocalRanges returns the local adjacency windows in mm.
func (c *TuningConfig) GetLocalRanges() []float64 {
	if c.LocalRangesMm == nil {
		return []float64{1.0 * units.Mm, 1.0 * units.Mm}
	}
	return *c.LocalRangesMm
}

// GetAdjLayerRanges returns the adjacent-layer windows in rad.
func (c *TuningConfig) GetAdjLayerRanges() []float64 {
	if c.AdjLayerRangesRad == nil {
		return []float64{0.01 * math.Pi, 0.01 * math.Pi}
	}
	return *c.AdjLayerRangesRad
}

// GetAdjLayerDiff returns the adj_layer_diff value or the default.
func (c *TuningConfig) GetAdjLayerDiff() int {
	if c.AdjLayerDiff == nil {
		return calo.DefaultAdjLayerDiff
	}
	return *c.AdjLayerDiff
}

// GetAdjSectorDist returns the cross-sector distance cut in mm.
func (c *TuningConfig) GetAdjSectorDist() float64 {
	if c.AdjSectorDistMm == nil {
		return calo.DefaultAdjSectorDist
	}
	return *c.AdjSectorDistMm
}

// GetMinClusterCenterEdep returns the seed threshold in GeV.
func (c *TuningConfig) GetMinClusterCenterEdep() float64 {
	if c.MinClusterCenterKeV == nil {
		return calo.DefaultMinClusterCenterEdep
	}
	return *c.MinClusterCenterKeV * units.KeV
}

// GetLogWeightBase returns the log_weight_base value or the default.
func (c *TuningConfig) GetLogWeightBase() float64 {
	if c.LogWeightBase == nil {
		return calo.DefaultLogWeightBase
	}
	return *c.LogWeightBase
}

// GetCapacityADC returns the capacity_adc value or the default.
func (c *TuningConfig) GetCapacityADC() int {
	if c.CapacityADC == nil {
		return calo.DefaultCapacityADC
	}
	return *c.CapacityADC
}

// GetDynamicRange returns the ADC dynamic range in GeV.
func (c *TuningConfig) GetDynamicRange() float64 {
	if c.DynamicRangeMeV == nil {
		return calo.DefaultDynamicRangeADC
	}
	return *c.DynamicRangeMeV * units.MeV
}

// GetPedestalMean returns the pedestal_mean value or the default.
func (c *TuningConfig) GetPedestalMean() float64 {
	if c.PedestalMean == nil {
		return calo.DefaultPedestalMean
	}
	return *c.PedestalMean
}

// GetPedestalSigma returns the pedestal_sigma value or the default.
func (c *TuningConfig) GetPedestalSigma() float64 {
	if c.PedestalSigma == nil {
		return calo.DefaultPedestalSigma
	}
	return *c.PedestalSigma
}

// GetThresholdFactor returns the threshold_factor value or the default.
func (c *TuningConfig) GetThresholdFactor() float64 {
	if c.ThresholdFactor == nil {
		return calo.DefaultThresholdFactor
	}
	return *c.ThresholdFactor
}

// GetSamplingFraction returns the sampling_fraction value or the default.
func (c *TuningConfig) GetSamplingFraction() float64 {
	if c.SamplingFraction == nil {
		return calo.DefaultSamplingFrac
	}
	return *c.SamplingFraction
}

// GetEnergyResolution returns the energy_resolution value or the default.
func (c *TuningConfig) GetEnergyResolution() float64 {
	if c.EnergyResolution == nil {
		return calo.DefaultEnergyResolution
	}
	return *c.EnergyResolution
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// TopoParams assembles the clustering parameters. The readout argument
// is used when the config does not name one itself.
func (c *TuningConfig) TopoParams(readout string) calo.TopoParams {
	params := calo.TopoParams{
		LocalRanges:          c.GetLocalRanges(),
		AdjLayerRanges:       c.GetAdjLayerRanges(),
		AdjLayerDiff:         c.GetAdjLayerDiff(),
		AdjSectorDist:        c.GetAdjSectorDist(),
		MinClusterCenterEdep: c.GetMinClusterCenterEdep(),
		Readout:              c.GetReadout(),
		SectorField:          c.GetSectorField(),
		LayerField:           c.GetLayerField(),
	}
	if params.Readout == "" {
		params.Readout = readout
	}
	return params
}

// HitRecoParams assembles the hit calibration parameters.
func (c *TuningConfig) HitRecoParams(readout string) calo.HitRecoParams {
	params := calo.HitRecoParams{
		CapacityADC:      c.GetCapacityADC(),
		DynamicRangeADC:  c.GetDynamicRange(),
		PedestalMean:     c.GetPedestalMean(),
		PedestalSigma:    c.GetPedestalSigma(),
		ThresholdFactor:  c.GetThresholdFactor(),
		SamplingFraction: c.GetSamplingFraction(),
		Readout:          c.GetReadout(),
		SectorField:      c.GetSectorField(),
		LayerField:       c.GetLayerField(),
	}
	if params.Readout == "" {
		params.Readout = readout
	}
	return params
}

// DigiParams assembles the digitization parameters.
func (c *TuningConfig) DigiParams() calo.DigiParams {
	return calo.DigiParams{
		EnergyResolution: c.GetEnergyResolution(),
		CapacityADC:      c.GetCapacityADC(),
		DynamicRangeADC:  c.GetDynamicRange(),
		PedestalMean:     c.GetPedestalMean(),
	}
}

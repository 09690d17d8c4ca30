package calo

import (
	"fmt"

	"github.com/wdconinc/calorec/internal/geometry"
	"github.com/wdconinc/calorec/internal/units"
)

// ADC and calibration defaults, shared between digitization and hit
// reconstruction so the two stages stay consistent.
const (
	DefaultCapacityADC     = 8096
	DefaultDynamicRangeADC = 100 * units.MeV
	DefaultPedestalMean    = 400
	DefaultPedestalSigma   = 3.2
	DefaultThresholdFactor = 3.0
	DefaultSamplingFrac    = 1.0
)

// HitRecoParams configures the raw-hit reconstruction. The ADC settings
// must match the digitization that produced the raw hits.
type HitRecoParams struct {
	// CapacityADC is the full-scale ADC count.
	CapacityADC int
	// DynamicRangeADC is the energy corresponding to full scale, in GeV.
	DynamicRangeADC float64
	// PedestalMean and PedestalSigma describe the ADC pedestal.
	PedestalMean  float64
	PedestalSigma float64
	// ThresholdFactor sets zero suppression at
	// amplitude - pedestal < ThresholdFactor * PedestalSigma.
	ThresholdFactor float64
	// SamplingFraction calibrates sampled energy back to shower energy.
	SamplingFraction float64
	// Readout, LayerField and SectorField configure the optional
	// decoding of layer/sector indices onto the output hits. With an
	// empty Readout the indices are set to -1.
	Readout     string
	LayerField  string
	SectorField string
}

// DefaultHitRecoParams returns defaults matching the digitizer defaults.
func DefaultHitRecoParams() HitRecoParams {
	return HitRecoParams{
		CapacityADC:      DefaultCapacityADC,
		DynamicRangeADC:  DefaultDynamicRangeADC,
		PedestalMean:     DefaultPedestalMean,
		PedestalSigma:    DefaultPedestalSigma,
		ThresholdFactor:  DefaultThresholdFactor,
		SamplingFraction: DefaultSamplingFrac,
		LayerField:       DefaultLayerField,
		SectorField:      DefaultSectorField,
	}
}

// Validate checks the calibration constants.
func (p HitRecoParams) Validate() error {
	if p.CapacityADC <= 0 {
		return fmt.Errorf("calo: ADC capacity must be positive, got %d", p.CapacityADC)
	}
	if p.DynamicRangeADC <= 0 {
		return fmt.Errorf("calo: ADC dynamic range must be positive, got %v", p.DynamicRangeADC)
	}
	if p.SamplingFraction <= 0 {
		return fmt.Errorf("calo: sampling fraction must be positive, got %v", p.SamplingFraction)
	}
	if p.PedestalSigma < 0 {
		return fmt.Errorf("calo: pedestal sigma must be non-negative, got %v", p.PedestalSigma)
	}
	return nil
}

// HitReconstructor converts digitized raw hits into reconstructed hits
// with calibrated energy and geometry-derived positions, paired with
// the Digitizer.
type HitReconstructor struct {
	geo       geometry.Provider
	params    HitRecoParams
	dec       *geometry.Decoder // nil when no readout configured
	sectorIdx int
	layerIdx  int
}

// NewHitReconstructor validates parameters and, when a readout is
// named, resolves the decode fields up front.
func NewHitReconstructor(geo geometry.Provider, params HitRecoParams) (*HitReconstructor, error) {
	if geo == nil {
		return nil, fmt.Errorf("calo: no geometry provider")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	hr := &HitReconstructor{geo: geo, params: params, sectorIdx: -1, layerIdx: -1}
	if params.Readout != "" {
		dec, err := geo.Decoder(params.Readout)
		if err != nil {
			return nil, fmt.Errorf("calo: failed to load ID decoder for %q: %w", params.Readout, err)
		}
		hr.dec = dec
		if params.SectorField != "" {
			if hr.sectorIdx, err = dec.Index(params.SectorField); err != nil {
				return nil, fmt.Errorf("calo: failed to load ID decoder for %q: %w", params.Readout, err)
			}
		}
		if params.LayerField != "" {
			if hr.layerIdx, err = dec.Index(params.LayerField); err != nil {
				return nil, fmt.Errorf("calo: failed to load ID decoder for %q: %w", params.Readout, err)
			}
		}
	}

	return hr, nil
}

// Reconstruct converts one event's raw hits. Raw hits below the zero
// suppression threshold are dropped; geometry lookup failures abort the
// event since they indicate cells outside the configured detector.
func (hr *HitReconstructor) Reconstruct(raws []RawHit) ([]Hit, error) {
	if len(raws) == 0 {
		return nil, nil
	}

	p := hr.params
	hits := make([]Hit, 0, len(raws))
	for _, rh := range raws {
		// did not pass the zero-suppression threshold
		if float64(rh.Amplitude)-p.PedestalMean < p.ThresholdFactor*p.PedestalSigma {
			continue
		}

		// ADC -> energy
		energy := (float64(rh.Amplitude) - p.PedestalMean) / float64(p.CapacityADC) * p.DynamicRangeADC / p.SamplingFraction

		layer, sector := int32(-1), int32(-1)
		if hr.dec != nil {
			if hr.layerIdx >= 0 {
				layer = int32(hr.dec.Get(rh.CellID, hr.layerIdx))
			}
			if hr.sectorIdx >= 0 {
				sector = int32(hr.dec.Get(rh.CellID, hr.sectorIdx))
			}
		}

		gpos, err := hr.geo.CellPosition(rh.CellID)
		if err != nil {
			return nil, fmt.Errorf("calo: cell position for %#x: %w", uint64(rh.CellID), err)
		}
		alignment, err := hr.geo.CellAlignment(rh.CellID)
		if err != nil {
			return nil, fmt.Errorf("calo: cell alignment for %#x: %w", uint64(rh.CellID), err)
		}
		dim, err := hr.geo.CellDimensions(rh.CellID)
		if err != nil {
			return nil, fmt.Errorf("calo: cell dimensions for %#x: %w", uint64(rh.CellID), err)
		}

		hits = append(hits, Hit{
			CellID:    rh.CellID,
			Layer:     layer,
			Sector:    sector,
			Energy:    energy,
			Time:      rh.Time,
			Position:  gpos,
			Local:     alignment.WorldToLocal(gpos),
			Dimension: dim,
		})
	}

	return hits, nil
}

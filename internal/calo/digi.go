package calo

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultEnergyResolution is the default stochastic resolution term,
// 2%/sqrt(E).
const DefaultEnergyResolution = 0.02

// DigiParams configures digitization. The ADC settings must match the
// hit reconstruction that consumes the raw hits.
type DigiParams struct {
	// EnergyResolution is the stochastic term a in sigma = a * sqrt(E).
	EnergyResolution float64
	// CapacityADC, DynamicRangeADC and PedestalMean mirror HitRecoParams.
	CapacityADC     int
	DynamicRangeADC float64
	PedestalMean    float64
}

// DefaultDigiParams returns defaults matching DefaultHitRecoParams.
func DefaultDigiParams() DigiParams {
	return DigiParams{
		EnergyResolution: DefaultEnergyResolution,
		CapacityADC:      DefaultCapacityADC,
		DynamicRangeADC:  DefaultDynamicRangeADC,
		PedestalMean:     DefaultPedestalMean,
	}
}

// Digitizer turns simulated energy deposits into raw ADC hits with
// Gaussian energy smearing. It holds its own random source, so a fixed
// seed reproduces a digitization exactly; one Digitizer must not be
// shared across concurrent goroutines.
type Digitizer struct {
	params DigiParams
	rng    *rand.Rand
}

// NewDigitizer builds a digitizer with the given parameters and seed.
func NewDigitizer(params DigiParams, seed int64) (*Digitizer, error) {
	if params.EnergyResolution < 0 {
		return nil, fmt.Errorf("calo: energy resolution must be non-negative, got %v", params.EnergyResolution)
	}
	if params.CapacityADC <= 0 {
		return nil, fmt.Errorf("calo: ADC capacity must be positive, got %d", params.CapacityADC)
	}
	if params.DynamicRangeADC <= 0 {
		return nil, fmt.Errorf("calo: ADC dynamic range must be positive, got %v", params.DynamicRangeADC)
	}
	return &Digitizer{params: params, rng: rand.New(rand.NewSource(seed))}, nil
}

// Digitize converts one event's deposits into raw hits. Deposits whose
// smeared energy falls at or below zero produce pedestal-only
// amplitudes and are left in the output; zero suppression belongs to
// the reconstruction stage.
func (d *Digitizer) Digitize(deps []SimDeposit) []RawHit {
	if len(deps) == 0 {
		return nil
	}

	p := d.params
	raws := make([]RawHit, 0, len(deps))
	for _, dep := range deps {
		smeared := dep.Energy
		if dep.Energy > 0 && p.EnergyResolution > 0 {
			sigma := p.EnergyResolution * math.Sqrt(dep.Energy)
			smeared += sigma * d.rng.NormFloat64()
		}
		if smeared < 0 {
			smeared = 0
		}

		amplitude := p.PedestalMean + smeared/p.DynamicRangeADC*float64(p.CapacityADC)
		raws = append(raws, RawHit{
			CellID:    dep.CellID,
			Amplitude: int32(math.Round(amplitude)),
			Time:      dep.Time,
		})
	}

	return raws
}

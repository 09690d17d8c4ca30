package calo

import (
	"fmt"
	"math"

	"github.com/wdconinc/calorec/internal/units"
)

// Default topological clustering parameters, tuned for a sampling
// calorimeter with fine transverse granularity.
const (
	// DefaultAdjLayerDiff is the maximum layer-number difference still
	// considered adjacent.
	DefaultAdjLayerDiff = 1
	// DefaultAdjSectorDist is the maximum global distance for merging
	// hits across sector boundaries.
	DefaultAdjSectorDist = 1.0 * units.Cm
	// DefaultMinClusterCenterEdep is the minimum energy for a hit to
	// seed a new cluster.
	DefaultMinClusterCenterEdep = 50 * units.KeV
	// DefaultLayerField and DefaultSectorField name the readout fields
	// used to decode cell IDs.
	DefaultLayerField  = "layer"
	DefaultSectorField = "sector"
)

// TopoParams contains the parameters of the topological grouper.
type TopoParams struct {
	// AdjLayerDiff is the maximum difference in layer numbers that can
	// be considered as neighbours.
	AdjLayerDiff int
	// LocalRanges is the maximum local (x, y) distance to be considered
	// as neighbors within the same layer, in mm.
	LocalRanges []float64
	// AdjLayerRanges is the maximum global (eta, phi) distance to be
	// considered as neighbors in adjacent layers, in rad.
	AdjLayerRanges []float64
	// AdjSectorDist is the maximum global distance to be considered as
	// neighbors in different sectors, in mm.
	AdjSectorDist float64
	// MinClusterCenterEdep is the minimum energy for a cluster seed, in GeV.
	MinClusterCenterEdep float64
	// Readout names the readout class whose ID schema decodes cell IDs.
	Readout string
	// LayerField and SectorField name the decode fields.
	LayerField  string
	SectorField string
}

// DefaultTopoParams returns the default grouping parameters. The
// readout name has no default and must be set by the caller.
func DefaultTopoParams() TopoParams {
	return TopoParams{
		AdjLayerDiff:         DefaultAdjLayerDiff,
		LocalRanges:          []float64{1.0 * units.Mm, 1.0 * units.Mm},
		AdjLayerRanges:       []float64{0.01 * math.Pi, 0.01 * math.Pi},
		AdjSectorDist:        DefaultAdjSectorDist,
		MinClusterCenterEdep: DefaultMinClusterCenterEdep,
		LayerField:           DefaultLayerField,
		SectorField:          DefaultSectorField,
	}
}

// Validate checks the parameters for per-hit use. Under-specified range
// vectors refuse to run here rather than producing partial adjacency
// checks per event.
func (p TopoParams) Validate() error {
	if len(p.LocalRanges) < 2 {
		return fmt.Errorf("calo: need 2-dimensional ranges for same-layer clustering, only have %d", len(p.LocalRanges))
	}
	if len(p.AdjLayerRanges) < 2 {
		return fmt.Errorf("calo: need 2-dimensional ranges for adjacent-layer clustering, only have %d", len(p.AdjLayerRanges))
	}
	if p.LocalRanges[0] <= 0 || p.LocalRanges[1] <= 0 {
		return fmt.Errorf("calo: local ranges must be positive, got (%v, %v)", p.LocalRanges[0], p.LocalRanges[1])
	}
	if p.AdjLayerRanges[0] <= 0 || p.AdjLayerRanges[1] <= 0 {
		return fmt.Errorf("calo: adjacent-layer ranges must be positive, got (%v, %v)", p.AdjLayerRanges[0], p.AdjLayerRanges[1])
	}
	if p.AdjLayerDiff < 0 {
		return fmt.Errorf("calo: adjacent-layer difference must be non-negative, got %d", p.AdjLayerDiff)
	}
	if p.AdjSectorDist <= 0 {
		return fmt.Errorf("calo: adjacent-sector distance must be positive, got %v", p.AdjSectorDist)
	}
	if p.MinClusterCenterEdep < 0 {
		return fmt.Errorf("calo: minimum cluster center energy must be non-negative, got %v", p.MinClusterCenterEdep)
	}
	if p.Readout == "" {
		return fmt.Errorf("calo: readout class is not provided, it is needed to know the fields in readout ids")
	}
	if p.LayerField == "" || p.SectorField == "" {
		return fmt.Errorf("calo: layer and sector field names must be set")
	}
	return nil
}

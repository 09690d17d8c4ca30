package calo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wdconinc/calorec/internal/geometry"
)

// DefaultLogWeightBase is the default base of the logarithmic
// center-of-gravity weighting, tuned empirically per detector.
const DefaultLogWeightBase = 3.6

// CoGReconstructor fills in a cluster's total energy and position using
// the center-of-gravity method. Logarithmic weighting mimics the
// transverse energy-deposit profile of electromagnetic showers: hits
// carrying a larger fraction of the total energy approach the full base
// weight, while noise-level fractions clip to zero and drop out of the
// position estimate.
type CoGReconstructor struct {
	geo           geometry.Provider
	logWeightBase float64
}

// NewCoGReconstructor builds the reconstructor. The weight base must be
// non-negative; zero is degenerate but defined (every weight clips to
// zero and no position is produced).
func NewCoGReconstructor(geo geometry.Provider, logWeightBase float64) (*CoGReconstructor, error) {
	if geo == nil {
		return nil, fmt.Errorf("calo: no geometry provider")
	}
	if logWeightBase < 0 {
		return nil, fmt.Errorf("calo: log weight base must be non-negative, got %v", logWeightBase)
	}
	return &CoGReconstructor{geo: geo, logWeightBase: logWeightBase}, nil
}

// logWeight computes the clipped logarithmic weight of one hit. The
// result is never negative, for any energy distribution.
func logWeight(base, energy, total float64) float64 {
	w := base + math.Log(energy/total)
	if w > 0 {
		return w
	}
	return 0
}

// ReconstructAll reconstructs every cluster in the slice. Degenerate
// clusters are skipped, not errors; geometry failures abort.
func (cr *CoGReconstructor) ReconstructAll(clusters []*Cluster) error {
	for _, cl := range clusters {
		if err := cr.Reconstruct(cl); err != nil {
			return err
		}
	}
	return nil
}

// Reconstruct fills Energy, CenterID and Position of one cluster.
//
// A cluster with no hits is skipped. A cluster whose weights all clip
// to zero gets its energy set but PositionValid stays false; this is a
// defined outcome, not an error, and must not abort the event.
func (cr *CoGReconstructor) Reconstruct(cl *Cluster) error {
	// no hits
	if len(cl.Hits) == 0 {
		return nil
	}

	// total energy, and the cell with the maximum energy deposit as the
	// reference frame (first-encountered wins a tie)
	totalE, maxE := 0.0, 0.0
	centerID := cl.Hits[0].CellID
	for i := range cl.Hits {
		energy := cl.Hits[i].Energy
		totalE += energy
		if energy > maxE {
			maxE = energy
			centerID = cl.Hits[i].CellID
		}
	}
	cl.Energy = totalE
	cl.CenterID = centerID
	cl.PositionValid = false

	// center of gravity in the local frame with logarithmic weighting
	var tw float64
	var sum r3.Vec
	for i := range cl.Hits {
		// suppress low energy contributions
		w := logWeight(cr.logWeightBase, cl.Hits[i].Energy, totalE)
		tw += w
		sum = r3.Add(sum, r3.Scale(w, cl.Hits[i].Local))
	}
	if tw <= 0 {
		// every weight clipped; no well-defined position
		return nil
	}

	// place the point at the front face of the reference cell rather
	// than its geometric center; an approximation pending a proper
	// shower-depth parameterization
	dim, err := cr.geo.CellDimensions(centerID)
	if err != nil {
		return fmt.Errorf("calo: cell dimensions for %#x: %w", uint64(centerID), err)
	}
	depth := -dim[2] / 2

	// convert the local centroid to a global position through the
	// nominal alignment of the reference cell; all members share this
	// one frame
	alignment, err := cr.geo.CellAlignment(centerID)
	if err != nil {
		return fmt.Errorf("calo: cell alignment for %#x: %w", uint64(centerID), err)
	}
	local := r3.Vec{X: sum.X / tw, Y: sum.Y / tw, Z: sum.Z/tw + depth}
	cl.Position = alignment.LocalToWorld(local)
	cl.PositionValid = true

	return nil
}

package calo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wdconinc/calorec/internal/geometry"
)

// cellRef holds the decoded sector and layer of a hit, cached once per
// event so the adjacency test does not re-decode per pair.
type cellRef struct {
	sector int64
	layer  int64
}

func (tc *TopoClusterer) ref(id geometry.CellID) cellRef {
	return cellRef{
		sector: tc.dec.Get(id, tc.sectorIdx),
		layer:  tc.dec.Get(id, tc.layerIdx),
	}
}

// IsNeighbor reports whether two hits satisfy the adjacency relation.
// The relation is symmetric.
func (tc *TopoClusterer) IsNeighbor(h1, h2 *Hit) bool {
	return tc.isNeighbor(h1, tc.ref(h1.CellID), h2, tc.ref(h2.CellID))
}

// isNeighbor is the grouping edge test:
//   - different sectors merge on global distance, since local and layer
//     semantics do not align across a sector boundary;
//   - the same layer compares local (x, y) windows;
//   - layers within AdjLayerDiff compare (eta, phi) windows;
//   - anything further apart is not adjacent.
func (tc *TopoClusterer) isNeighbor(h1 *Hit, r1 cellRef, h2 *Hit, r2 cellRef) bool {
	if r1.sector != r2.sector {
		return r3.Norm(r3.Sub(h1.Position, h2.Position)) <= tc.params.AdjSectorDist
	}

	ldiff := r1.layer - r2.layer
	if ldiff < 0 {
		ldiff = -ldiff
	}
	if ldiff == 0 {
		return math.Abs(h1.Local.X-h2.Local.X) <= tc.params.LocalRanges[0] &&
			math.Abs(h1.Local.Y-h2.Local.Y) <= tc.params.LocalRanges[1]
	}
	if ldiff <= int64(tc.params.AdjLayerDiff) {
		eta1, phi1 := etaPhi(h1.Position)
		eta2, phi2 := etaPhi(h2.Position)
		return math.Abs(eta1-eta2) <= tc.params.AdjLayerRanges[0] &&
			math.Abs(phi1-phi2) <= tc.params.AdjLayerRanges[1]
	}

	return false
}

// etaPhi computes pseudorapidity and azimuth of a global position.
func etaPhi(p r3.Vec) (eta, phi float64) {
	r := r3.Norm(p)
	phi = math.Atan2(p.Y, p.X)
	theta := math.Acos(p.Z / r)
	eta = -math.Log(math.Tan(theta / 2))
	return eta, phi
}

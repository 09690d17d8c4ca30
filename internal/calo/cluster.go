package calo

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wdconinc/calorec/internal/geometry"
)

// Cluster is one reconstructed shower: the member hits grouped by the
// topological clusterer, plus the derived energy and position filled in
// by the center-of-gravity reconstructor. Position is only meaningful
// while PositionValid is true; a cluster whose hit weights all clip to
// zero keeps PositionValid false and callers must check it before
// consuming Position.
type Cluster struct {
	Hits []Hit `json:"hits"`

	Energy float64 `json:"energy"`

	// CenterID is the cell of the maximum-energy member hit, used as
	// the reference frame for the position reconstruction.
	CenterID geometry.CellID `json:"center_id"`

	Position      r3.Vec `json:"position"`
	PositionValid bool   `json:"position_valid"`
}

// NewCluster materializes a hit group into a cluster with derived
// fields unset.
func NewCluster(group []Hit) *Cluster {
	return &Cluster{Hits: group}
}

// NHits returns the number of member hits.
func (c *Cluster) NHits() int { return len(c.Hits) }
